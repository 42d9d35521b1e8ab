package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/agrodata/plantio/internal/dataset"
)

// indexColumns is the fixed allow-list of secondary indexes recreated after
// each save. id is unique; the rest are plain lookup accelerators. Columns
// absent from an upload are skipped.
var indexColumns = []string{"id", "year", "state", "season", "season_macro", "crop"}

// viewAverageColumns are the numeric columns averaged in the per-season
// aggregate views, when present.
var viewAverageColumns = []string{"yield_kg_ha", "rain_mm", "fertilizer_kg_ha", "pesticide_kg_ha"}

// SaveTable replaces the named table's entire prior generation with the
// given rows in a single transaction: readers see the old generation in full
// or the new one in full, never a mix. Secondary indexes and the per-season
// aggregate views are recreated inside the same transaction. Returns the
// number of rows written.
func (db *DB) SaveTable(t *dataset.Table, name string) (int, error) {
	if t == nil || len(t.Columns) == 0 {
		return 0, fmt.Errorf("cannot save a table with no columns")
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(name))); err != nil {
		return 0, fmt.Errorf("drop previous generation: %w", err)
	}

	defs := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		defs[i] = fmt.Sprintf("%s %s", quoteIdent(col), columnType(t, col))
	}
	createSQL := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(name), strings.Join(defs, ", "))
	if _, err := tx.Exec(createSQL); err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	quoted := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		quoted[i] = quoteIdent(col)
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(name), strings.Join(quoted, ", "), placeholders))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range t.Rows {
		args := make([]any, len(t.Columns))
		for i, col := range t.Columns {
			args[i] = row[col]
		}
		if _, err := stmt.Exec(args...); err != nil {
			return 0, fmt.Errorf("insert row: %w", err)
		}
	}

	for _, col := range indexColumns {
		if !t.HasColumn(col) {
			continue
		}
		unique := ""
		if col == "id" {
			unique = "UNIQUE "
		}
		idxSQL := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
			unique, quoteIdent("idx_"+name+"_"+col), quoteIdent(name), quoteIdent(col))
		if _, err := tx.Exec(idxSQL); err != nil {
			return 0, fmt.Errorf("create index on %s: %w", col, err)
		}
	}

	if err := createSeasonViews(tx, t, name); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save: %w", err)
	}
	return len(t.Rows), nil
}

// createSeasonViews recreates the per-season and per-macro-season aggregate
// views when their grouping column exists in the new generation.
func createSeasonViews(tx *sql.Tx, t *dataset.Table, name string) error {
	for view, groupCol := range map[string]string{
		"v_agg_por_season":       "season",
		"v_agg_por_season_macro": "season_macro",
	} {
		if _, err := tx.Exec(fmt.Sprintf("DROP VIEW IF EXISTS %s", quoteIdent(view))); err != nil {
			return fmt.Errorf("drop view %s: %w", view, err)
		}
		if !t.HasColumn(groupCol) {
			continue
		}
		cols := []string{
			fmt.Sprintf("%s AS grupo", quoteIdent(groupCol)),
			"COUNT(*) AS registros",
		}
		for _, avg := range viewAverageColumns {
			if t.HasColumn(avg) {
				cols = append(cols, fmt.Sprintf("AVG(%s) AS %s", quoteIdent(avg), quoteIdent("media_"+avg)))
			}
		}
		viewSQL := fmt.Sprintf("CREATE VIEW %s AS SELECT %s FROM %s GROUP BY %s ORDER BY registros DESC",
			quoteIdent(view), strings.Join(cols, ", "), quoteIdent(name), quoteIdent(groupCol))
		if _, err := tx.Exec(viewSQL); err != nil {
			return fmt.Errorf("create view %s: %w", view, err)
		}
	}
	return nil
}

// LoadTable reads the whole named table. A table that was never saved
// returns an empty table, not an error.
func (db *DB) LoadTable(name string) (*dataset.Table, error) {
	exists, err := db.tableExists(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return dataset.NewTable(nil), nil
	}

	rows, err := db.Query(fmt.Sprintf("SELECT * FROM %s", quoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	t := dataset.NewTable(cols)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(dataset.Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeScanned(vals[i])
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// DistinctValues returns the sorted distinct non-empty values of a column as
// strings. A missing table or column yields an empty slice.
func (db *DB) DistinctValues(name, column string) ([]string, error) {
	exists, err := db.columnExists(name, column)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []string{}, nil
	}

	q := fmt.Sprintf(`SELECT DISTINCT CAST(%s AS TEXT) FROM %s
		WHERE %s IS NOT NULL AND TRIM(CAST(%s AS TEXT)) != ''
		ORDER BY 1`,
		quoteIdent(column), quoteIdent(name), quoteIdent(column), quoteIdent(column))
	rows, err := db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("distinct %s.%s: %w", name, column, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (db *DB) tableExists(name string) (bool, error) {
	var n int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return n > 0, nil
}

func (db *DB) columnExists(name, column string) (bool, error) {
	exists, err := db.tableExists(name)
	if err != nil || !exists {
		return false, err
	}
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(name)))
	if err != nil {
		return false, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			colName string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if colName == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// columnType picks a sqlite column affinity from the cell values actually
// present: BIGINT when every value is integral, DOUBLE for any other
// all-numeric column, TEXT otherwise (including empty columns).
func columnType(t *dataset.Table, col string) string {
	allInt := true
	seen := false
	for _, row := range t.Rows {
		switch row[col].(type) {
		case nil:
		case int64:
			seen = true
		case float64:
			seen = true
			allInt = false
		default:
			return "TEXT"
		}
	}
	if !seen {
		return "TEXT"
	}
	if allInt {
		return "BIGINT"
	}
	return "DOUBLE"
}

// normalizeScanned maps driver scan results onto the dataset cell types.
func normalizeScanned(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	default:
		return x
	}
}

// quoteIdent quotes a SQL identifier. Column names have been sanitized by
// the normalizer, but uploads bypassing it must still not break the SQL.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

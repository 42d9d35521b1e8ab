package dataset

import (
	"fmt"
	"regexp"
	"strings"
)

// Canonical schema mappings for crop-yield uploads. The rename map is matched
// case-insensitively against trimmed source column names before sanitizing.
var columnRenames = map[string]string{
	"yield":           "yield_kg_ha",
	"annual_rainfall": "rain_mm",
	"fertilizer":      "fertilizer_kg_ha",
	"pesticide":       "pesticide_kg_ha",
	"crop_year":       "year",
}

// seasonCanon rewrites raw season labels to the project's PT-BR vocabulary.
// Unmapped values pass through trimmed as-is.
var seasonCanon = map[string]string{
	"autumn":     "Outono",
	"winter":     "Inverno",
	"summer":     "Verao",
	"whole year": "Ano todo",
	"kharif":     "Chuvosa",
	"rabi":       "Inverno",
}

// seasonMacro derives the coarse macro-season grouping from the season label.
// Canonical PT-BR labels map too, so renormalizing an already-normalized
// table derives the same macro.
var seasonMacro = map[string]string{
	"autumn":     "Chuvosa",
	"kharif":     "Chuvosa",
	"rabi":       "Seca",
	"winter":     "Seca",
	"summer":     "Intermediaria",
	"whole year": "Anual",
	"outono":     "Chuvosa",
	"chuvosa":    "Chuvosa",
	"inverno":    "Seca",
	"verao":      "Intermediaria",
	"ano todo":   "Anual",
}

// UnknownSeasonMacro is the sentinel macro-season for unmapped labels.
const UnknownSeasonMacro = "Desconhecida"

// NumericFields lists the canonical columns coerced to float64 during
// normalization.
var NumericFields = []string{"area", "production", "rain_mm", "fertilizer_kg_ha", "pesticide_kg_ha", "yield_kg_ha"}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	badNameChars  = regexp.MustCompile(`[^a-z0-9_]`)
)

// Normalize maps an uploaded table onto the canonical crop-yield schema.
// It renames known columns, sanitizes all column names, rewrites season
// labels and derives season_macro, coerces numeric fields, and synthesizes a
// surrogate id column when none exists. It is a total function: malformed
// cells degrade to missing values, no rows are dropped, and the input table
// is left untouched.
func Normalize(t *Table) *Table {
	out := t.Clone()
	if out == nil {
		return nil
	}

	// Rename known columns, then force every name to snake_case.
	renamed := make([]string, len(out.Columns))
	for i, c := range out.Columns {
		key := strings.ToLower(strings.TrimSpace(c))
		if canon, ok := columnRenames[key]; ok {
			renamed[i] = canon
		} else {
			renamed[i] = c
		}
	}
	sanitized := sanitizeColumns(renamed)
	for ri, row := range out.Rows {
		nr := make(Row, len(row))
		for i, old := range out.Columns {
			nr[sanitized[i]] = row[old]
		}
		out.Rows[ri] = nr
	}
	out.Columns = sanitized

	if out.HasColumn("season") {
		normalizeSeasons(out)
	}

	if out.HasColumn("year") {
		for _, row := range out.Rows {
			if n, ok := AsInt(row["year"]); ok {
				row["year"] = n
			} else {
				row["year"] = nil
			}
		}
	}
	for _, col := range NumericFields {
		if !out.HasColumn(col) {
			continue
		}
		for _, row := range out.Rows {
			if f, ok := AsFloat(row[col]); ok {
				row[col] = f
			} else {
				row[col] = nil
			}
		}
	}

	if !out.HasColumn("id") {
		out.Columns = append([]string{"id"}, out.Columns...)
		for i, row := range out.Rows {
			row["id"] = int64(i + 1)
		}
	}

	return out
}

// normalizeSeasons rewrites season values through the canonical lookup and
// derives the season_macro column. The whole macro column is recomputed from
// season; any macro values carried by the upload are discarded.
func normalizeSeasons(t *Table) {
	for _, row := range t.Rows {
		rawStr, _ := AsString(row["season"])
		key := strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(rawStr), " "))
		if canon, ok := seasonCanon[key]; ok {
			row["season"] = canon
		} else {
			row["season"] = strings.TrimSpace(rawStr)
		}
		if macro, ok := seasonMacro[key]; ok {
			row["season_macro"] = macro
		} else {
			row["season_macro"] = UnknownSeasonMacro
		}
	}
	if !t.HasColumn("season_macro") {
		t.Columns = append(t.Columns, "season_macro")
	}
}

// sanitizeColumns lowercases and snake_cases column names, replaces empty
// names with a placeholder, and suffixes duplicates to keep names unique in
// first-seen order.
func sanitizeColumns(cols []string) []string {
	seen := make(map[string]bool, len(cols))
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		clean := strings.ToLower(strings.TrimSpace(c))
		clean = whitespaceRun.ReplaceAllString(clean, "_")
		clean = badNameChars.ReplaceAllString(clean, "")
		if clean == "" {
			clean = "col"
		}
		base := clean
		for i := 1; seen[clean]; {
			i++
			clean = fmt.Sprintf("%s_%d", base, i)
		}
		seen[clean] = true
		out = append(out, clean)
	}
	return out
}

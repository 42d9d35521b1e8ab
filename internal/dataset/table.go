// Package dataset models uploaded tabular data: an ordered, named collection
// of rows with loosely typed cells. Cell values are restricted to string,
// float64, int64, or nil (missing).
package dataset

import (
	"strconv"
	"strings"
)

// Row maps column names to cell values.
type Row map[string]any

// Table is an ordered collection of rows with a stable column set.
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given column order.
func NewTable(columns []string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Empty reports whether the table holds no rows.
func (t *Table) Empty() bool {
	return t == nil || len(t.Rows) == 0
}

// HasColumn reports whether the named column is part of the table schema.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := NewTable(t.Columns)
	out.Rows = make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		nr := make(Row, len(r))
		for k, v := range r {
			nr[k] = v
		}
		out.Rows[i] = nr
	}
	return out
}

// AsFloat converts a cell value to float64. Numeric strings are parsed so
// that tables round-tripped through text storage still summarize correctly.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsInt converts a cell value to int64, truncating floats.
func AsInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	case string:
		f, ok := AsFloat(x)
		if !ok {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

// AsString converts a cell value to its string form. Missing cells return
// ok=false.
func AsString(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case int64:
		return strconv.FormatInt(x, 10), true
	default:
		return "", false
	}
}

// FloatColumn returns the parseable numeric values of a column, in row
// order, skipping missing and unparseable cells.
func (t *Table) FloatColumn(name string) []float64 {
	if t == nil {
		return nil
	}
	var out []float64
	for _, r := range t.Rows {
		if f, ok := AsFloat(r[name]); ok {
			out = append(out, f)
		}
	}
	return out
}

// IsNumericColumn reports whether a column holds at least one value and all
// of its non-missing values are numeric (float64 or int64 cells).
func (t *Table) IsNumericColumn(name string) bool {
	seen := false
	for _, r := range t.Rows {
		v, ok := r[name]
		if !ok || v == nil {
			continue
		}
		switch v.(type) {
		case float64, int64:
			seen = true
		default:
			return false
		}
	}
	return seen
}

// NumericColumns returns the subset of columns classified as numeric, in
// schema order.
func (t *Table) NumericColumns() []string {
	if t == nil {
		return nil
	}
	var out []string
	for _, c := range t.Columns {
		if t.IsNumericColumn(c) {
			out = append(out, c)
		}
	}
	return out
}

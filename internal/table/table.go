// Package table holds the in-memory representation of an uploaded tabular
// dataset: an ordered column list plus row-major cell values.
//
// Cells carry one of four value kinds: string, float64, time.Time, or nil
// for missing values. Files load as strings; the executor coerces columns
// to float64/time.Time based on the schema analysis.
package table

import (
	"strings"
	"time"
)

// Table is a named-column, row-major dataset.
// The ingestion layer produces it; the pipeline treats it as read-only
// and always works on a private copy.
type Table struct {
	Columns []string
	Rows    [][]any
}

// New creates a Table from a column list and row data.
func New(columns []string, rows [][]any) *Table {
	return &Table{Columns: columns, Rows: rows}
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int {
	return len(t.Columns)
}

// ColumnIndex returns the position of the named column, or false when the
// column does not exist. Matching is exact.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// Cell returns the value at (row, col name), or nil when either is out of range.
func (t *Table) Cell(row int, name string) any {
	idx, ok := t.ColumnIndex(name)
	if !ok || row < 0 || row >= len(t.Rows) || idx >= len(t.Rows[row]) {
		return nil
	}
	return t.Rows[row][idx]
}

// Copy returns a deep copy of the table. Cell values themselves are
// immutable kinds (string, float64, time.Time, nil), so copying the row
// slices is sufficient isolation.
func (t *Table) Copy() *Table {
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)

	rows := make([][]any, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]any, len(row))
		copy(r, row)
		rows[i] = r
	}
	return &Table{Columns: cols, Rows: rows}
}

// Select returns a new table containing only the rows whose indices are
// listed, in the given order. Indices out of range are skipped.
func (t *Table) Select(indices []int) *Table {
	rows := make([][]any, 0, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(t.Rows) {
			rows = append(rows, t.Rows[i])
		}
	}
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)
	return &Table{Columns: cols, Rows: rows}
}

// IsNull reports whether v is a missing value.
func IsNull(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return isNullMarker(s)
	}
	return false
}

func isNullMarker(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "null", "NULL", "N/A", "n/a", "NaN", "nan":
		return true
	}
	return false
}

// ParseNumber attempts to coerce a cell value to float64.
// String values tolerate thousands separators and common currency prefixes.
func ParseNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		return parseNumericString(x)
	default:
		return 0, false
	}
}

// ParseDate attempts to coerce a cell value to time.Time, trying a fixed
// list of common layouts for string values.
func ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		return parseDateString(x)
	default:
		return time.Time{}, false
	}
}

// AsString renders a cell value as a plain string for display and matching.
func AsString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case float64:
		return formatFloat(x)
	default:
		return ""
	}
}

package domain

import (
	"fmt"
	"strings"
)

// blankSentinels are cell values read as "absent" even though the cell is not empty.
var blankSentinels = map[string]struct{}{
	"":    {},
	"nan": {},
	"na":  {},
	"n/a": {},
}

// IsBlank reports whether a cell value should be treated as missing.
// Comparison is case-insensitive and ignores surrounding whitespace.
func IsBlank(value string) bool {
	_, ok := blankSentinels[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// Record is one row of the input table.
// Records are never mutated after ingestion.
type Record struct {
	// Index is the zero-based position of the row in the input table.
	Index int

	// Values maps column name to the raw cell text.
	// A missing key is a missing value.
	Values map[string]string
}

// Value returns the raw cell for a column and whether the column was present.
func (r Record) Value(column string) (string, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Text returns the trimmed cell for a column, or "" when it is missing or blank.
func (r Record) Text(column string) string {
	v, ok := r.Values[column]
	if !ok || IsBlank(v) {
		return ""
	}
	return strings.TrimSpace(v)
}

// Present reports whether a column holds a non-blank value.
func (r Record) Present(column string) bool {
	return r.Text(column) != ""
}

// Table is a decoded input table: a header row plus records in input order.
type Table struct {
	// Columns is the header row, in sheet order.
	Columns []string

	// Records holds one entry per data row.
	Records []Record
}

// HasColumn reports whether the header row contains the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// NewTable builds a table from raw rows. The first row is the header.
// Header cells are trimmed and blank header columns are dropped. Rows with
// no non-blank cell are skipped; short rows leave their trailing columns
// missing.
func NewTable(rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no header row: %w", ErrInvalidInput)
	}

	header := rows[0]
	columns := make([]string, 0, len(header))
	positions := make([]int, 0, len(header))
	seen := make(map[string]struct{}, len(header))
	for i, cell := range header {
		name := strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate column %q: %w", name, ErrInvalidInput)
		}
		seen[name] = struct{}{}
		columns = append(columns, name)
		positions = append(positions, i)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("header row is empty: %w", ErrInvalidInput)
	}

	table := &Table{Columns: columns, Records: make([]Record, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		values := make(map[string]string, len(columns))
		blank := true
		for j, pos := range positions {
			if pos >= len(row) {
				break
			}
			values[columns[j]] = row[pos]
			if strings.TrimSpace(row[pos]) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		table.Records = append(table.Records, Record{Index: len(table.Records), Values: values})
	}
	return table, nil
}

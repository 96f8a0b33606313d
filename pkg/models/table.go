package models

import "strings"

// Canonical column names of a normalized statement table.
const (
	ColumnConcept = "concept"
	ColumnCard    = "card"
	ColumnDate    = "date"
	ColumnAmount  = "amount"
)

// RawTable is a parsed statement before row processing. Every row has
// exactly len(Columns) cells.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// Index returns the position of the named column or -1.
func (t *RawTable) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the trimmed cell of row for the named column, "" when the
// column does not exist.
func (t *RawTable) Value(row []string, name string) string {
	i := t.Index(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

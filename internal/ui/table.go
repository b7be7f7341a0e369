package ui

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"unicode/utf8"
)

// Cells wider than this are clipped so one long address or recipient name
// cannot blow out a whole column.
const maxCellWidth = 50

// Table accumulates rows and renders them as left-aligned columns separated
// by two spaces.
type Table struct {
	buffer strings.Builder
	writer *tabwriter.Writer
}

// NewTable starts a table with the given header row.
func NewTable(headers ...string) *Table {
	table := &Table{}
	table.writer = tabwriter.NewWriter(&table.buffer, 0, 0, 2, ' ', 0)
	table.Row(headers...)
	return table
}

// Row appends one row. Cells are flattened to a single line and clipped to a
// fixed width.
func (t *Table) Row(cells ...string) {
	clipped := make([]string, len(cells))
	for i, cell := range cells {
		clipped[i] = clipCell(cell)
	}
	fmt.Fprintln(t.writer, strings.Join(clipped, "\t"))
}

// String renders the accumulated rows.
func (t *Table) String() string {
	t.writer.Flush()
	return t.buffer.String()
}

func clipCell(value string) string {
	value = strings.Join(strings.Fields(value), " ")
	if utf8.RuneCountInString(value) <= maxCellWidth {
		return value
	}
	runes := []rune(value)
	return string(runes[:maxCellWidth-3]) + "..."
}

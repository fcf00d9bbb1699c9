package main

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[A-Za-z]`)

// column is one table column with its cell values
type column struct {
	header   string
	values   []string
	minWidth int
}

// Table aligns coloured cells into columns
type Table struct {
	columns []column
	padding int
}

// NewTable creates a table with padding spaces between columns
func NewTable(padding int) *Table {
	return &Table{padding: padding}
}

// AddColumn appends a column
func (t *Table) AddColumn(header string, values []string, minWidth int) {
	t.columns = append(t.columns, column{header: header, values: values, minWidth: minWidth})
}

// visibleWidth counts runes without ANSI escape sequences
func visibleWidth(s string) int {
	return utf8.RuneCountInString(ansiPattern.ReplaceAllString(s, ""))
}

func (t *Table) widths() []int {
	widths := make([]int, len(t.columns))
	for i, col := range t.columns {
		width := max(col.minWidth, visibleWidth(col.header))
		for _, value := range col.values {
			width = max(width, visibleWidth(value))
		}
		widths[i] = width
	}
	return widths
}

// join pads each cell to its column width; the last cell is left unpadded
func (t *Table) join(cells []string, widths []int) string {
	var line strings.Builder
	gap := strings.Repeat(" ", t.padding)
	for i, cell := range cells {
		line.WriteString(cell)
		if i == len(cells)-1 {
			break
		}
		if fill := widths[i] - visibleWidth(cell); fill > 0 {
			line.WriteString(strings.Repeat(" ", fill))
		}
		line.WriteString(gap)
	}
	return line.String()
}

// Header returns the header line and a dashed separator
func (t *Table) Header() string {
	if len(t.columns) == 0 {
		return ""
	}
	widths := t.widths()
	headers := make([]string, len(t.columns))
	dashes := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = fmt.Sprintf("%-*s", widths[i], col.header)
		dashes[i] = strings.Repeat("-", widths[i])
	}
	return strings.TrimRight(t.join(headers, widths), " ") + "\n" + t.join(dashes, widths)
}

// Row returns row i, or "" when any column lacks it
func (t *Table) Row(i int) string {
	if len(t.columns) == 0 || i < 0 {
		return ""
	}
	cells := make([]string, len(t.columns))
	for c, col := range t.columns {
		if i >= len(col.values) {
			return ""
		}
		cells[c] = col.values[i]
	}
	return t.join(cells, t.widths())
}

// RowCount returns the number of rows in the first column
func (t *Table) RowCount() int {
	if len(t.columns) == 0 {
		return 0
	}
	return len(t.columns[0].values)
}

package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column. Right aligns numbers.
type Column struct {
	Title string
	Width int
	Right bool
}

// Row is a slice of cell values. Cells may carry lipgloss styling.
type Row []string

// Table renders a lipgloss-styled table.
type Table struct {
	Columns []Column
	Rows    []Row
	SelIdx  int // selected row index (-1 = none)
}

// NewTable creates a new table.
func NewTable(cols []Column) *Table {
	return &Table{Columns: cols, SelIdx: -1}
}

// AddRow appends a row.
func (t *Table) AddRow(r Row) {
	t.Rows = append(t.Rows, r)
}

// fit pads or truncates s to exactly col.Width visible columns.
func (col Column) fit(s string) string {
	if lipgloss.Width(s) > col.Width {
		s = lipgloss.NewStyle().MaxWidth(col.Width).Render(s)
	}
	if col.Right {
		return padL(s, col.Width)
	}
	return padR(s, col.Width)
}

// Render returns the full table as a string.
func (t *Table) Render() string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(ColorValue)

	var headers []string
	for _, col := range t.Columns {
		headers = append(headers, headerStyle.Render(col.fit(col.Title)))
	}
	sb.WriteString(strings.Join(headers, " "))
	sb.WriteString("\n")

	var divParts []string
	for _, col := range t.Columns {
		divParts = append(divParts, StyleDim.Render(strings.Repeat("-", col.Width)))
	}
	sb.WriteString(strings.Join(divParts, " "))
	sb.WriteString("\n")

	for i, row := range t.Rows {
		var cells []string
		for j, col := range t.Columns {
			val := ""
			if j < len(row) {
				val = row[j]
			}
			style := cellStyle
			if i == t.SelIdx {
				style = StyleSelected
			}
			cells = append(cells, style.Render(col.fit(val)))
		}
		sb.WriteString(strings.Join(cells, " "))
		sb.WriteString("\n")
	}

	return sb.String()
}

// KeyValueBlock renders a set of key-value pairs in a bordered box, keys
// aligned to the longest one.
func KeyValueBlock(title string, pairs [][2]string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title))
		sb.WriteString("\n")
	}
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0])+1)
	}
	for _, p := range pairs {
		key := StyleMeta.Render(padR(p[0]+":", width))
		sb.WriteString("  " + key + " " + StyleValue.Render(p[1]) + "\n")
	}
	return StyleBorder.Render(strings.TrimRight(sb.String(), "\n"))
}

package timetable

import (
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// FormatGrid lays out the grid as aligned text lines, header first. Widths
// are terminal cell widths, so full-width subjects line up.
func FormatGrid(g *Grid) []string {
	if g == nil {
		return nil
	}
	rows := make([][]string, 0, len(g.Rows))
	for _, r := range g.Rows {
		row := make([]string, 0, len(r.Cells)+1)
		row = append(row, strconv.Itoa(r.Period))
		row = append(row, r.Cells[:]...)
		rows = append(rows, row)
	}
	return FormatTable(g.Header, rows, map[int]bool{0: true})
}

// FormatView renders a view as plain text.
func FormatView(v View) string {
	switch v.Kind {
	case ViewGrid:
		lines := append([]string{v.Grid.Title, ""}, FormatGrid(v.Grid)...)
		return strings.Join(lines, "\n")
	case ViewError:
		if v.Err != nil {
			return v.Message + "\n" + v.Err.Error()
		}
		return v.Message
	default:
		return v.Message
	}
}

// FormatTable aligns rows under headers by display width. Columns in
// rightAlignCols are right-aligned.
func FormatTable(headers []string, rows [][]string, rightAlignCols map[int]bool) []string {
	colCount := len(headers)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}
	if colCount == 0 {
		return nil
	}

	widths := make([]int, colCount)
	for i, header := range headers {
		widths[i] = DisplayWidth(header)
	}
	for _, row := range rows {
		for i := 0; i < colCount; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if w := DisplayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows)+1)
	if len(headers) > 0 {
		lines = append(lines, formatRow(headers, widths, rightAlignCols))
	}
	for _, row := range rows {
		lines = append(lines, formatRow(row, widths, rightAlignCols))
	}
	return lines
}

func formatRow(row []string, widths []int, rightAlignCols map[int]bool) string {
	var b strings.Builder
	for i := 0; i < len(widths); i++ {
		cell := ""
		if i < len(row) {
			cell = row[i]
		}
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(padCell(cell, widths[i], rightAlignCols[i]))
	}
	return strings.TrimRight(b.String(), " ")
}

func padCell(value string, width int, rightAlign bool) string {
	valueWidth := DisplayWidth(value)
	if valueWidth >= width {
		return value
	}
	padding := width - valueWidth
	if rightAlign {
		return strings.Repeat(" ", padding) + value
	}
	return value + strings.Repeat(" ", padding)
}

// DisplayWidth returns the number of terminal cells value occupies.
func DisplayWidth(value string) int {
	return runewidth.StringWidth(value)
}

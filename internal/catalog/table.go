// internal/catalog/table.go
package catalog

import (
	"regexp"
	"strings"
)

var separatorLine = regexp.MustCompile(`^[\s|:\-]+$`)

// row is one data line that matched its header's field count.
type row struct {
	line  int
	cells []string
}

// table is one pipe-delimited section. lines keeps the raw text so an
// unchanged table serializes back to the same bytes.
type table struct {
	lines     []string
	firstLine int // 1-based file line of lines[0]
	headerAt  int
	header    []string
	markdown  bool
	rows      []row
	skipped   []row // lines whose field count differs from the header
}

// mismatch is a data line whose field count differs from the header's.
type mismatch struct {
	line int
	got  int
	want int
}

func newTable(text string, firstLine int) (*table, []mismatch) {
	t := &table{
		lines:     strings.Split(text, "\n"),
		firstLine: firstLine,
		headerAt:  -1,
	}

	var bad []mismatch
	for i, raw := range t.lines {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || separatorLine.MatchString(trimmed) {
			continue
		}
		if t.headerAt < 0 {
			t.headerAt = i
			t.markdown = strings.HasPrefix(trimmed, "|")
			t.header = splitCells(trimmed, t.markdown)
			continue
		}
		cells := splitCells(trimmed, t.markdown)
		if len(cells) != len(t.header) {
			bad = append(bad, mismatch{line: t.fileLine(i), got: len(cells), want: len(t.header)})
			t.skipped = append(t.skipped, row{line: i, cells: cells})
			continue
		}
		t.rows = append(t.rows, row{line: i, cells: cells})
	}
	return t, bad
}

func splitCells(line string, markdown bool) []string {
	if markdown {
		line = strings.TrimPrefix(line, "|")
		line = strings.TrimSuffix(line, "|")
	}
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func (t *table) fileLine(i int) int {
	return t.firstLine + i
}

// column returns the header position of name, compared case-insensitively
// with spaces treated as underscores.
func (t *table) column(name string) int {
	for i, h := range t.header {
		if headerKey(h) == name {
			return i
		}
	}
	return -1
}

func headerKey(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.ReplaceAll(h, " ", "_")
}

// zip pairs a row's cells with the header keys.
func (t *table) zip(r row) map[string]string {
	m := make(map[string]string, len(t.header))
	for i, h := range t.header {
		m[headerKey(h)] = r.cells[i]
	}
	return m
}

func (t *table) render(cells []string) string {
	s := strings.Join(cells, " | ")
	if t.markdown {
		return "| " + s + " |"
	}
	return s
}

func (t *table) renderSeparator(n int) string {
	cells := make([]string, n)
	for i := range cells {
		cells[i] = "---"
	}
	return t.render(cells)
}

func (t *table) text() string {
	return strings.Join(t.lines, "\n")
}

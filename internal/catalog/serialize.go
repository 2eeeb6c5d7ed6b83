// internal/catalog/serialize.go
package catalog

import (
	"strings"
)

const benefitIDColumn = "benefit_id"

// Dirty reports whether any benefit_id differs from what was parsed.
func (d *Document) Dirty() bool {
	for i, b := range d.Record.Benefits {
		if i >= len(d.parsedIDs) {
			break
		}
		if b.BenefitID.String() != d.parsedIDs[i] {
			return true
		}
	}
	return false
}

// Bytes serializes the document. Only benefit rows whose benefit_id changed
// are re-rendered; every other line, including skipped ones, is written
// back as it was read. CRLF files keep CRLF; files with mixed line endings
// are written with \n.
func (d *Document) Bytes() []byte {
	parts := make([]string, len(d.tables))
	for i, t := range d.tables {
		if i == 1 && d.Dirty() {
			parts[i] = d.renderBenefits(t)
			continue
		}
		parts[i] = t.text()
	}
	out := strings.Join(parts, SectionDelimiter)
	if d.crlf {
		out = strings.ReplaceAll(out, "\n", "\r\n")
	}
	return []byte(out)
}

func (d *Document) renderBenefits(t *table) string {
	lines := make([]string, len(t.lines))
	copy(lines, t.lines)

	idCol := t.column(benefitIDColumn)
	extend := idCol < 0

	if extend {
		header := append([]string{benefitIDColumn}, t.header...)
		lines[t.headerAt] = t.render(header)
		for i := t.headerAt + 1; i < len(lines); i++ {
			if trimmed := strings.TrimSpace(lines[i]); trimmed != "" && separatorLine.MatchString(trimmed) {
				lines[i] = t.renderSeparator(len(header))
			}
		}
		// a skipped row one cell too wide would fit the wider header
		for _, r := range t.skipped {
			if len(r.cells) == len(header) {
				lines[r.line] = t.render(append([]string{""}, r.cells...))
			}
		}
	}

	for i, r := range t.rows {
		if i >= len(d.Record.Benefits) {
			break
		}
		id := d.Record.Benefits[i].BenefitID.String()
		switch {
		case extend:
			lines[r.line] = t.render(append([]string{id}, r.cells...))
		case id != d.parsedIDs[i]:
			cells := make([]string, len(r.cells))
			copy(cells, r.cells)
			cells[idCol] = id
			lines[r.line] = t.render(cells)
		}
	}
	return strings.Join(lines, "\n")
}

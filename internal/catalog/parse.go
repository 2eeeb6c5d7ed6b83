// internal/catalog/parse.go
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/colinjianingxie/walletfreak-sub001/internal/domain"
	val "github.com/colinjianingxie/walletfreak-sub001/internal/validator"
	"github.com/shopspring/decimal"
)

// SectionDelimiter separates the info, benefits and rates tables.
const SectionDelimiter = "\n---\n"

var (
	ErrNoSections = errors.New("catalog: document is empty")
	ErrNoSlug     = errors.New("catalog: card has no slug")
)

// Document is a parsed card file. Record is the typed view; the layout
// behind it is kept so Bytes can write the file back losslessly.
type Document struct {
	Path     string
	Record   domain.CatalogRecord
	Findings []domain.Finding

	tables    []*table
	parsedIDs []string
	crlf      bool // every line ended in \r\n
}

// Parse turns one card file into a Document. Rows with the wrong field
// count are skipped and reported in Document.Findings; only an empty
// document or a card without a slug is an error.
func Parse(path string, data []byte) (*Document, error) {
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoSections
	}

	doc := &Document{Path: path}
	if n := strings.Count(text, "\r\n"); n > 0 {
		doc.crlf = n == strings.Count(text, "\n")
		text = strings.ReplaceAll(text, "\r\n", "\n")
	}

	line := 1
	for _, part := range strings.SplitN(text, SectionDelimiter, 3) {
		t, bad := newTable(part, line)
		doc.tables = append(doc.tables, t)
		line += len(t.lines) + 1 // the delimiter line itself

		section := sectionAt(len(doc.tables) - 1)
		for _, m := range bad {
			doc.Findings = append(doc.Findings, domain.Finding{
				Kind:    domain.KindStructuralParse,
				Section: section,
				Line:    m.line,
				Message: fmt.Sprintf("row has %d fields, header has %d; row skipped", m.got, m.want),
			})
		}
	}

	doc.parseInfo(path)
	if doc.Record.Slug == "" {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSlug)
	}
	doc.parseBenefits()
	doc.parseRates()

	if err := val.Validate.Struct(doc.Record); err != nil {
		for _, p := range val.Problems(err) {
			doc.invalid(domain.SectionInfo, doc.tables[0].fileLine(max(doc.tables[0].headerAt, 0)), p)
		}
	}

	for i := range doc.Findings {
		doc.Findings[i].Card = doc.Record.Slug
	}
	return doc, nil
}

func sectionAt(i int) domain.Section {
	switch i {
	case 0:
		return domain.SectionInfo
	case 1:
		return domain.SectionBenefits
	default:
		return domain.SectionRates
	}
}

func (d *Document) invalid(section domain.Section, line int, msg string) {
	d.Findings = append(d.Findings, domain.Finding{
		Kind:    domain.KindInvalidField,
		Section: section,
		Line:    line,
		Message: msg,
	})
}

func (d *Document) parseInfo(path string) {
	info := d.tables[0]
	d.Record.Info = make(map[string]string)

	for i, r := range info.rows {
		if i > 0 {
			d.Findings = append(d.Findings, domain.Finding{
				Kind:    domain.KindStructuralParse,
				Section: domain.SectionInfo,
				Line:    info.fileLine(r.line),
				Message: "info section has more than one data row; row ignored",
			})
			continue
		}
		for j, h := range info.header {
			d.Record.Info[h] = r.cells[j]
		}
		fields := info.zip(r)
		d.Record.Slug = fields["slug"]
		d.Record.Name = fields["name"]
	}

	if d.Record.Slug == "" {
		base := filepath.Base(path)
		d.Record.Slug = strings.TrimSuffix(base, filepath.Ext(base))
	}
}

func (d *Document) parseBenefits() {
	if len(d.tables) < 2 {
		return
	}
	t := d.tables[1]
	for _, r := range t.rows {
		fields := t.zip(r)
		line := t.fileLine(r.line)

		b := domain.BenefitRow{
			DescriptionShort: fields["description_short"],
			Description:      fields["description"],
			Category:         ParseCategory(fields["category"]),
			ResetPeriod:      normalizePeriod(fields["reset_period"]),
			Line:             line,
		}
		if id := fields["benefit_id"]; id != "" {
			b.BenefitID = domain.SomeID(id)
		}

		amount, err := parseDecimal(fields["amount"], true)
		if err != nil {
			d.invalid(domain.SectionBenefits, line, fmt.Sprintf("amount %q: %v", fields["amount"], err))
		}
		b.Amount = amount

		if err := val.Validate.Struct(b); err != nil {
			for _, p := range val.Problems(err) {
				d.invalid(domain.SectionBenefits, line, p)
			}
		}

		d.Record.Benefits = append(d.Record.Benefits, b)
		d.parsedIDs = append(d.parsedIDs, b.BenefitID.String())
	}
}

func (d *Document) parseRates() {
	if len(d.tables) < 3 {
		return
	}
	t := d.tables[2]
	for _, r := range t.rows {
		fields := t.zip(r)
		line := t.fileLine(r.line)

		rate := domain.RateRow{
			Category: ParseCategory(fields["category"]),
			Currency: fields["currency"],
			Details:  fields["details"],
			Line:     line,
		}

		earning, err := parseDecimal(strings.TrimRight(fields["earning_rate"], "xX"), false)
		if err != nil {
			d.invalid(domain.SectionRates, line, fmt.Sprintf("earning_rate %q: %v", fields["earning_rate"], err))
		}
		rate.EarningRate = earning

		if err := val.Validate.Struct(rate); err != nil {
			for _, p := range val.Problems(err) {
				d.invalid(domain.SectionRates, line, p)
			}
		}

		d.Record.Rates = append(d.Record.Rates, rate)
	}
}

func normalizePeriod(s string) domain.ResetPeriod {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("-", "_", " ", "_").Replace(s)
	return domain.ResetPeriod(s)
}

// parseDecimal reads "$1,200.50"-style values. An empty cell is zero when
// allowEmpty is set.
func parseDecimal(s string, allowEmpty bool) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	if s == "" {
		if allowEmpty {
			return decimal.Zero, nil
		}
		return decimal.Zero, errors.New("value is empty")
	}
	return decimal.NewFromString(s)
}

// internal/taxonomy/audit.go
package taxonomy

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/colinjianingxie/walletfreak-sub001/internal/domain"
)

// DefaultRepeatGroups are the high-level groups whose leaves may appear in
// more than one rate row of a card. Kept as configuration; there is no rule
// behind the selection beyond observed catalog data.
var DefaultRepeatGroups = []string{"Protection", "Travel Perks", "Insurance"}

const excerptLen = 50

// Auditor checks category references against a taxonomy. It never
// mutates the records it is given.
type Auditor struct {
	taxonomy    domain.TaxonomyMap
	allowRepeat map[string]struct{}
}

func NewAuditor(tax domain.TaxonomyMap, repeatGroups []string) *Auditor {
	allow := make(map[string]struct{}, len(repeatGroups))
	for _, g := range repeatGroups {
		allow[g] = struct{}{}
	}
	return &Auditor{taxonomy: tax, allowRepeat: allow}
}

// Audit runs AuditCard over every record, in order.
func (a *Auditor) Audit(records []domain.CatalogRecord) domain.Report {
	var report domain.Report
	for _, rec := range records {
		report.Merge(a.AuditCard(rec))
	}
	return report
}

// AuditCard reports unmapped benefit and rate leaves, and rate leaves that
// repeat within the card outside the allowed groups. Benefit leaves are
// only checked for mapping: the same benefit category recurs across reset
// periods.
func (a *Auditor) AuditCard(rec domain.CatalogRecord) domain.Report {
	var report domain.Report

	for i, b := range rec.Benefits {
		desc := b.Description
		if desc == "" {
			desc = b.DescriptionShort
		}
		for _, leaf := range b.Category {
			if _, ok := a.taxonomy.Group(leaf); ok {
				continue
			}
			report.Add(domain.Finding{
				Kind:     domain.KindUnmappedCategory,
				Card:     rec.Slug,
				Section:  domain.SectionBenefits,
				Line:     b.Line,
				Category: leaf,
				Excerpt:  excerpt(desc),
				Message:  fmt.Sprintf("benefit row %d: category %q is not in the taxonomy", i, leaf),
			})
		}
	}

	seen := make(map[string]struct{})
	for i, r := range rec.Rates {
		desc := r.Details
		if desc == "" {
			desc = strings.TrimSpace(r.EarningRate.String() + "x " + r.Currency)
		}
		for _, leaf := range r.Category {
			group, mapped := a.taxonomy.Group(leaf)
			if !mapped {
				report.Add(domain.Finding{
					Kind:     domain.KindUnmappedCategory,
					Card:     rec.Slug,
					Section:  domain.SectionRates,
					Line:     r.Line,
					Category: leaf,
					Excerpt:  excerpt(desc),
					Message:  fmt.Sprintf("rate row %d: category %q is not in the taxonomy", i, leaf),
				})
			}

			if _, dup := seen[leaf]; !dup {
				seen[leaf] = struct{}{}
				continue
			}
			if _, ok := a.allowRepeat[group]; ok {
				continue
			}
			report.Add(domain.Finding{
				Kind:     domain.KindDuplicateRateCat,
				Card:     rec.Slug,
				Section:  domain.SectionRates,
				Line:     r.Line,
				Category: leaf,
				Group:    group,
				Excerpt:  excerpt(desc),
				Message:  fmt.Sprintf("rate row %d: category %q already has an earning rate", i, leaf),
			})
		}
	}

	return report
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= excerptLen {
		return s
	}
	r := []rune(s)
	return string(r[:excerptLen]) + "..."
}

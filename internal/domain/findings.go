// internal/domain/findings.go
package domain

import "sort"

type FindingKind string

const (
	KindStructuralParse  FindingKind = "StructuralParseError"
	KindInvalidField     FindingKind = "InvalidField"
	KindUnmappedCategory FindingKind = "UnmappedCategory"
	KindDuplicateRateCat FindingKind = "DuplicateRateCategory"
)

type Section string

const (
	SectionInfo     Section = "info"
	SectionBenefits Section = "benefits"
	SectionRates    Section = "rates"
)

// Finding is one audit result. Seq is the insertion order inside a Report.
type Finding struct {
	Kind     FindingKind `csv:"kind"`
	Card     string      `csv:"card"`
	Section  Section     `csv:"section"`
	Line     int         `csv:"line"`
	Category string      `csv:"category,omitempty"`
	Group    string      `csv:"group,omitempty"`
	Excerpt  string      `csv:"excerpt,omitempty"`
	Message  string      `csv:"message"`
	Seq      int         `csv:"-"`
}

// Report is a flat findings list with the counters the exit code depends on
type Report struct {
	Findings          []Finding
	UnmappedBenefits  int
	UnmappedRates     int
	IllegalDuplicates int
	ParseIssues       int
}

// Add records f and bumps the matching counter.
func (r *Report) Add(f Finding) {
	switch f.Kind {
	case KindUnmappedCategory:
		if f.Section == SectionRates {
			r.UnmappedRates++
		} else {
			r.UnmappedBenefits++
		}
	case KindDuplicateRateCat:
		r.IllegalDuplicates++
	case KindStructuralParse, KindInvalidField:
		r.ParseIssues++
	}
	f.Seq = len(r.Findings)
	r.Findings = append(r.Findings, f)
}

// Merge appends every finding of other.
func (r *Report) Merge(other Report) {
	for _, f := range other.Findings {
		r.Add(f)
	}
}

// Sort orders findings by card slug, then discovery order.
func (r *Report) Sort() {
	sort.SliceStable(r.Findings, func(i, j int) bool {
		a, b := r.Findings[i], r.Findings[j]
		if a.Card != b.Card {
			return a.Card < b.Card
		}
		return a.Seq < b.Seq
	})
}

// OK is true when no counter is set.
func (r Report) OK() bool {
	return r.UnmappedBenefits == 0 && r.UnmappedRates == 0 && r.IllegalDuplicates == 0 && r.ParseIssues == 0
}

// internal/domain/models.go
package domain

import (
	"github.com/shopspring/decimal"
)

// ResetPeriod: how often a benefit's entitlement renews
type ResetPeriod string

const (
	ResetPermanent    ResetPeriod = "permanent"
	ResetMonthly      ResetPeriod = "monthly"
	ResetQuarterly    ResetPeriod = "quarterly"
	ResetSemiAnnual   ResetPeriod = "semi_annual"
	ResetCalendarYear ResetPeriod = "calendar_year"
	ResetAnniversary  ResetPeriod = "anniversary"
	ResetIntro        ResetPeriod = "intro"
)

var ResetPeriods = []ResetPeriod{
	ResetPermanent,
	ResetMonthly,
	ResetQuarterly,
	ResetSemiAnnual,
	ResetCalendarYear,
	ResetAnniversary,
	ResetIntro,
}

func (p ResetPeriod) Valid() bool {
	for _, known := range ResetPeriods {
		if p == known {
			return true
		}
	}
	return false
}

// OptionalID holds a benefit_id that may not be assigned yet.
// The zero value is "absent".
type OptionalID struct {
	id  string
	set bool
}

func SomeID(id string) OptionalID {
	return OptionalID{id: id, set: true}
}

func NoID() OptionalID {
	return OptionalID{}
}

// Get returns the id and whether it is present.
func (o OptionalID) Get() (string, bool) {
	return o.id, o.set
}

func (o OptionalID) IsSet() bool {
	return o.set
}

// String returns the id, or "" when absent.
func (o OptionalID) String() string {
	return o.id
}

// BenefitRow: one perk or credit on a card
type BenefitRow struct {
	BenefitID        OptionalID      `validate:"-"`
	DescriptionShort string          `validate:"-"`
	Description      string          `validate:"-"`
	Category         []string        `validate:"dive,notblank"`
	Amount           decimal.Decimal `validate:"gte=0"`
	ResetPeriod      ResetPeriod     `validate:"omitempty,resetperiod"`
	Line             int             `validate:"-"` // 1-based source line, 0 when unknown
}

// RateRow: one earning-rate rule
type RateRow struct {
	Category    []string        `validate:"dive,notblank"`
	EarningRate decimal.Decimal `validate:"gte=0"`
	Currency    string          `validate:"-"`
	Details     string          `validate:"-"`
	Line        int             `validate:"-"` // 1-based source line, 0 when unknown
}

// CatalogRecord: one card with its benefit and rate tables
type CatalogRecord struct {
	Slug     string            `validate:"required,slug"`
	Name     string            `validate:"-"`
	Info     map[string]string `validate:"-"`
	Benefits []BenefitRow      `validate:"-"`
	Rates    []RateRow         `validate:"-"`
}

// TaxonomyMap maps a detailed category leaf to its high-level group.
type TaxonomyMap map[string]string

// Group returns the high-level group for leaf.
func (t TaxonomyMap) Group(leaf string) (string, bool) {
	g, ok := t[leaf]
	return g, ok
}

// PositionIndex maps a stale positional key ("0", "1", ...) to a benefit_id.
type PositionIndex map[string]string

// Ledger: one user's usage for one card. Values are opaque JSON.
type Ledger struct {
	UserID   string
	CardSlug string
	Entries  map[string][]byte
	Version  int64
}

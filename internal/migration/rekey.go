// internal/migration/rekey.go
package migration

import (
	"sort"
	"strconv"

	"github.com/colinjianingxie/walletfreak-sub001/internal/domain"
)

// BuildIndex maps each card slug to its position → benefit_id table.
// Positions follow catalog order; rows without an id leave a gap.
func BuildIndex(records []domain.CatalogRecord) map[string]domain.PositionIndex {
	out := make(map[string]domain.PositionIndex, len(records))
	for _, rec := range records {
		idx := make(domain.PositionIndex, len(rec.Benefits))
		for i, b := range rec.Benefits {
			if id, ok := b.BenefitID.Get(); ok {
				idx[strconv.Itoa(i)] = id
			}
		}
		out[rec.Slug] = idx
	}
	return out
}

// Result is the outcome of rekeying one ledger.
type Result struct {
	Entries   map[string][]byte
	Migrated  int // positional keys moved to a benefit_id
	Preserved int // keys with no known position, copied unchanged
	Conflicts int // positional keys whose benefit_id key already existed
}

func (r Result) Changed() bool {
	return r.Migrated > 0
}

// Rekey rewrites positional keys to benefit_ids. Nothing is dropped: a key
// that is not a known position is copied as-is (it may already be an id, or
// point at a removed benefit), and a positional key whose target id is
// already present in the ledger keeps its original key. Running Rekey on its
// own output changes nothing.
func Rekey(entries map[string][]byte, index domain.PositionIndex) Result {
	res := Result{Entries: make(map[string][]byte, len(entries))}

	var positional []string
	for k, v := range entries {
		if _, ok := index[k]; ok {
			positional = append(positional, k)
			continue
		}
		res.Entries[k] = v
		res.Preserved++
	}

	// numeric order so conflicts resolve the same way on every run
	sort.Slice(positional, func(i, j int) bool {
		a, _ := strconv.Atoi(positional[i])
		b, _ := strconv.Atoi(positional[j])
		return a < b
	})

	for _, k := range positional {
		id := index[k]
		_, inLedger := entries[id]
		_, placed := res.Entries[id]
		if inLedger || placed {
			res.Entries[k] = entries[k]
			res.Conflicts++
			continue
		}
		res.Entries[id] = entries[k]
		res.Migrated++
	}
	return res
}

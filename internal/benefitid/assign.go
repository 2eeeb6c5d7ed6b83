// internal/benefitid/assign.go
package benefitid

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/colinjianingxie/walletfreak-sub001/internal/domain"
)

// fallbackBase is used when neither description yields a slug.
const fallbackBase = "benefit"

// maxSuffix bounds the collision loop.
const maxSuffix = 1 << 20

var ErrIDCollisionExhausted = errors.New("benefitid: no free identifier left for candidate")

// Assign gives every benefit row without a benefit_id one derived from its
// description and reports whether anything changed. Existing ids are never
// touched, so re-running on an unchanged record is a no-op. Rows are
// handled in catalog order; a collision takes the first free "-N" suffix.
func Assign(rec *domain.CatalogRecord) (bool, error) {
	taken := make(map[string]struct{}, len(rec.Benefits))
	for i, b := range rec.Benefits {
		id, ok := b.BenefitID.Get()
		if !ok {
			continue
		}
		if _, dup := taken[id]; dup {
			slog.Warn("Duplicate benefit_id in catalog", "card", rec.Slug, "benefit_id", id, "row", i)
		}
		taken[id] = struct{}{}
	}

	changed := false
	for i := range rec.Benefits {
		b := &rec.Benefits[i]
		if b.BenefitID.IsSet() {
			continue
		}
		id, err := claim(candidate(*b), taken)
		if err != nil {
			return changed, fmt.Errorf("%s benefit row %d: %w", rec.Slug, i, err)
		}
		b.BenefitID = domain.SomeID(id)
		changed = true
		slog.Debug("Assigned benefit_id", "card", rec.Slug, "row", i, "benefit_id", id)
	}
	return changed, nil
}

func candidate(b domain.BenefitRow) string {
	if s := Slugify(b.DescriptionShort); s != "" {
		return s
	}
	if s := Slugify(b.Description); s != "" {
		return s
	}
	return fallbackBase
}

// claim registers and returns the first free id among base, base-1, base-2...
func claim(base string, taken map[string]struct{}) (string, error) {
	id := base
	for n := 1; ; n++ {
		if _, used := taken[id]; !used {
			taken[id] = struct{}{}
			return id, nil
		}
		if n > maxSuffix {
			return "", fmt.Errorf("%w %q", ErrIDCollisionExhausted, base)
		}
		id = base + "-" + strconv.Itoa(n)
	}
}

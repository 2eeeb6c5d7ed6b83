// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/colinjianingxie/walletfreak-sub001/internal/benefitid"
	"github.com/colinjianingxie/walletfreak-sub001/internal/catalog"
	"github.com/colinjianingxie/walletfreak-sub001/internal/domain"
	"github.com/colinjianingxie/walletfreak-sub001/internal/taxonomy"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Records returns the typed records of docs, in order.
func Records(docs []*catalog.Document) []domain.CatalogRecord {
	out := make([]domain.CatalogRecord, len(docs))
	for i, d := range docs {
		out[i] = d.Record
	}
	return out
}

// Audit collects the parse findings of every document and runs the
// taxonomy auditor over each card in parallel. The merged report is sorted
// by card slug, then discovery order, so it does not depend on scheduling.
func Audit(ctx context.Context, docs []*catalog.Document, auditor *taxonomy.Auditor, workers int) (domain.Report, error) {
	perCard := make([]domain.Report, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, doc := range docs {
		i, doc := i, doc // per-iteration copies (go.mod targets go 1.21)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var r domain.Report
			for _, f := range doc.Findings {
				r.Add(f)
			}
			r.Merge(auditor.AuditCard(doc.Record))
			perCard[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Report{}, err
	}

	var report domain.Report
	for _, r := range perCard {
		report.Merge(r)
	}
	report.Sort()
	return report, nil
}

// AssignStats summarises an assign-ids run.
type AssignStats struct {
	Cards    int
	Changed  []string // slugs with newly assigned ids
	Assigned int
	Written  int
}

// AssignIDs runs the stable-id assigner over every document, one goroutine
// per file at most, and saves changed files unless dryRun is set. A file
// that fails is left untouched and reported; the others carry on.
func AssignIDs(ctx context.Context, docs []*catalog.Document, dryRun bool, workers int) (*AssignStats, error) {
	stats := &AssignStats{Cards: len(docs)}
	var (
		mu   sync.Mutex
		errs error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for _, doc := range docs {
		doc := doc // per-iteration copy (go.mod targets go 1.21)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			before := countIDs(doc.Record)
			changed, err := benefitid.Assign(&doc.Record)
			if err == nil && changed && !dryRun {
				err = doc.Save()
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Error("Failed to assign benefit ids", "card", doc.Record.Slug, "file", doc.Path, "error", err)
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", doc.Path, err))
				return nil
			}
			if !changed {
				return nil
			}
			n := countIDs(doc.Record) - before
			stats.Changed = append(stats.Changed, doc.Record.Slug)
			stats.Assigned += n
			if !dryRun {
				stats.Written++
			}
			slog.Info("Benefit ids assigned", "card", doc.Record.Slug, "new_ids", n, "dry_run", dryRun)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	sort.Strings(stats.Changed)
	return stats, errs
}

func countIDs(rec domain.CatalogRecord) int {
	n := 0
	for _, b := range rec.Benefits {
		if b.BenefitID.IsSet() {
			n++
		}
	}
	return n
}

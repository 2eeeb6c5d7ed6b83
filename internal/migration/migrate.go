// internal/migration/migrate.go
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/colinjianingxie/walletfreak-sub001/internal/domain"
	"github.com/colinjianingxie/walletfreak-sub001/internal/storage"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	DryRun    bool
	Workers   int
	Attempts  int           // store calls per ledger before it counts as failed
	BaseDelay time.Duration // first backoff step
}

// LedgerFailure is a ledger (or a user's card list) that could not be
// migrated after all attempts.
type LedgerFailure struct {
	UserID   string
	CardSlug string
	Err      error
}

func (f LedgerFailure) Error() string {
	if f.CardSlug == "" {
		return fmt.Sprintf("user %s: %v", f.UserID, f.Err)
	}
	return fmt.Sprintf("user %s card %s: %v", f.UserID, f.CardSlug, f.Err)
}

func (f LedgerFailure) Unwrap() error {
	return f.Err
}

// Stats tracks migration progress
type Stats struct {
	RunID         string
	DryRun        bool
	Users         int
	Ledgers       int
	Rewritten     int // written back, or would be in a dry run
	Unchanged     int
	UnknownCards  int
	KeysMigrated  int
	KeysPreserved int
	Conflicts     int
	Interrupted   bool
	Failures      []LedgerFailure
	StartTime     time.Time
	EndTime       time.Time

	mu sync.Mutex
}

// Err combines every recorded failure, or nil.
func (s *Stats) Err() error {
	var err error
	for _, f := range s.Failures {
		err = multierr.Append(err, f)
	}
	return err
}

func (s *Stats) fail(f LedgerFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failures = append(s.Failures, f)
}

func (s *Stats) interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Interrupted = true
}

func (s *Stats) record(res Result, skipped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if skipped {
		s.UnknownCards++
		return
	}
	s.Ledgers++
	s.KeysMigrated += res.Migrated
	s.KeysPreserved += res.Preserved
	s.Conflicts += res.Conflicts
	if res.Changed() {
		s.Rewritten++
	} else {
		s.Unchanged++
	}
}

// Migrator rekeys every user's usage ledgers from list positions to
// benefit_ids.
type Migrator struct {
	store storage.LedgerStore
	index map[string]domain.PositionIndex
	opts  Options
}

func NewMigrator(store storage.LedgerStore, index map[string]domain.PositionIndex, opts Options) *Migrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 100 * time.Millisecond
	}
	return &Migrator{store: store, index: index, opts: opts}
}

func (m *Migrator) backoff() retry.Backoff {
	b := retry.NewExponential(m.opts.BaseDelay)
	b = retry.WithJitterPercent(10, b)
	return retry.WithMaxRetries(uint64(m.opts.Attempts-1), b)
}

// Run migrates all users. Once ctx is cancelled no new user is started;
// ledgers already in flight finish with their own context. The returned
// error is only set when the user list itself cannot be read; per-ledger
// failures are collected in Stats.
func (m *Migrator) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		RunID:     uuid.NewString(),
		DryRun:    m.opts.DryRun,
		StartTime: time.Now(),
	}
	log := slog.With("run_id", stats.RunID, "dry_run", m.opts.DryRun)

	var users []string
	err := retry.Do(ctx, m.backoff(), func(ctx context.Context) error {
		var err error
		users, err = m.store.ListUsers(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("list users: %w", err)
	}
	stats.Users = len(users)
	log.Info("Starting usage migration", "users", len(users))

	var g errgroup.Group
	g.SetLimit(m.opts.Workers)
	for _, userID := range users {
		userID := userID // per-iteration copy (go.mod targets go 1.21)
		if ctx.Err() != nil {
			stats.interrupt()
			log.Warn("Shutdown requested, not starting remaining users")
			break
		}
		// Go blocks while every worker is busy; shutdown may arrive meanwhile
		g.Go(func() error {
			if ctx.Err() != nil {
				stats.interrupt()
				return nil
			}
			m.migrateUser(context.WithoutCancel(ctx), log, userID, stats)
			return nil
		})
	}
	_ = g.Wait()

	stats.EndTime = time.Now()
	log.Info("Usage migration finished",
		"ledgers", stats.Ledgers,
		"rewritten", stats.Rewritten,
		"keys_migrated", stats.KeysMigrated,
		"conflicts", stats.Conflicts,
		"failures", len(stats.Failures),
		"elapsed", stats.EndTime.Sub(stats.StartTime))
	return stats, nil
}

// migrateUser walks one user's cards sequentially, so no two goroutines
// ever touch the same ledger.
func (m *Migrator) migrateUser(ctx context.Context, log *slog.Logger, userID string, stats *Stats) {
	var cards []string
	err := retry.Do(ctx, m.backoff(), func(ctx context.Context) error {
		var err error
		cards, err = m.store.ListCards(ctx, userID)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to list cards", "user_id", userID, "error", err)
		stats.fail(LedgerFailure{UserID: userID, Err: err})
		return
	}

	for _, slug := range cards {
		idx, known := m.index[slug]
		if !known {
			log.Debug("Card not in catalog, ledger left as is", "user_id", userID, "card", slug)
			stats.record(Result{}, true)
			continue
		}

		res, err := m.MigrateLedger(ctx, userID, slug, idx)
		if err != nil {
			log.Error("Failed to migrate ledger", "user_id", userID, "card", slug, "error", err)
			stats.fail(LedgerFailure{UserID: userID, CardSlug: slug, Err: err})
			continue
		}
		if res.Conflicts > 0 {
			log.Warn("Positional keys kept because their benefit_id already exists",
				"user_id", userID, "card", slug, "conflicts", res.Conflicts)
		}
		if res.Changed() {
			log.Info("Ledger rekeyed", "user_id", userID, "card", slug, "migrated", res.Migrated, "preserved", res.Preserved)
		}
		stats.record(res, false)
	}
}

// MigrateLedger reads one ledger, rekeys it and writes it back when a key
// changed (never in a dry run). A version conflict or store error re-runs
// the whole read/rekey/write cycle within the retry budget.
func (m *Migrator) MigrateLedger(ctx context.Context, userID, slug string, idx domain.PositionIndex) (Result, error) {
	var res Result
	err := retry.Do(ctx, m.backoff(), func(ctx context.Context) error {
		ledger, err := m.store.ReadUsage(ctx, userID, slug)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				res = Result{Entries: map[string][]byte{}}
				return nil
			}
			return retry.RetryableError(fmt.Errorf("read usage: %w", err))
		}

		res = Rekey(ledger.Entries, idx)
		if !res.Changed() || m.opts.DryRun {
			return nil
		}

		next := *ledger
		next.Entries = res.Entries
		if err := m.store.WriteUsage(ctx, next); err != nil {
			return retry.RetryableError(fmt.Errorf("write usage: %w", err))
		}
		return nil
	})
	return res, err
}

// cmd/catalog/migrate.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/colinjianingxie/walletfreak-sub001/internal/config"
	"github.com/colinjianingxie/walletfreak-sub001/internal/migration"
	"github.com/colinjianingxie/walletfreak-sub001/internal/pipeline"
	"github.com/colinjianingxie/walletfreak-sub001/internal/storage"
	"github.com/colinjianingxie/walletfreak-sub001/internal/storage/postgres"
	"github.com/colinjianingxie/walletfreak-sub001/internal/storage/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var (
	migrateDryRun  bool
	migrateExecute bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate-usage",
	Short: "Rekey usage ledgers from list positions to benefit ids",
	Long: `migrate-usage rewrites every user's per-card usage ledger so entries keyed by
a benefit's position in the catalog are keyed by its benefit_id instead.
Unknown keys are kept as they are. Without --execute nothing is written.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", true, "compute the rewrite without writing (default)")
	migrateCmd.Flags().BoolVar(&migrateExecute, "execute", false, "write rekeyed ledgers back to the store")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if migrateExecute && cmd.Flags().Changed("dry-run") && migrateDryRun {
		return errors.New("--dry-run and --execute are mutually exclusive")
	}
	dryRun := !migrateExecute

	docs, err := loadCatalog(ctx)
	if err != nil {
		// an incomplete index would leave those cards' ledgers positional
		return fmt.Errorf("refusing to migrate with an incomplete catalog: %w", err)
	}
	records := pipeline.Records(docs)
	for _, rec := range records {
		for i, b := range rec.Benefits {
			if !b.BenefitID.IsSet() {
				slog.Warn("Benefit without id, its usage stays positional; run assign-ids first",
					"card", rec.Slug, "row", i)
			}
		}
	}
	index := migration.BuildIndex(records)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	m := migration.NewMigrator(store, index, migration.Options{
		DryRun:    dryRun,
		Workers:   cfg.Workers,
		Attempts:  cfg.RetryAttempts,
		BaseDelay: cfg.RetryBaseDelay,
	})
	stats, err := m.Run(ctx)
	if err != nil {
		return err
	}

	slog.Info("Migration summary",
		"run_id", stats.RunID,
		"dry_run", stats.DryRun,
		"users", stats.Users,
		"ledgers", stats.Ledgers,
		"rewritten", stats.Rewritten,
		"unchanged", stats.Unchanged,
		"unknown_cards", stats.UnknownCards,
		"keys_migrated", stats.KeysMigrated,
		"keys_preserved", stats.KeysPreserved,
		"conflicts", stats.Conflicts,
		"failures", len(stats.Failures))

	if err := stats.Err(); err != nil {
		return fmt.Errorf("%d ledger(s) failed: %w", len(stats.Failures), err)
	}
	if stats.Interrupted {
		return errors.New("migration interrupted before every user was processed")
	}
	return nil
}

// openStore connects to the ledger store selected by LEDGER_DRIVER.
func openStore(ctx context.Context, cfg config.Config) (storage.LedgerStore, func(), error) {
	switch cfg.LedgerDriver {
	case config.DriverSQLite:
		s, err := sqlite.NewStorage(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("Using SQLite ledger store", "path", cfg.SQLitePath)
		return s, func() { s.Close() }, nil

	default:
		pool, err := pgxpool.New(ctx, cfg.DBConn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		slog.Info("Connected to PostgreSQL ledger store")
		return postgres.NewStorage(pool), pool.Close, nil
	}
}

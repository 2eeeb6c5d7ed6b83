// cmd/catalog/root.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/colinjianingxie/walletfreak-sub001/internal/catalog"
	"github.com/colinjianingxie/walletfreak-sub001/internal/config"
	"github.com/spf13/cobra"
)

// errFindings makes the process exit non-zero after the report has already
// been logged.
var errFindings = errors.New("catalog audit reported findings")

var (
	cfg config.Config

	catalogDir   string
	taxonomyPath string
	workers      int
)

var rootCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Card catalog ingestion and benefit id tooling",
	Long: `catalog validates card benefit/rate files against the category taxonomy,
assigns stable benefit ids and migrates user usage ledgers onto those ids.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&catalogDir, "catalog-dir", "", "directory of card files (overrides CATALOG_DIR)")
	rootCmd.PersistentFlags().StringVar(&taxonomyPath, "taxonomy", "", "taxonomy JSON file (overrides TAXONOMY_PATH)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 0, "parallel workers (overrides WORKERS)")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(assignCmd)
	rootCmd.AddCommand(migrateCmd)
}

func initConfig() {
	cfg = config.MustLoad()
	if catalogDir != "" {
		cfg.CatalogDir = catalogDir
	}
	if taxonomyPath != "" {
		cfg.TaxonomyPath = taxonomyPath
	}
	if workers > 0 {
		cfg.Workers = workers
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)
}

// loadCatalog parses the catalog directory. Files that fail to parse are
// left out and reported in the error; the rest are still returned.
func loadCatalog(ctx context.Context) ([]*catalog.Document, error) {
	dir := catalog.Dir{Path: cfg.CatalogDir, Ext: cfg.CatalogExt}
	docs, err := dir.Load(ctx, cfg.Workers)
	if err != nil && docs == nil {
		return nil, err
	}
	slog.Info("Catalog loaded", "dir", cfg.CatalogDir, "cards", len(docs))
	if err != nil {
		return docs, fmt.Errorf("load catalog: %w", err)
	}
	return docs, nil
}

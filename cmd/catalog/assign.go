// cmd/catalog/assign.go
package main

import (
	"log/slog"

	"github.com/colinjianingxie/walletfreak-sub001/internal/pipeline"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var assignDryRun bool

var assignCmd = &cobra.Command{
	Use:   "assign-ids",
	Short: "Give every benefit row a stable benefit_id",
	Long: `assign-ids derives a benefit_id from the short description of every benefit
row that has none and writes the changed card files back atomically. Existing
ids are never changed.`,
	Args: cobra.NoArgs,
	RunE: runAssign,
}

func init() {
	assignCmd.Flags().BoolVar(&assignDryRun, "dry-run", false, "report the ids that would be assigned without writing files")
}

func runAssign(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	docs, loadErr := loadCatalog(ctx)
	if docs == nil {
		return loadErr
	}

	stats, err := pipeline.AssignIDs(ctx, docs, assignDryRun, cfg.Workers)
	slog.Info("Benefit id assignment finished",
		"cards", stats.Cards,
		"changed", len(stats.Changed),
		"ids_assigned", stats.Assigned,
		"files_written", stats.Written,
		"dry_run", assignDryRun)

	return multierr.Append(loadErr, err)
}

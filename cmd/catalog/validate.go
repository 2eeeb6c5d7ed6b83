// cmd/catalog/validate.go
package main

import (
	"fmt"
	"log/slog"

	"github.com/colinjianingxie/walletfreak-sub001/internal/pipeline"
	"github.com/colinjianingxie/walletfreak-sub001/internal/report"
	"github.com/colinjianingxie/walletfreak-sub001/internal/taxonomy"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var csvPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse the catalog and check categories against the taxonomy",
	Long: `validate parses every card file, maps benefit and rate categories onto the
taxonomy and reports unmapped categories, illegal duplicate rate groups and
malformed rows. It exits non-zero when anything is reported.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&csvPath, "csv", "", "also write findings as CSV to this path")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	docs, loadErr := loadCatalog(ctx)
	if docs == nil {
		return loadErr
	}

	tax, err := taxonomy.Load(cfg.TaxonomyPath)
	if err != nil {
		return err
	}
	slog.Debug("Taxonomy loaded", "path", cfg.TaxonomyPath, "leaves", len(tax))

	auditor := taxonomy.NewAuditor(tax, cfg.DuplicateAllowGroups)
	rep, err := pipeline.Audit(ctx, docs, auditor, cfg.Workers)
	if err != nil {
		return err
	}
	report.Log(slog.Default(), rep)

	if csvPath != "" {
		if err := report.SaveCSV(csvPath, rep); err != nil {
			loadErr = multierr.Append(loadErr, err)
		} else {
			slog.Info("Findings written", "path", csvPath, "findings", len(rep.Findings))
		}
	}

	if loadErr != nil {
		return loadErr
	}
	if !rep.OK() {
		return fmt.Errorf("%w: %d", errFindings, len(rep.Findings))
	}
	return nil
}

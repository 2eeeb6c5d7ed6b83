// internal/report/report.go
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/colinjianingxie/walletfreak-sub001/internal/domain"
	"github.com/jszwec/csvutil"
)

// Log writes one line per finding and a summary line.
func Log(logger *slog.Logger, r domain.Report) {
	for _, f := range r.Findings {
		attrs := []any{"kind", f.Kind, "card", f.Card, "section", f.Section}
		if f.Line > 0 {
			attrs = append(attrs, "line", f.Line)
		}
		if f.Category != "" {
			attrs = append(attrs, "category", f.Category)
		}
		if f.Group != "" {
			attrs = append(attrs, "group", f.Group)
		}
		if f.Excerpt != "" {
			attrs = append(attrs, "excerpt", f.Excerpt)
		}
		logger.Warn(f.Message, attrs...)
	}

	summary := []any{
		"findings", len(r.Findings),
		"unmapped_benefits", r.UnmappedBenefits,
		"unmapped_rates", r.UnmappedRates,
		"illegal_duplicates", r.IllegalDuplicates,
		"parse_issues", r.ParseIssues,
	}
	if r.OK() {
		logger.Info("Catalog audit passed", summary...)
		return
	}
	logger.Error("Catalog audit failed", summary...)
}

// WriteCSV encodes the findings with a header row.
func WriteCSV(w io.Writer, r domain.Report) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(r.Findings) == 0 {
		if err := enc.EncodeHeader(domain.Finding{}); err != nil {
			return fmt.Errorf("encode csv header: %w", err)
		}
	}
	for _, f := range r.Findings {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encode finding: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the findings to path.
func SaveCSV(path string, r domain.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := WriteCSV(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

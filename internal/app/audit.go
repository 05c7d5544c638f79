package app

import (
	"context"
	"fmt"

	"asset-insights/internal/classify"
	"asset-insights/internal/export"
	"asset-insights/internal/remediate"
	"asset-insights/internal/storage"
)

const defaultAuditWidth = 100

// Audit prints the report of the last run. The published run is read from
// the database when one is configured, otherwise the markdown written by
// prepare is used.
func (a *App) Audit(ctx context.Context, opts AuditOptions) error {
	md, err := a.loadAudit(ctx)
	if err != nil {
		return err
	}

	if opts.Raw {
		_, err := fmt.Fprint(a.Out, md)
		return err
	}

	width := opts.Width
	if width <= 0 {
		width = defaultAuditWidth
	}
	rendered, err := export.RenderMarkdown(md, opts.Style, width)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(a.Out, rendered)
	return err
}

func (a *App) loadAudit(ctx context.Context) (string, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return "", err
	}
	if store == nil {
		md, err := export.ReadAudit(a.Config.Output.AuditPath)
		if err != nil {
			return "", fmt.Errorf("read audit report: %w", err)
		}
		return md, nil
	}
	defer closeStore()

	run, err := store.LatestRun(ctx)
	if err != nil {
		return "", err
	}
	records, err := store.ListExclusions(ctx, run.RunID)
	if err != nil {
		return "", err
	}
	return publishedReport(run, records).Markdown(), nil
}

func publishedReport(run storage.RunRecord, records []storage.ExclusionRecord) export.AuditReport {
	excluded := make([]remediate.Exclusion, 0, len(records))
	for _, rec := range records {
		class, err := classify.ParseAssetClass(rec.AssetClass)
		if err != nil {
			class = classify.AssetClass(rec.AssetClass)
		}
		excluded = append(excluded, remediate.Exclusion{
			Ticker:          rec.Ticker,
			Class:           class,
			Missing:         rec.Missing,
			Total:           rec.Total,
			MissingFraction: rec.MissingFraction.InexactFloat64(),
			Reason:          remediate.Reason(rec.Reason),
		})
	}

	return export.AuditReport{
		RunID:          run.RunID.String(),
		Source:         run.InputPath,
		StartedAt:      run.StartedAt,
		Duration:       run.FinishedAt.Sub(run.StartedAt),
		RowsRead:       run.RowsIn,
		RowsOut:        run.RowsOut,
		InstrumentsOut: run.InstrumentsOut,
		Excluded:       excluded,
	}
}

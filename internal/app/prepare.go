package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"asset-insights/internal/export"
	"asset-insights/internal/metrics"
	"asset-insights/internal/notify"
	"asset-insights/internal/pipeline"
	"asset-insights/internal/storage"
)

// Prepare runs the pipeline over the raw input and writes the enriched table,
// the optional workbook, and the audit report. The files are renamed into
// place only after every write and the optional publish succeed.
func (a *App) Prepare(ctx context.Context, opts PrepareOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts = a.resolvePrepareOptions(opts)
	if opts.Input == "" {
		return errors.New("no input file configured")
	}

	started := time.Now().UTC()
	recorder := metrics.NewRecorder()

	res, err := a.prepare(ctx, opts)
	if err != nil {
		recorder.ObserveFailure(time.Now())
		a.writeMetrics(recorder)
		a.notify(ctx, notify.Summary{
			Source:    opts.Input,
			StartedAt: started,
			Duration:  time.Since(started),
			Err:       err,
		})
		return err
	}

	recorder.ObserveRun(res)
	a.writeMetrics(recorder)
	a.notify(ctx, summarize(res, opts.Input))

	a.Logger.Info().
		Str("run_id", res.RunID.String()).
		Str("output", opts.Output).
		Int("rows", len(res.Rows)).
		Int("instruments", res.Instruments()).
		Int("excluded", len(res.Excluded)).
		Msg("prepare finished")
	return nil
}

func (a *App) resolvePrepareOptions(opts PrepareOptions) PrepareOptions {
	if opts.Input == "" {
		opts.Input = a.Config.Input.Path
	}
	if opts.Output == "" {
		opts.Output = a.Config.Output.Path
	}
	if opts.XLSXPath == "" {
		opts.XLSXPath = a.Config.Output.XLSXPath
	}
	if opts.AuditPath == "" {
		opts.AuditPath = a.Config.Output.AuditPath
	}
	return opts
}

func (a *App) prepare(ctx context.Context, opts PrepareOptions) (*pipeline.Result, error) {
	if opts.Output == "" {
		return nil, errors.New("no output path configured")
	}
	if opts.Publish && a.Config.Database.DSN == "" {
		return nil, errors.New("database not configured; cannot publish")
	}

	maps, err := a.loadMaps()
	if err != nil {
		return nil, err
	}

	runner := a.newRunner(maps, opts.Workers)
	res, err := runner.RunFile(ctx, a.newNormalizer(), opts.Input)
	if err != nil {
		return nil, err
	}

	// Artifacts stay staged until publishing succeeds.
	var batch export.Batch
	defer batch.Discard()

	if err := batch.CSV(opts.Output, res.Rows); err != nil {
		return nil, fmt.Errorf("write enriched csv: %w", err)
	}
	if opts.XLSXPath != "" {
		if err := batch.XLSX(opts.XLSXPath, res.Rows); err != nil {
			return nil, fmt.Errorf("write enriched workbook: %w", err)
		}
	}
	if opts.AuditPath != "" {
		if err := batch.Audit(opts.AuditPath, export.NewAuditReport(res, opts.Input)); err != nil {
			return nil, fmt.Errorf("write audit report: %w", err)
		}
	}

	if opts.Publish {
		if err := a.publish(ctx, res, opts.Input); err != nil {
			return nil, err
		}
	}
	if err := batch.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

func (a *App) publish(ctx context.Context, res *pipeline.Result, source string) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot publish")
	}
	defer closeStore()

	if a.Config.Database.PublishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Config.Database.PublishTimeout)
		defer cancel()
	}

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	unlock, acquired, err := store.TryAdvisoryLock(ctx, a.Config.Database.AdvisoryLockKey)
	if err != nil {
		return err
	}
	if !acquired {
		return storage.ErrLocked
	}
	defer unlock()

	run, exclusions := runRecords(res, source)
	if err := store.PublishRun(ctx, run, exclusions, res.Rows); err != nil {
		return err
	}

	a.Logger.Info().
		Str("run_id", run.RunID.String()).
		Int("rows", run.RowsOut).
		Msg("enriched table published")
	return nil
}

func runRecords(res *pipeline.Result, source string) (storage.RunRecord, []storage.ExclusionRecord) {
	run := storage.RunRecord{
		RunID:          res.RunID,
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
		InputPath:      source,
		RowsIn:         res.Ingest.RowsRead,
		RowsOut:        len(res.Rows),
		InstrumentsOut: res.Instruments(),
		Excluded:       len(res.Excluded),
	}

	exclusions := make([]storage.ExclusionRecord, 0, len(res.Excluded))
	for _, ex := range res.Excluded {
		exclusions = append(exclusions, storage.ExclusionRecord{
			Ticker:          ex.Ticker,
			AssetClass:      ex.Class.Label(),
			MissingFraction: decimal.NewFromFloat(ex.MissingFraction).Round(6),
			Missing:         ex.Missing,
			Total:           ex.Total,
			Reason:          string(ex.Reason),
		})
	}
	return run, exclusions
}

func summarize(res *pipeline.Result, source string) notify.Summary {
	excluded := make(map[string]float64, len(res.Excluded))
	for _, ex := range res.Excluded {
		excluded[ex.Ticker] = ex.MissingFraction
	}
	return notify.Summary{
		RunID:       res.RunID.String(),
		Source:      source,
		StartedAt:   res.StartedAt,
		Duration:    res.Duration(),
		RowsRead:    res.Ingest.RowsRead,
		RowsOut:     len(res.Rows),
		Instruments: res.Instruments(),
		Excluded:    excluded,
	}
}

func (a *App) notify(ctx context.Context, summary notify.Summary) {
	notifier := a.newNotifier()
	if notifier == nil {
		return
	}
	// A cancelled run still reports its failure.
	ctx = context.WithoutCancel(ctx)
	if err := notifier.Notify(ctx, summary); err != nil {
		a.Logger.Error().Err(err).Msg("send run summary")
	}
}

func (a *App) writeMetrics(recorder *metrics.Recorder) {
	path := a.Config.Metrics.Textfile
	if path == "" {
		return
	}
	if err := recorder.WriteTextfile(path); err != nil {
		a.Logger.Error().Err(err).Str("path", path).Msg("write metrics")
	}
}

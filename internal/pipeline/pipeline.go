// Package pipeline runs the cleaning and feature stages end to end over an
// in-memory Frame.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"asset-insights/internal/assemble"
	"asset-insights/internal/benchmark"
	"asset-insights/internal/classify"
	"asset-insights/internal/dataset"
	"asset-insights/internal/features"
	"asset-insights/internal/ingest"
	"asset-insights/internal/remediate"
	"asset-insights/internal/workpool"
)

// Stage names used for timings and metrics.
const (
	StageIngest    = "ingest"
	StageRemediate = "remediate"
	StageFeatures  = "features"
	StageAssemble  = "assemble"
)

// Options configure a Runner.
type Options struct {
	Workers    int
	Thresholds remediate.Thresholds
	Features   features.Options
}

// StageTiming records the wall time of one stage.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Result is everything a run produced.
type Result struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time

	Ingest   ingest.Report
	Excluded []remediate.Exclusion
	Fills    []remediate.FillStats
	Rows     []dataset.EnrichedRow

	Coverage []dataset.Coverage
	Before   dataset.PriceSummary
	After    dataset.PriceSummary
	Timings  []StageTiming
}

// Instruments counts the distinct tickers in Rows.
func (r *Result) Instruments() int {
	n := 0
	for i := range r.Rows {
		if i == 0 || r.Rows[i].Ticker != r.Rows[i-1].Ticker {
			n++
		}
	}
	return n
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Runner wires the stages together around one set of Classification Maps.
type Runner struct {
	maps   *classify.Maps
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// NewRunner constructs a Runner.
func NewRunner(maps *classify.Maps, opts Options, logger zerolog.Logger) *Runner {
	return &Runner{
		maps:   maps,
		opts:   opts,
		logger: logger.With().Str("component", "pipeline").Logger(),
		now:    time.Now,
	}
}

// Run transforms a normalised frame into the enriched table. The frame is
// not modified. Classification completeness is checked before any stage
// runs.
func (r *Runner) Run(ctx context.Context, frame *dataset.Frame, report ingest.Report) (*Result, error) {
	res := &Result{
		RunID:     uuid.New(),
		StartedAt: r.now().UTC(),
		Ingest:    report,
		Coverage:  frame.Coverage(),
		Before:    frame.Summary(),
	}
	logger := r.logger.With().Str("run_id", res.RunID.String()).Logger()

	if err := r.maps.CheckComplete(frame.Tickers()); err != nil {
		return nil, fmt.Errorf("check classification: %w", err)
	}

	logger.Info().
		Int("rows", frame.Len()).
		Int("instruments", len(frame.Spans)).
		Int("workers", workpool.Size(r.opts.Workers, len(frame.Spans))).
		Msg("pipeline started")

	// Phase A: every fill completes before the reference table is read.
	start := time.Now()
	engine := remediate.NewEngine(r.opts.Thresholds, r.maps, logger)
	cleaned, err := engine.Run(ctx, frame, r.opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("remediate: %w", err)
	}
	res.Excluded = cleaned.Excluded
	res.Fills = cleaned.Fills
	res.After = cleaned.Frame.Summary()
	res.Timings = append(res.Timings, StageTiming{StageRemediate, time.Since(start)})

	// Phase B.
	start = time.Now()
	table := benchmark.BuildTable(cleaned.Frame, r.maps)
	scorer := benchmark.NewScorer(table, r.maps, logger)
	out := cleaned.Frame

	feats := make([]features.Series, len(out.Spans))
	scores := make([]benchmark.Scores, len(out.Spans))
	err = workpool.Run(ctx, r.opts.Workers, len(out.Spans), func(_ context.Context, i int) error {
		span := out.Spans[i]
		dates, prices, valid := out.Series(span)
		feats[i] = features.Compute(span.Ticker, dates, prices, valid, r.opts.Features)
		sc, err := scorer.Score(span.Ticker, dates, prices, valid)
		if err != nil {
			return err
		}
		scores[i] = sc
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("derive features: %w", err)
	}
	res.Timings = append(res.Timings, StageTiming{StageFeatures, time.Since(start)})

	start = time.Now()
	rows, err := assemble.Assemble(assemble.Input{
		Frame:    out,
		Features: feats,
		Scores:   scores,
		Maps:     r.maps,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble: %w", err)
	}
	res.Rows = rows
	res.Timings = append(res.Timings, StageTiming{StageAssemble, time.Since(start)})
	res.FinishedAt = r.now().UTC()

	logger.Info().
		Int("rows_out", len(rows)).
		Int("instruments_out", res.Instruments()).
		Int("excluded", len(res.Excluded)).
		Dur("elapsed", res.Duration()).
		Msg("pipeline finished")
	return res, nil
}

// RunFile reads path through the normalizer and runs the pipeline on it.
func (r *Runner) RunFile(ctx context.Context, normalizer *ingest.Normalizer, path string) (*Result, error) {
	start := time.Now()
	frame, report, err := normalizer.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	elapsed := time.Since(start)

	res, err := r.Run(ctx, frame, report)
	if err != nil {
		return nil, err
	}
	res.Timings = append([]StageTiming{{StageIngest, elapsed}}, res.Timings...)
	return res, nil
}

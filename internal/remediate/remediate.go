// Package remediate decides which instruments survive their missing prices
// and gap-fills the survivors.
package remediate

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"asset-insights/internal/classify"
	"asset-insights/internal/dataset"
	"asset-insights/internal/workpool"
)

// Reason explains an instrument-level exclusion.
type Reason string

const (
	ReasonOverThreshold Reason = "missing_over_threshold"
	ReasonNoPrices      Reason = "no_prices"
)

// Thresholds is the maximum tolerated missing fraction per asset class. A
// series is excluded when its fraction is strictly greater.
type Thresholds map[classify.AssetClass]float64

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		classify.Crypto: 0.50,
		classify.Equity: 0.60,
		classify.ETF:    0.60,
	}
}

// Exclusion is one audit entry.
type Exclusion struct {
	Ticker          string
	Class           classify.AssetClass
	Missing         int
	Total           int
	MissingFraction float64
	Reason          Reason
}

// FillStats counts the cells each fill direction wrote for one instrument.
type FillStats struct {
	Ticker   string
	Forward  int
	Backward int
}

// Result is the outcome of a remediation run.
type Result struct {
	Frame    *dataset.Frame
	Excluded []Exclusion
	Fills    []FillStats
}

// FilledCells sums every fill.
func (r Result) FilledCells() int {
	n := 0
	for _, f := range r.Fills {
		n += f.Forward + f.Backward
	}
	return n
}

// Engine applies the class-aware drop decision and the fill.
type Engine struct {
	thresholds Thresholds
	maps       *classify.Maps
	logger     zerolog.Logger
}

// NewEngine constructs an Engine. Classes missing from thresholds fall back
// to the defaults.
func NewEngine(thresholds Thresholds, maps *classify.Maps, logger zerolog.Logger) *Engine {
	merged := DefaultThresholds()
	for class, v := range thresholds {
		merged[class] = v
	}
	return &Engine{
		thresholds: merged,
		maps:       maps,
		logger:     logger.With().Str("component", "remediate").Logger(),
	}
}

// Decide computes the exclusion verdict for one series.
func (e *Engine) Decide(ticker string, class classify.AssetClass, valid []bool) (Exclusion, bool) {
	missing := 0
	for _, v := range valid {
		if !v {
			missing++
		}
	}
	total := len(valid)
	ex := Exclusion{Ticker: ticker, Class: class, Missing: missing, Total: total}
	if total > 0 {
		ex.MissingFraction = float64(missing) / float64(total)
	}

	switch {
	case missing == total:
		ex.Reason = ReasonNoPrices
		return ex, true
	case ex.MissingFraction > e.thresholds[class]:
		ex.Reason = ReasonOverThreshold
		return ex, true
	default:
		return ex, false
	}
}

// Run returns a new Frame holding only the retained instruments, with every
// null price filled. frame itself is left untouched.
func (e *Engine) Run(ctx context.Context, frame *dataset.Frame, workers int) (Result, error) {
	var (
		keep     []string
		excluded []Exclusion
	)
	for _, span := range frame.Spans {
		class, ok := e.maps.AssetClass(span.Ticker)
		if !ok {
			return Result{}, fmt.Errorf("remediate %s: %w", span.Ticker, classify.ErrIncomplete)
		}
		_, _, valid := frame.Series(span)
		if ex, drop := e.Decide(span.Ticker, class, valid); drop {
			excluded = append(excluded, ex)
			e.logger.Info().
				Str("ticker", ex.Ticker).
				Str("asset_class", string(ex.Class)).
				Float64("missing_fraction", ex.MissingFraction).
				Str("reason", string(ex.Reason)).
				Msg("instrument excluded")
			continue
		}
		keep = append(keep, span.Ticker)
	}
	sort.Slice(excluded, func(i, j int) bool { return excluded[i].Ticker < excluded[j].Ticker })

	out := frame.Keep(keep)
	fills := make([]FillStats, len(out.Spans))
	err := workpool.Run(ctx, workers, len(out.Spans), func(_ context.Context, i int) error {
		span := out.Spans[i]
		_, prices, valid := out.Series(span)
		fwd, bwd := FillSeries(prices, valid)
		fills[i] = FillStats{Ticker: span.Ticker, Forward: fwd, Backward: bwd}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("fill series: %w", err)
	}

	res := Result{Frame: out, Excluded: excluded, Fills: fills}
	e.logger.Info().
		Int("retained", len(out.Spans)).
		Int("excluded", len(excluded)).
		Int("filled_cells", res.FilledCells()).
		Msg("remediation complete")
	return res, nil
}

// FillSeries fills nulls in place: forward from the last known price, then
// backward from the first known price for a leading null run. It reports
// how many cells each pass wrote. A series without any price is left as is.
func FillSeries(prices []float64, valid []bool) (forward, backward int) {
	first := -1
	last := 0.0
	for i := range prices {
		if valid[i] {
			if first < 0 {
				first = i
			}
			last = prices[i]
			continue
		}
		if first >= 0 {
			prices[i] = last
			valid[i] = true
			forward++
		}
	}
	if first <= 0 {
		return forward, 0
	}
	for i := 0; i < first; i++ {
		prices[i] = prices[first]
		valid[i] = true
		backward++
	}
	return forward, backward
}

// Package benchmark scores instruments against the price of their benchmark
// on the same date.
package benchmark

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"

	"asset-insights/internal/classify"
	"asset-insights/internal/dataset"
)

type key struct {
	ticker string
	date   time.Time
}

// Table maps (benchmark, date) to the benchmark's remediated price. It is
// built once and only read afterwards.
type Table struct {
	prices  map[key]float64
	present map[string]bool
}

// BuildTable collects the series of every benchmark present in frame. frame
// must already be remediated.
func BuildTable(frame *dataset.Frame, maps *classify.Maps) *Table {
	t := &Table{
		prices:  make(map[key]float64),
		present: make(map[string]bool),
	}
	for _, b := range maps.Benchmarks() {
		span, ok := frame.Span(b)
		if !ok {
			continue
		}
		t.present[b] = true
		dates, prices, valid := frame.Series(span)
		for i := range dates {
			if valid[i] {
				t.prices[key{b, dates[i]}] = prices[i]
			}
		}
	}
	return t
}

// Price returns the benchmark price on date.
func (t *Table) Price(benchmark string, date time.Time) (float64, bool) {
	p, ok := t.prices[key{benchmark, date}]
	return p, ok
}

// Has reports whether the benchmark series survived remediation.
func (t *Table) Has(benchmark string) bool { return t.present[benchmark] }

// Len is the number of reference prices.
func (t *Table) Len() int { return len(t.prices) }

// Scores are the relative performance values of one series, aligned with
// its dates.
type Scores struct {
	Ticker    string
	Benchmark string
	Dates     []time.Time
	Relative  []null.Float
}

// Scorer computes relative performance against a Table.
type Scorer struct {
	table  *Table
	maps   *classify.Maps
	logger zerolog.Logger
}

// NewScorer constructs a Scorer.
func NewScorer(table *Table, maps *classify.Maps, logger zerolog.Logger) *Scorer {
	return &Scorer{
		table:  table,
		maps:   maps,
		logger: logger.With().Str("component", "benchmark").Logger(),
	}
}

// Score returns price / benchmark price × 100 for every date of the series.
// A benchmark scored against itself yields 100 wherever it has a price.
func (s *Scorer) Score(ticker string, dates []time.Time, prices []float64, valid []bool) (Scores, error) {
	bench, ok := s.maps.Benchmark(ticker)
	if !ok {
		return Scores{}, fmt.Errorf("score %s: %w", ticker, classify.ErrIncomplete)
	}

	out := Scores{
		Ticker:    ticker,
		Benchmark: bench,
		Dates:     dates,
		Relative:  make([]null.Float, len(dates)),
	}

	if bench == ticker {
		for i := range dates {
			if valid[i] {
				out.Relative[i] = null.FloatFrom(100)
			}
		}
		return out, nil
	}

	if !s.table.Has(bench) {
		s.logger.Warn().Str("ticker", ticker).Str("benchmark", bench).
			Msg("benchmark excluded, relative performance left empty")
		return out, nil
	}

	for i, d := range dates {
		if !valid[i] {
			continue
		}
		ref, ok := s.table.Price(bench, d)
		if !ok || ref == 0 {
			continue
		}
		out.Relative[i] = null.FloatFrom(prices[i] / ref * 100)
	}
	return out, nil
}

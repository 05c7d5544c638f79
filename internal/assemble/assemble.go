// Package assemble joins the stage outputs into the published table and
// checks that the join neither lost nor invented rows.
package assemble

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/guregu/null/v6"

	"asset-insights/internal/benchmark"
	"asset-insights/internal/classify"
	"asset-insights/internal/dataset"
	"asset-insights/internal/features"
)

// ErrInvariant is wrapped by every InvariantError.
var ErrInvariant = errors.New("assembly invariant violated")

// Invariant names a check performed on the joined table.
type Invariant string

const (
	InvariantRowCount   Invariant = "row_count"
	InvariantJoinKey    Invariant = "join_key"
	InvariantClassified Invariant = "classified"
	InvariantDateSpan   Invariant = "date_span"
)

// InvariantError reports a failed check and the instruments involved.
type InvariantError struct {
	Invariant Invariant
	Tickers   []string
	Detail    string
}

func (e *InvariantError) Error() string {
	msg := fmt.Sprintf("invariant %s violated", e.Invariant)
	if len(e.Tickers) > 0 {
		msg += " for " + strings.Join(e.Tickers, ", ")
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

func violation(inv Invariant, detail string, tickers ...string) *InvariantError {
	seen := make(map[string]struct{}, len(tickers))
	uniq := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		uniq = append(uniq, t)
	}
	sort.Strings(uniq)
	return &InvariantError{Invariant: inv, Tickers: uniq, Detail: detail}
}

// Input gathers the stage outputs. Features and Scores may arrive in any
// order.
type Input struct {
	Frame    *dataset.Frame
	Features []features.Series
	Scores   []benchmark.Scores
	Maps     *classify.Maps
}

// Assemble merge-joins the remediated frame with the feature and score
// series on (ticker, date). It returns either the full table sorted by key
// or an *InvariantError.
func Assemble(in Input) ([]dataset.EnrichedRow, error) {
	feats := make(map[string]features.Series, len(in.Features))
	for _, s := range in.Features {
		if _, dup := feats[s.Ticker]; dup {
			return nil, violation(InvariantJoinKey, "duplicate feature series", s.Ticker)
		}
		feats[s.Ticker] = s
	}
	scores := make(map[string]benchmark.Scores, len(in.Scores))
	for _, s := range in.Scores {
		if _, dup := scores[s.Ticker]; dup {
			return nil, violation(InvariantJoinKey, "duplicate score series", s.Ticker)
		}
		scores[s.Ticker] = s
	}

	var orphans []string
	for t := range feats {
		if _, ok := in.Frame.Span(t); !ok {
			orphans = append(orphans, t)
		}
	}
	for t := range scores {
		if _, ok := in.Frame.Span(t); !ok {
			orphans = append(orphans, t)
		}
	}
	if len(orphans) > 0 {
		return nil, violation(InvariantJoinKey, "series without remediated observations", orphans...)
	}

	rows := make([]dataset.EnrichedRow, 0, in.Frame.Len())
	for _, span := range in.Frame.Spans {
		inst, ok := in.Maps.Lookup(span.Ticker)
		if !ok || inst.Benchmark == "" {
			return nil, violation(InvariantClassified, "instrument absent from classification", span.Ticker)
		}

		f, okF := feats[span.Ticker]
		s, okS := scores[span.Ticker]
		if !okF || !okS {
			return nil, violation(InvariantJoinKey, "missing stage output", span.Ticker)
		}

		joined, err := joinSeries(in.Frame, span, inst, f, s)
		if err != nil {
			return nil, err
		}
		rows = append(rows, joined...)
	}

	if err := validate(in.Frame, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// joinSeries walks the three date-sorted inputs of one instrument in lock
// step. Any key mismatch is a join violation.
func joinSeries(frame *dataset.Frame, span dataset.Span, inst classify.Instrument, f features.Series, s benchmark.Scores) ([]dataset.EnrichedRow, error) {
	dates, _, _ := frame.Series(span)
	if len(f.Dates) != len(dates) || len(f.Rows) != len(dates) || len(s.Dates) != len(dates) || len(s.Relative) != len(dates) {
		return nil, violation(InvariantJoinKey,
			fmt.Sprintf("row counts differ: observations=%d features=%d scores=%d", len(dates), len(f.Rows), len(s.Relative)),
			span.Ticker)
	}

	sector := null.NewString(inst.Sector, inst.Sector != "")
	out := make([]dataset.EnrichedRow, len(dates))
	for i, d := range dates {
		if !f.Dates[i].Equal(d) || !s.Dates[i].Equal(d) {
			return nil, violation(InvariantJoinKey,
				fmt.Sprintf("key mismatch at %s", dataset.Key{Ticker: span.Ticker, Date: d}),
				span.Ticker)
		}
		row := f.Rows[i]
		out[i] = dataset.EnrichedRow{
			Date:                   d,
			Ticker:                 span.Ticker,
			Price:                  frame.Price(span.Start + i),
			AssetClass:             inst.Class.Label(),
			Sector:                 sector,
			Return:                 row.Return,
			Year:                   row.Year,
			Volatility30:           row.Volatility,
			Volatility30Annualized: row.AnnualVolatility,
			DailyVolatility:        f.Whole,
			Benchmark:              s.Benchmark,
			RelativeToBenchmark:    s.Relative[i],
		}
	}
	return out, nil
}

func validate(frame *dataset.Frame, rows []dataset.EnrichedRow) error {
	if len(rows) != frame.Len() {
		return violation(InvariantRowCount, fmt.Sprintf("got %d rows, want %d", len(rows), frame.Len()))
	}

	var outside []string
	for i := 1; i < len(rows); i++ {
		if rows[i-1].Key().Compare(rows[i].Key()) >= 0 {
			return violation(InvariantJoinKey, "rows not strictly ordered by key", rows[i].Ticker)
		}
	}
	for _, span := range frame.Spans {
		if span.Len() == 0 {
			continue
		}
		first, last := frame.Dates[span.Start], frame.Dates[span.End-1]
		for _, r := range rows[span.Start:span.End] {
			if r.Ticker != span.Ticker || r.Date.Before(first) || r.Date.After(last) {
				outside = append(outside, span.Ticker)
				break
			}
		}
	}
	if len(outside) > 0 {
		return violation(InvariantDateSpan, "rows outside remediated span", outside...)
	}
	return nil
}

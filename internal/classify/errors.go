package classify

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIncomplete is matched by every CompletenessError.
var ErrIncomplete = errors.New("classification maps incomplete")

// Issue names a classification defect.
type Issue string

const (
	IssueMissingClass          Issue = "missing asset class"
	IssueMissingBenchmark      Issue = "missing benchmark"
	IssueBenchmarkUnclassified Issue = "benchmark not classified"
	IssueBenchmarkNotSelf      Issue = "benchmark does not map to itself"
)

// Problem ties an Issue to a ticker.
type Problem struct {
	Ticker string
	Issue  Issue
}

// CompletenessError reports tickers the classification maps cannot resolve.
type CompletenessError struct {
	Problems []Problem
}

func (e *CompletenessError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("%s: %s", p.Ticker, p.Issue))
	}
	return fmt.Sprintf("%s: %s", ErrIncomplete, strings.Join(parts, "; "))
}

func (e *CompletenessError) Unwrap() error { return ErrIncomplete }

// Tickers lists the distinct tickers involved, in report order.
func (e *CompletenessError) Tickers() []string {
	seen := make(map[string]struct{}, len(e.Problems))
	out := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if _, ok := seen[p.Ticker]; ok {
			continue
		}
		seen[p.Ticker] = struct{}{}
		out = append(out, p.Ticker)
	}
	return out
}

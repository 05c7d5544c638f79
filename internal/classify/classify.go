package classify

import (
	"fmt"
	"sort"
	"strings"
)

// AssetClass is the closed set of instrument families the pipeline understands.
type AssetClass string

const (
	Equity AssetClass = "Equity"
	ETF    AssetClass = "ETF"
	Crypto AssetClass = "Crypto"
)

// ParseAssetClass accepts the canonical names as well as the labels used in
// the published dataset ("Action" for equities).
func ParseAssetClass(s string) (AssetClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equity", "action", "stock":
		return Equity, nil
	case "etf":
		return ETF, nil
	case "crypto":
		return Crypto, nil
	default:
		return "", fmt.Errorf("unknown asset class %q", s)
	}
}

// Label is the value written to the Type_actif column.
func (c AssetClass) Label() string {
	if c == Equity {
		return "Action"
	}
	return string(c)
}

// Instrument is the resolved classification of one ticker.
type Instrument struct {
	Ticker    string
	Class     AssetClass
	Sector    string
	Benchmark string
	Name      string
}

// Maps holds the classification tables. A Maps value is immutable once built
// and safe for concurrent reads.
type Maps struct {
	classes    map[string]AssetClass
	sectors    map[string]string
	benchmarks map[string]string
	names      map[string]string
}

// NewMaps copies the given tables into an immutable Maps.
func NewMaps(classes map[string]AssetClass, sectors, benchmarks, names map[string]string) *Maps {
	m := &Maps{
		classes:    make(map[string]AssetClass, len(classes)),
		sectors:    make(map[string]string, len(sectors)),
		benchmarks: make(map[string]string, len(benchmarks)),
		names:      make(map[string]string, len(names)),
	}
	for k, v := range classes {
		m.classes[k] = v
	}
	for k, v := range sectors {
		if v != "" {
			m.sectors[k] = v
		}
	}
	for k, v := range benchmarks {
		m.benchmarks[k] = v
	}
	for k, v := range names {
		m.names[k] = v
	}
	return m
}

// AssetClass returns the class of ticker.
func (m *Maps) AssetClass(ticker string) (AssetClass, bool) {
	c, ok := m.classes[ticker]
	return c, ok
}

// Sector returns the sector of ticker; absence is allowed.
func (m *Maps) Sector(ticker string) (string, bool) {
	s, ok := m.sectors[ticker]
	return s, ok
}

// Benchmark returns the benchmark ticker ticker is compared against.
func (m *Maps) Benchmark(ticker string) (string, bool) {
	b, ok := m.benchmarks[ticker]
	return b, ok
}

// Name returns the display name, falling back to the ticker.
func (m *Maps) Name(ticker string) string {
	if n, ok := m.names[ticker]; ok && n != "" {
		return n
	}
	return ticker
}

// Lookup resolves every attribute of ticker. ok is false when the ticker has
// no asset class.
func (m *Maps) Lookup(ticker string) (Instrument, bool) {
	class, ok := m.classes[ticker]
	if !ok {
		return Instrument{}, false
	}
	return Instrument{
		Ticker:    ticker,
		Class:     class,
		Sector:    m.sectors[ticker],
		Benchmark: m.benchmarks[ticker],
		Name:      m.names[ticker],
	}, true
}

// IsBenchmark reports whether some ticker uses ticker as its benchmark.
func (m *Maps) IsBenchmark(ticker string) bool {
	for _, b := range m.benchmarks {
		if b == ticker {
			return true
		}
	}
	return false
}

// Benchmarks lists the distinct benchmark tickers, sorted.
func (m *Maps) Benchmarks() []string {
	seen := make(map[string]struct{})
	for _, b := range m.benchmarks {
		seen[b] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Tickers lists every classified ticker, sorted.
func (m *Maps) Tickers() []string {
	out := make([]string, 0, len(m.classes))
	for t := range m.classes {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Validate checks the tables against each other: every benchmark must itself
// be classified and map to itself.
func (m *Maps) Validate() error {
	var problems []Problem
	for _, b := range m.Benchmarks() {
		if _, ok := m.classes[b]; !ok {
			problems = append(problems, Problem{Ticker: b, Issue: IssueBenchmarkUnclassified})
		}
		if self, ok := m.benchmarks[b]; !ok || self != b {
			problems = append(problems, Problem{Ticker: b, Issue: IssueBenchmarkNotSelf})
		}
	}
	if len(problems) > 0 {
		return &CompletenessError{Problems: problems}
	}
	return nil
}

// CheckComplete verifies that every ticker present in the data has an asset
// class and a benchmark. Sector is optional.
func (m *Maps) CheckComplete(tickers []string) error {
	var problems []Problem
	for _, t := range tickers {
		if _, ok := m.classes[t]; !ok {
			problems = append(problems, Problem{Ticker: t, Issue: IssueMissingClass})
		}
		b, ok := m.benchmarks[t]
		if !ok || b == "" {
			problems = append(problems, Problem{Ticker: t, Issue: IssueMissingBenchmark})
			continue
		}
		if _, ok := m.classes[b]; !ok {
			problems = append(problems, Problem{Ticker: t, Issue: IssueBenchmarkUnclassified})
		}
	}
	if len(problems) > 0 {
		sort.SliceStable(problems, func(i, j int) bool { return problems[i].Ticker < problems[j].Ticker })
		return &CompletenessError{Problems: problems}
	}
	return nil
}

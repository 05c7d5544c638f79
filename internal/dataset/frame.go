package dataset

import (
	"math"
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// Span locates one instrument's series inside a Frame as the half-open row
// range [Start, End).
type Span struct {
	Ticker string
	Start  int
	End    int
}

// Len is the number of rows in the span.
func (s Span) Len() int { return s.End - s.Start }

// Frame stores every series in contiguous columns, sorted by (ticker, date).
// Workers may mutate Prices and Valid inside disjoint spans concurrently.
type Frame struct {
	Dates  []time.Time
	Prices []float64
	Valid  []bool
	Spans  []Span

	index map[string]int
}

// NewFrame builds a Frame from observations. Input is sorted on a copy; the
// caller guarantees key uniqueness.
func NewFrame(obs []Observation) *Frame {
	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	SortObservations(sorted)

	f := &Frame{
		Dates:  make([]time.Time, len(sorted)),
		Prices: make([]float64, len(sorted)),
		Valid:  make([]bool, len(sorted)),
	}
	for i, o := range sorted {
		f.Dates[i] = o.Date
		if o.Price.Valid {
			f.Prices[i] = o.Price.Float64
			f.Valid[i] = true
		}
		if i == 0 || sorted[i-1].Ticker != o.Ticker {
			f.Spans = append(f.Spans, Span{Ticker: o.Ticker, Start: i})
		}
		f.Spans[len(f.Spans)-1].End = i + 1
	}
	f.reindex()
	return f
}

func (f *Frame) reindex() {
	f.index = make(map[string]int, len(f.Spans))
	for i, s := range f.Spans {
		f.index[s.Ticker] = i
	}
}

// Len is the total row count.
func (f *Frame) Len() int { return len(f.Dates) }

// Tickers lists the instruments in frame order.
func (f *Frame) Tickers() []string {
	out := make([]string, len(f.Spans))
	for i, s := range f.Spans {
		out[i] = s.Ticker
	}
	return out
}

// Span returns the span of ticker.
func (f *Frame) Span(ticker string) (Span, bool) {
	i, ok := f.index[ticker]
	if !ok {
		return Span{}, false
	}
	return f.Spans[i], true
}

// Series returns the column views of s. The slices alias the frame.
func (f *Frame) Series(s Span) (dates []time.Time, prices []float64, valid []bool) {
	return f.Dates[s.Start:s.End], f.Prices[s.Start:s.End], f.Valid[s.Start:s.End]
}

// Price returns the price at row i.
func (f *Frame) Price(i int) null.Float {
	return null.NewFloat(f.Prices[i], f.Valid[i])
}

// Observations expands the frame back into rows.
func (f *Frame) Observations() []Observation {
	out := make([]Observation, 0, f.Len())
	for _, s := range f.Spans {
		for i := s.Start; i < s.End; i++ {
			out = append(out, Observation{Ticker: s.Ticker, Date: f.Dates[i], Price: f.Price(i)})
		}
	}
	return out
}

// Keep returns a new compact Frame holding only the listed tickers. Column
// data is copied so the result does not alias f.
func (f *Frame) Keep(tickers []string) *Frame {
	want := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		want[t] = struct{}{}
	}

	size := 0
	for _, s := range f.Spans {
		if _, ok := want[s.Ticker]; ok {
			size += s.Len()
		}
	}

	out := &Frame{
		Dates:  make([]time.Time, 0, size),
		Prices: make([]float64, 0, size),
		Valid:  make([]bool, 0, size),
	}
	for _, s := range f.Spans {
		if _, ok := want[s.Ticker]; !ok {
			continue
		}
		start := len(out.Dates)
		out.Dates = append(out.Dates, f.Dates[s.Start:s.End]...)
		out.Prices = append(out.Prices, f.Prices[s.Start:s.End]...)
		out.Valid = append(out.Valid, f.Valid[s.Start:s.End]...)
		out.Spans = append(out.Spans, Span{Ticker: s.Ticker, Start: start, End: len(out.Dates)})
	}
	out.reindex()
	return out
}

// NullCount counts null prices in the whole frame.
func (f *Frame) NullCount() int {
	n := 0
	for _, v := range f.Valid {
		if !v {
			n++
		}
	}
	return n
}

// Coverage describes the extent and completeness of one series.
type Coverage struct {
	Ticker          string
	First           time.Time
	Last            time.Time
	Rows            int
	Missing         int
	MissingFraction float64
}

// Coverage reports every series in frame order.
func (f *Frame) Coverage() []Coverage {
	out := make([]Coverage, 0, len(f.Spans))
	for _, s := range f.Spans {
		c := Coverage{Ticker: s.Ticker, Rows: s.Len()}
		if s.Len() > 0 {
			c.First = f.Dates[s.Start]
			c.Last = f.Dates[s.End-1]
		}
		for i := s.Start; i < s.End; i++ {
			if !f.Valid[i] {
				c.Missing++
			}
		}
		if c.Rows > 0 {
			c.MissingFraction = float64(c.Missing) / float64(c.Rows)
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// PriceSummary is a describe()-style digest of the non-null prices.
type PriceSummary struct {
	Count int
	Nulls int
	Mean  float64
	Min   float64
	Max   float64
}

// Summary computes the PriceSummary of the frame.
func (f *Frame) Summary() PriceSummary {
	s := PriceSummary{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for i, v := range f.Valid {
		if !v {
			s.Nulls++
			continue
		}
		p := f.Prices[i]
		s.Count++
		sum += p
		s.Min = math.Min(s.Min, p)
		s.Max = math.Max(s.Max, p)
	}
	if s.Count == 0 {
		return PriceSummary{Nulls: s.Nulls}
	}
	s.Mean = sum / float64(s.Count)
	return s
}

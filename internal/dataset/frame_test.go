package dataset

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestNewFrameSortsAndSpans(t *testing.T) {
	obs := []Observation{
		{Ticker: "BBB", Date: day(1), Price: null.FloatFrom(2)},
		{Ticker: "AAA", Date: day(2), Price: null.Float{}},
		{Ticker: "BBB", Date: day(0), Price: null.FloatFrom(1)},
		{Ticker: "AAA", Date: day(0), Price: null.FloatFrom(10)},
	}

	f := NewFrame(obs)
	require.Equal(t, 4, f.Len())
	assert.Equal(t, []string{"AAA", "BBB"}, f.Tickers())
	assert.Equal(t, []Span{{"AAA", 0, 2}, {"BBB", 2, 4}}, f.Spans)
	assert.Equal(t, []time.Time{day(0), day(2), day(0), day(1)}, f.Dates)
	assert.Equal(t, []bool{true, false, true, true}, f.Valid)
	assert.Equal(t, 1, f.NullCount())

	s, ok := f.Span("BBB")
	require.True(t, ok)
	dates, prices, _ := f.Series(s)
	assert.Equal(t, []time.Time{day(0), day(1)}, dates)
	assert.Equal(t, []float64{1, 2}, prices)

	_, ok = f.Span("CCC")
	assert.False(t, ok)

	// input untouched
	assert.Equal(t, "BBB", obs[0].Ticker)
}

func TestFrameKeepCopiesColumns(t *testing.T) {
	f := NewFrame([]Observation{
		{Ticker: "AAA", Date: day(0), Price: null.FloatFrom(1)},
		{Ticker: "BBB", Date: day(0), Price: null.FloatFrom(2)},
		{Ticker: "CCC", Date: day(0), Price: null.FloatFrom(3)},
	})

	kept := f.Keep([]string{"CCC", "AAA"})
	assert.Equal(t, []string{"AAA", "CCC"}, kept.Tickers())
	assert.Equal(t, []float64{1, 3}, kept.Prices)

	kept.Prices[0] = 99
	assert.Equal(t, 1.0, f.Prices[0])
}

func TestFrameObservationsRoundTrip(t *testing.T) {
	obs := []Observation{
		{Ticker: "AAA", Date: day(0), Price: null.FloatFrom(1)},
		{Ticker: "AAA", Date: day(1), Price: null.Float{}},
	}
	assert.Equal(t, obs, NewFrame(obs).Observations())
}

func TestCoverageAndSummary(t *testing.T) {
	f := NewFrame([]Observation{
		{Ticker: "AAA", Date: day(0), Price: null.Float{}},
		{Ticker: "AAA", Date: day(1), Price: null.FloatFrom(4)},
		{Ticker: "AAA", Date: day(5), Price: null.FloatFrom(8)},
		{Ticker: "BBB", Date: day(2), Price: null.FloatFrom(6)},
	})

	cov := f.Coverage()
	require.Len(t, cov, 2)
	assert.Equal(t, Coverage{Ticker: "AAA", First: day(0), Last: day(5), Rows: 3, Missing: 1, MissingFraction: 1.0 / 3}, cov[0])

	sum := f.Summary()
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, 1, sum.Nulls)
	assert.InDelta(t, 6.0, sum.Mean, 1e-12)
	assert.Equal(t, 4.0, sum.Min)
	assert.Equal(t, 8.0, sum.Max)

	empty := NewFrame(nil).Summary()
	assert.Equal(t, PriceSummary{}, empty)
}

func TestDayAndKey(t *testing.T) {
	ts := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("x", 3600))
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), Day(ts))

	a := Key{Ticker: "AAA", Date: day(1)}
	b := Key{Ticker: "AAA", Date: day(2)}
	assert.Negative(t, a.Compare(b))
	assert.Positive(t, Key{Ticker: "BBB"}.Compare(b))
	assert.Equal(t, "AAA@2024-01-02", a.String())
}

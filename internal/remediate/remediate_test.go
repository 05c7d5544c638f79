package remediate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-insights/internal/classify"
	"asset-insights/internal/dataset"
)

func series(ticker string, prices ...null.Float) []dataset.Observation {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]dataset.Observation, len(prices))
	for i, p := range prices {
		out[i] = dataset.Observation{Ticker: ticker, Date: start.AddDate(0, 0, i), Price: p}
	}
	return out
}

// withNulls builds a series of total rows whose first missing rows are null.
func withNulls(ticker string, total, missing int) []dataset.Observation {
	prices := make([]null.Float, total)
	for i := missing; i < total; i++ {
		prices[i] = null.FloatFrom(float64(i + 1))
	}
	return series(ticker, prices...)
}

var nullF = null.Float{}

func f(v float64) null.Float { return null.FloatFrom(v) }

func testMaps() *classify.Maps {
	return classify.NewMaps(
		map[string]classify.AssetClass{
			"BTC": classify.Crypto, "ETH": classify.Crypto,
			"AAA": classify.Equity, "BBB": classify.Equity,
			"SPY": classify.ETF, "NIL": classify.Equity,
		},
		nil,
		map[string]string{
			"BTC": "BTC", "ETH": "BTC", "AAA": "SPY", "BBB": "SPY", "SPY": "SPY", "NIL": "SPY",
		},
		nil,
	)
}

func TestFillSeriesForwardThenBackward(t *testing.T) {
	prices := []float64{0, 10, 0, 0, 20, 0}
	valid := []bool{false, true, false, false, true, false}

	fwd, bwd := FillSeries(prices, valid)

	assert.Equal(t, []float64{10, 10, 10, 10, 20, 20}, prices)
	assert.Equal(t, []bool{true, true, true, true, true, true}, valid)
	assert.Equal(t, 3, fwd)
	assert.Equal(t, 1, bwd)
}

func TestFillSeriesEdgeCases(t *testing.T) {
	prices := []float64{0, 0}
	valid := []bool{false, false}
	fwd, bwd := FillSeries(prices, valid)
	assert.Zero(t, fwd+bwd)
	assert.Equal(t, []bool{false, false}, valid)

	prices = []float64{1, 2}
	valid = []bool{true, true}
	fwd, bwd = FillSeries(prices, valid)
	assert.Zero(t, fwd+bwd)

	fwd, bwd = FillSeries(nil, nil)
	assert.Zero(t, fwd+bwd)
}

func TestDecideThresholdBoundaries(t *testing.T) {
	e := NewEngine(nil, testMaps(), zerolog.Nop())

	cases := []struct {
		name     string
		class    classify.AssetClass
		total    int
		missing  int
		excluded bool
	}{
		{"crypto at 50%", classify.Crypto, 10000, 5000, false},
		{"crypto at 50.01%", classify.Crypto, 10000, 5001, true},
		{"equity at 60%", classify.Equity, 10, 6, false},
		{"equity above 60%", classify.Equity, 10000, 6001, true},
		{"etf at 60%", classify.ETF, 10, 6, false},
		{"etf above 60%", classify.ETF, 10, 7, true},
		{"no missing", classify.Crypto, 5, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			valid := make([]bool, tc.total)
			for i := tc.missing; i < tc.total; i++ {
				valid[i] = true
			}
			ex, drop := e.Decide("X", tc.class, valid)
			assert.Equal(t, tc.excluded, drop)
			assert.Equal(t, tc.missing, ex.Missing)
			assert.Equal(t, tc.total, ex.Total)
			if drop {
				assert.Equal(t, ReasonOverThreshold, ex.Reason)
			}
		})
	}
}

func TestDecideAllNull(t *testing.T) {
	e := NewEngine(Thresholds{classify.Equity: 1.0}, testMaps(), zerolog.Nop())
	ex, drop := e.Decide("NIL", classify.Equity, []bool{false, false, false})
	require.True(t, drop)
	assert.Equal(t, ReasonNoPrices, ex.Reason)
	assert.Equal(t, 1.0, ex.MissingFraction)
}

func TestRunExcludesAndFills(t *testing.T) {
	var obs []dataset.Observation
	obs = append(obs, series("AAA", nullF, f(10), nullF, nullF, f(20), nullF, f(30), f(40))...)
	obs = append(obs, withNulls("BBB", 10, 7)...)
	obs = append(obs, series("NIL", nullF, nullF)...)
	obs = append(obs, withNulls("BTC", 4, 2)...)
	obs = append(obs, withNulls("ETH", 4, 3)...)
	obs = append(obs, series("SPY", f(1), f(2))...)
	frame := dataset.NewFrame(obs)

	e := NewEngine(DefaultThresholds(), testMaps(), zerolog.Nop())
	res, err := e.Run(context.Background(), frame, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BTC", "SPY"}, res.Frame.Tickers())
	assert.Zero(t, res.Frame.NullCount())

	span, ok := res.Frame.Span("AAA")
	require.True(t, ok)
	_, prices, _ := res.Frame.Series(span)
	assert.Equal(t, []float64{10, 10, 10, 10, 20, 20, 30, 40}, prices)

	require.Len(t, res.Excluded, 3)
	assert.Equal(t, "BBB", res.Excluded[0].Ticker)
	assert.Equal(t, ReasonOverThreshold, res.Excluded[0].Reason)
	assert.InDelta(t, 0.7, res.Excluded[0].MissingFraction, 1e-12)
	assert.Equal(t, "ETH", res.Excluded[1].Ticker)
	assert.Equal(t, "NIL", res.Excluded[2].Ticker)
	assert.Equal(t, ReasonNoPrices, res.Excluded[2].Reason)

	assert.Equal(t, []FillStats{
		{Ticker: "AAA", Forward: 3, Backward: 1},
		{Ticker: "BTC", Forward: 0, Backward: 2},
		{Ticker: "SPY"},
	}, res.Fills)
	assert.Equal(t, 6, res.FilledCells())

	// input frame untouched
	assert.Equal(t, 18, frame.NullCount())
}

func TestRunUnclassifiedTicker(t *testing.T) {
	frame := dataset.NewFrame(series("ZZZ", f(1)))
	_, err := NewEngine(nil, testMaps(), zerolog.Nop()).Run(context.Background(), frame, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, classify.ErrIncomplete))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frame := dataset.NewFrame(series("AAA", f(1), nullF))
	_, err := NewEngine(nil, testMaps(), zerolog.Nop()).Run(ctx, frame, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

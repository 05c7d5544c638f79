package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-insights/internal/classify"
	"asset-insights/internal/dataset"
	"asset-insights/internal/ingest"
	"asset-insights/internal/remediate"
)

func testMaps() *classify.Maps {
	return classify.NewMaps(
		map[string]classify.AssetClass{
			"AAPL": classify.Equity, "QQQ": classify.ETF,
			"BTC-USD": classify.Crypto, "ETH-USD": classify.Crypto,
			"GONE": classify.Equity,
		},
		map[string]string{"AAPL": "Technologie", "QQQ": "ETF", "BTC-USD": "Crypto", "ETH-USD": "Crypto"},
		map[string]string{
			"AAPL": "QQQ", "QQQ": "QQQ", "GONE": "QQQ",
			"BTC-USD": "BTC-USD", "ETH-USD": "BTC-USD",
		},
		nil,
	)
}

func buildFrame(days int) *dataset.Frame {
	start := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	var obs []dataset.Observation
	add := func(ticker string, from int, price func(i int) null.Float) {
		for i := from; i < days; i++ {
			obs = append(obs, dataset.Observation{Ticker: ticker, Date: start.AddDate(0, 0, i), Price: price(i)})
		}
	}
	add("QQQ", 0, func(i int) null.Float { return null.FloatFrom(400 + float64(i)) })
	add("AAPL", 0, func(i int) null.Float {
		if i%7 == 3 {
			return null.Float{}
		}
		return null.FloatFrom(180 + 3*math.Sin(float64(i)))
	})
	// listed later than its benchmark
	add("ETH-USD", 10, func(i int) null.Float { return null.FloatFrom(2000 + 10*float64(i%5)) })
	add("BTC-USD", 5, func(i int) null.Float { return null.FloatFrom(40000 + 100*float64(i%3)) })
	add("GONE", 0, func(i int) null.Float {
		if i < days-3 {
			return null.Float{}
		}
		return null.FloatFrom(1)
	})
	return dataset.NewFrame(obs)
}

func newRunner(workers int) *Runner {
	return NewRunner(testMaps(), Options{Workers: workers}, zerolog.Nop())
}

func TestRunProducesEnrichedTable(t *testing.T) {
	frame := buildFrame(60)
	res, err := newRunner(4).Run(context.Background(), frame, ingest.Report{RowsRead: frame.Len()})
	require.NoError(t, err)

	require.Len(t, res.Excluded, 1)
	assert.Equal(t, "GONE", res.Excluded[0].Ticker)
	assert.Equal(t, remediate.ReasonOverThreshold, res.Excluded[0].Reason)

	assert.Equal(t, 4, res.Instruments())
	assert.Equal(t, frame.Len()-60, len(res.Rows))
	assert.NotEqual(t, [16]byte{}, [16]byte(res.RunID))
	assert.Len(t, res.Timings, 3)
	assert.Greater(t, res.Before.Nulls, 0)
	assert.Zero(t, res.After.Nulls)

	for _, r := range res.Rows {
		assert.True(t, r.Price.Valid, "%s has null price after remediation", r.Key())
	}

	aapl := dataset.RowsFor(res.Rows, "AAPL")
	require.Len(t, aapl, 60)
	assert.False(t, aapl[0].Return.Valid)
	assert.False(t, aapl[28].Volatility30.Valid)
	assert.True(t, aapl[29].Volatility30.Valid)
	assert.Equal(t, "Action", aapl[0].AssetClass)
	assert.Equal(t, "QQQ", aapl[0].Benchmark)
	assert.True(t, aapl[0].RelativeToBenchmark.Valid)

	qqq := dataset.RowsFor(res.Rows, "QQQ")
	for _, r := range qqq {
		assert.Equal(t, null.FloatFrom(100), r.RelativeToBenchmark)
	}

	// ETH starts after BTC, so every ETH row has a benchmark price
	for _, r := range dataset.RowsFor(res.Rows, "ETH-USD") {
		assert.True(t, r.RelativeToBenchmark.Valid)
	}
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	frame := buildFrame(90)
	one, err := newRunner(1).Run(context.Background(), frame, ingest.Report{})
	require.NoError(t, err)
	many, err := newRunner(8).Run(context.Background(), frame, ingest.Report{})
	require.NoError(t, err)
	assert.Equal(t, one.Rows, many.Rows)
	assert.Equal(t, one.Excluded, many.Excluded)
}

func TestRunMissingBenchmarkFailsEarly(t *testing.T) {
	frame := dataset.NewFrame([]dataset.Observation{
		{Ticker: "AAPL", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Price: null.FloatFrom(1)},
		{Ticker: "NOPE", Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Price: null.FloatFrom(1)},
	})

	_, err := newRunner(2).Run(context.Background(), frame, ingest.Report{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, classify.ErrIncomplete))

	var ce *classify.CompletenessError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"NOPE"}, ce.Tickers())
	assert.Contains(t, err.Error(), "NOPE")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newRunner(2).Run(ctx, buildFrame(10), ingest.Report{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunFile(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date,Ticker,Prix\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 35; i++ {
		d := start.AddDate(0, 0, i).Format(dataset.DateLayout)
		b.WriteString(d + ",QQQ," + strconv.Itoa(400+i) + "\n")
		b.WriteString(d + ",AAPL," + strconv.Itoa(180+i%4) + "\n")
	}
	b.WriteString(start.Format(dataset.DateLayout) + ",AAPL,180\n")

	path := filepath.Join(t.TempDir(), "raw.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	normalizer := ingest.NewNormalizer(ingest.Options{}, zerolog.Nop())
	res, err := newRunner(0).RunFile(context.Background(), normalizer, path)
	require.NoError(t, err)

	assert.Equal(t, 71, res.Ingest.RowsRead)
	assert.Equal(t, 1, res.Ingest.Duplicates)
	assert.Len(t, res.Rows, 70)
	require.Len(t, res.Timings, 4)
	assert.Equal(t, StageIngest, res.Timings[0].Stage)
}

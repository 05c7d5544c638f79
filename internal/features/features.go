// Package features derives returns and volatility statistics from filled
// price series.
package features

import (
	"math"
	"time"

	"github.com/guregu/null/v6"
	"gonum.org/v1/gonum/stat"
)

// Defaults.
const (
	DefaultWindow      = 30
	DefaultTradingDays = 252
)

// Options configure the feature engine.
type Options struct {
	Window      int
	TradingDays int
}

func (o Options) withDefaults() Options {
	if o.Window < 2 {
		o.Window = DefaultWindow
	}
	if o.TradingDays <= 0 {
		o.TradingDays = DefaultTradingDays
	}
	return o
}

// Row holds the per-observation features of one series.
type Row struct {
	Return           null.Float
	Year             int
	Volatility       null.Float
	AnnualVolatility null.Float
}

// Series is the feature output for one instrument, aligned index for index
// with its input dates.
type Series struct {
	Ticker string
	Dates  []time.Time
	Rows   []Row
	// Whole is the sample standard deviation of every return in the series.
	Whole null.Float
}

// Compute derives the features of one series. prices and valid must be
// sorted by date and of equal length.
func Compute(ticker string, dates []time.Time, prices []float64, valid []bool, opts Options) Series {
	opts = opts.withDefaults()

	returns := Returns(prices, valid)
	rolling := RollingStd(returns, opts.Window)
	scale := math.Sqrt(float64(opts.TradingDays))

	rows := make([]Row, len(dates))
	for i := range dates {
		rows[i] = Row{
			Return:     returns[i],
			Year:       dates[i].Year(),
			Volatility: rolling[i],
		}
		if rolling[i].Valid {
			rows[i].AnnualVolatility = null.FloatFrom(rolling[i].Float64 * scale)
		}
	}

	return Series{
		Ticker: ticker,
		Dates:  dates,
		Rows:   rows,
		Whole:  SampleStd(returns),
	}
}

// Returns computes the percentage change against the previous observation.
// The first value is null, as is any value whose neighbour is missing or
// whose previous price is zero.
func Returns(prices []float64, valid []bool) []null.Float {
	out := make([]null.Float, len(prices))
	for i := 1; i < len(prices); i++ {
		if !valid[i] || !valid[i-1] || prices[i-1] == 0 {
			continue
		}
		out[i] = null.FloatFrom((prices[i]/prices[i-1] - 1) * 100)
	}
	return out
}

// RollingStd is the sample standard deviation over a trailing window of
// window observations. Nulls inside the window are skipped; the value is
// null until the window is full or while it holds fewer than two values.
func RollingStd(values []null.Float, window int) []null.Float {
	out := make([]null.Float, len(values))
	if window < 1 {
		return out
	}

	buf := make([]float64, 0, window)
	for i := window - 1; i < len(values); i++ {
		out[i] = sampleStd(values[i-window+1:i+1], buf)
	}
	return out
}

// SampleStd is the (N-1) standard deviation of the non-null values, null
// when fewer than two are present.
func SampleStd(values []null.Float) null.Float {
	return sampleStd(values, make([]float64, 0, len(values)))
}

func sampleStd(values []null.Float, buf []float64) null.Float {
	buf = buf[:0]
	for _, v := range values {
		if v.Valid {
			buf = append(buf, v.Float64)
		}
	}
	if len(buf) < 2 {
		return null.Float{}
	}
	return null.FloatFrom(stat.StdDev(buf, nil))
}

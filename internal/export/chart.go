package export

import (
	"errors"
	"io"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"asset-insights/internal/dataset"
)

// ErrTooFewPoints is returned when a series cannot be plotted.
var ErrTooFewPoints = errors.New("need at least two priced rows to chart")

// WriteChart renders one instrument's price and its performance against its
// benchmark to a PNG at path. rows must belong to a single ticker.
func WriteChart(path, title string, rows []dataset.EnrichedRow) error {
	graph, err := buildChart(title, rows)
	if err != nil {
		return err
	}
	return writeAtomic(path, func(w io.Writer) error {
		return graph.Render(chart.PNG, w)
	})
}

func buildChart(title string, rows []dataset.EnrichedRow) (*chart.Chart, error) {
	var (
		px, rx         []time.Time
		prices, relVal []float64
		bench          string
	)
	for _, r := range rows {
		bench = r.Benchmark
		if r.Price.Valid {
			px = append(px, r.Date)
			prices = append(prices, r.Price.Float64)
		}
		if r.RelativeToBenchmark.Valid {
			rx = append(rx, r.Date)
			relVal = append(relVal, r.RelativeToBenchmark.Float64)
		}
	}
	if len(px) < 2 {
		return nil, ErrTooFewPoints
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := &chart.Chart{
		Title:  title,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Prix",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Prix",
				XValues: px,
				YValues: prices,
			},
		},
	}
	if len(rx) >= 2 {
		graph.YAxisSecondary = chart.YAxis{
			Name:           "Performance vs " + bench,
			ValueFormatter: priceFormatter,
		}
		graph.Series = append(graph.Series, chart.TimeSeries{
			Name:    "Performance vs " + bench,
			XValues: rx,
			YValues: relVal,
			YAxis:   chart.YAxisSecondary,
		})
	}
	graph.Elements = []chart.Renderable{chart.Legend(graph)}
	return graph, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"

	"asset-insights/internal/dataset"
	"asset-insights/internal/export"
)

const defaultShowLimit = 20

// Show prints the most recent enriched rows of one instrument, newest first.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	ticker := strings.TrimSpace(opts.Ticker)
	if ticker == "" {
		return errors.New("ticker is required")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultShowLimit
	}

	rows, err := a.loadRows(ctx, ticker, limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintf(a.Out, "no rows found for %s\n", ticker)
		return nil
	}

	maps, err := a.loadMaps()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s (%s)\n", maps.Name(ticker), ticker)

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tPrice\tReturn%\tVol30\tVol30 ann.\tBenchmark\tvs Bench")
	for _, row := range rows {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Date.Format(dataset.DateLayout),
			formatFloat(row.Price, 4),
			formatPercent(row.Return),
			formatFloat(row.Volatility30, 6),
			formatFloat(row.Volatility30Annualized, 4),
			row.Benchmark,
			formatFloat(row.RelativeToBenchmark, 2),
		)
	}
	return writer.Flush()
}

// loadRows returns up to limit rows of ticker, newest first, from the
// database when one is configured and from the enriched CSV otherwise.
func (a *App) loadRows(ctx context.Context, ticker string, limit int) ([]dataset.EnrichedRow, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if store != nil {
		defer closeStore()
		return store.ListRows(ctx, ticker, limit)
	}

	all, err := export.ReadCSVFile(a.Config.Output.Path)
	if err != nil {
		return nil, fmt.Errorf("read enriched table: %w", err)
	}
	rows := dataset.RowsFor(all, ticker)
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	out := make([]dataset.EnrichedRow, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = r
	}
	return out, nil
}

func formatFloat(v null.Float, places int32) string {
	if !v.Valid {
		return "-"
	}
	return decimal.NewFromFloat(v.Float64).StringFixed(places)
}

func formatPercent(v null.Float) string {
	if !v.Valid {
		return "-"
	}
	return decimal.NewFromFloat(v.Float64).Shift(2).StringFixed(3)
}

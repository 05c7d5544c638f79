package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"asset-insights/internal/dataset"
	"asset-insights/internal/export"
)

// Chart renders one instrument's price history and its performance against
// its benchmark to a PNG.
func (a *App) Chart(ctx context.Context, opts ChartOptions) (string, error) {
	ticker := strings.TrimSpace(opts.Ticker)
	if ticker == "" {
		return "", errors.New("ticker is required")
	}

	path := opts.Path
	if path == "" {
		path = filepath.Join(a.Config.Output.ChartDir, ticker+".png")
	}

	rows, err := a.loadRows(ctx, ticker, 0)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("no rows found for %s", ticker)
	}
	// loadRows returns newest first.
	slices.SortFunc(rows, func(x, y dataset.EnrichedRow) int { return x.Date.Compare(y.Date) })

	maps, err := a.loadMaps()
	if err != nil {
		return "", err
	}

	title := fmt.Sprintf("%s (%s)", maps.Name(ticker), ticker)
	if err := export.WriteChart(path, title, rows); err != nil {
		return "", fmt.Errorf("render chart: %w", err)
	}

	a.Logger.Info().Str("ticker", ticker).Str("path", path).Int("points", len(rows)).Msg("chart written")
	return path, nil
}

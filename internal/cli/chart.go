package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"asset-insights/internal/app"
)

var (
	chartTicker string
	chartOut    string
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Plot an instrument against its benchmark as PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ChartOptions{
			Ticker: chartTicker,
			Path:   chartOut,
		}

		path, err := getApp().Chart(cmd.Context(), opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	chartCmd.Flags().StringVar(&chartTicker, "ticker", "", "Instrument ticker")
	chartCmd.Flags().StringVar(&chartOut, "out", "", "PNG path; defaults to <output.chart_dir>/<ticker>.png")
	_ = chartCmd.MarkFlagRequired("ticker")
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"asset-insights/internal/app"
)

var (
	showTicker string
	showLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the latest enriched rows of an instrument",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Ticker: showTicker,
			Limit:  showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showTicker, "ticker", "", "Instrument ticker")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of rows to display")
	_ = showCmd.MarkFlagRequired("ticker")
}

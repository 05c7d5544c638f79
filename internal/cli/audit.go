package cli

import (
	"github.com/spf13/cobra"

	"asset-insights/internal/app"
)

var (
	auditRaw   bool
	auditStyle string
	auditWidth int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print the cleaning report of the last run",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.AuditOptions{
			Raw:   auditRaw,
			Style: auditStyle,
			Width: auditWidth,
		}

		return getApp().Audit(cmd.Context(), opts)
	},
}

func init() {
	auditCmd.Flags().BoolVar(&auditRaw, "raw", false, "Print markdown without terminal styling")
	auditCmd.Flags().StringVar(&auditStyle, "style", "", "Glamour style (dark, light, notty); auto-detected when empty")
	auditCmd.Flags().IntVar(&auditWidth, "width", 100, "Word wrap width")
}

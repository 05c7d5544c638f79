package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"asset-insights/internal/app"
)

var (
	prepareInput   string
	prepareOutput  string
	prepareXLSX    string
	prepareAudit   string
	prepareWorkers int
	preparePublish bool
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Clean the raw price file and write the enriched table",
	RunE: func(cmd *cobra.Command, args []string) error {
		if prepareWorkers < 0 {
			return fmt.Errorf("--workers cannot be negative")
		}

		opts := app.PrepareOptions{
			Input:     prepareInput,
			Output:    prepareOutput,
			XLSXPath:  prepareXLSX,
			AuditPath: prepareAudit,
			Workers:   prepareWorkers,
			Publish:   preparePublish,
		}

		return getApp().Prepare(cmd.Context(), opts)
	},
}

func init() {
	prepareCmd.Flags().StringVar(&prepareInput, "input", "", "Raw price file (.csv or .xlsx); defaults to input.path")
	prepareCmd.Flags().StringVar(&prepareOutput, "output", "", "Enriched CSV path; defaults to output.path")
	prepareCmd.Flags().StringVar(&prepareXLSX, "xlsx", "", "Also write the enriched table as a workbook")
	prepareCmd.Flags().StringVar(&prepareAudit, "audit", "", "Audit report path; defaults to output.audit_path")
	prepareCmd.Flags().IntVar(&prepareWorkers, "workers", 0, "Per-instrument worker count; 0 uses pipeline.workers")
	prepareCmd.Flags().BoolVar(&preparePublish, "publish", false, "Publish the run to postgres")
}

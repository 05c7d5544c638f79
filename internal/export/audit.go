package export

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"asset-insights/internal/dataset"
	"asset-insights/internal/pipeline"
	"asset-insights/internal/remediate"
)

// AuditReport is the human-readable account of one run.
type AuditReport struct {
	RunID     string
	Source    string
	StartedAt time.Time
	Duration  time.Duration

	RowsRead   int
	RowsKept   int
	Duplicates int
	Conflicts  int
	Dropped    map[string]int

	RowsOut        int
	InstrumentsOut int

	Excluded []remediate.Exclusion
	Fills    []remediate.FillStats
	Coverage []dataset.Coverage
	Before   *dataset.PriceSummary
	After    *dataset.PriceSummary
}

// NewAuditReport summarises a pipeline result.
func NewAuditReport(res *pipeline.Result, source string) AuditReport {
	dropped := make(map[string]int, len(res.Ingest.Dropped))
	for reason, n := range res.Ingest.Dropped {
		dropped[string(reason)] = n
	}
	before, after := res.Before, res.After
	return AuditReport{
		RunID:          res.RunID.String(),
		Source:         source,
		StartedAt:      res.StartedAt,
		Duration:       res.Duration(),
		RowsRead:       res.Ingest.RowsRead,
		RowsKept:       res.Ingest.RowsKept,
		Duplicates:     res.Ingest.Duplicates,
		Conflicts:      res.Ingest.Conflicts,
		Dropped:        dropped,
		RowsOut:        len(res.Rows),
		InstrumentsOut: res.Instruments(),
		Excluded:       res.Excluded,
		Fills:          res.Fills,
		Coverage:       res.Coverage,
		Before:         &before,
		After:          &after,
	}
}

// Markdown renders the report.
func (r AuditReport) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Data preparation audit\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", r.RunID)
	if r.Source != "" {
		fmt.Fprintf(&b, "- Source: `%s`\n", r.Source)
	}
	if !r.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- Started: %s\n", r.StartedAt.UTC().Format(time.RFC3339))
	}
	if r.Duration > 0 {
		fmt.Fprintf(&b, "- Duration: %s\n", r.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "- Rows read: %d, kept: %d, duplicates: %d, conflicts: %d\n",
		r.RowsRead, r.RowsKept, r.Duplicates, r.Conflicts)
	fmt.Fprintf(&b, "- Rows written: %d across %d instruments\n", r.RowsOut, r.InstrumentsOut)

	if len(r.Dropped) > 0 {
		reasons := make([]string, 0, len(r.Dropped))
		for reason := range r.Dropped {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		b.WriteString("\n## Dropped rows\n\n| Reason | Rows |\n|---|---:|\n")
		for _, reason := range reasons {
			fmt.Fprintf(&b, "| %s | %d |\n", reason, r.Dropped[reason])
		}
	}

	b.WriteString("\n## Excluded instruments\n\n")
	if len(r.Excluded) == 0 {
		b.WriteString("None.\n")
	} else {
		b.WriteString("| Ticker | Class | Missing | Rows | Missing % | Reason |\n|---|---|---:|---:|---:|---|\n")
		for _, ex := range r.Excluded {
			fmt.Fprintf(&b, "| %s | %s | %d | %d | %.2f | %s |\n",
				ex.Ticker, ex.Class, ex.Missing, ex.Total, ex.MissingFraction*100, ex.Reason)
		}
	}

	if r.Before != nil && r.After != nil {
		b.WriteString("\n## Prices before and after cleaning\n\n| | Count | Nulls | Mean | Min | Max |\n|---|---:|---:|---:|---:|---:|\n")
		writeSummary(&b, "Before", *r.Before)
		writeSummary(&b, "After", *r.After)
	}

	fills := make([]remediate.FillStats, 0, len(r.Fills))
	for _, f := range r.Fills {
		if f.Forward+f.Backward > 0 {
			fills = append(fills, f)
		}
	}
	if len(fills) > 0 {
		b.WriteString("\n## Filled prices\n\n| Ticker | Forward | Backward |\n|---|---:|---:|\n")
		for _, f := range fills {
			fmt.Fprintf(&b, "| %s | %d | %d |\n", f.Ticker, f.Forward, f.Backward)
		}
	}

	if len(r.Coverage) > 0 {
		b.WriteString("\n## Coverage\n\n| Ticker | First | Last | Rows | Missing | Missing % |\n|---|---|---|---:|---:|---:|\n")
		for _, c := range r.Coverage {
			fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %.2f |\n",
				c.Ticker, c.First.Format(dataset.DateLayout), c.Last.Format(dataset.DateLayout),
				c.Rows, c.Missing, c.MissingFraction*100)
		}
	}
	return b.String()
}

func writeSummary(b *strings.Builder, label string, s dataset.PriceSummary) {
	fmt.Fprintf(b, "| %s | %d | %d | %.4f | %.4f | %.4f |\n", label, s.Count, s.Nulls, s.Mean, s.Min, s.Max)
}

// ReadAudit loads a report previously staged with Batch.Audit.
func ReadAudit(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// RenderMarkdown formats markdown for a terminal. style is a glamour
// standard style name; empty selects one from the terminal background.
func RenderMarkdown(md, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// Package metrics exposes run statistics in the Prometheus exposition format,
// written to a node-exporter textfile after each run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"asset-insights/internal/pipeline"
)

const namespace = "assetinsights"

// Recorder holds the gauges describing the last run.
type Recorder struct {
	registry *prometheus.Registry

	RowsRead            prometheus.Gauge
	RowsDropped         *prometheus.GaugeVec
	DuplicateRows       prometheus.Gauge
	ConflictingRows     prometheus.Gauge
	InstrumentsExcluded *prometheus.GaugeVec
	RowsEmitted         prometheus.Gauge
	InstrumentsEmitted  prometheus.Gauge
	StageDuration       *prometheus.GaugeVec
	LastRunTimestamp    prometheus.Gauge
	LastRunSuccess      prometheus.Gauge
}

// NewRecorder creates a Recorder backed by its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		RowsRead: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_read",
			Help:      "Raw rows read by the last run",
		}),
		RowsDropped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_dropped",
			Help:      "Malformed raw rows dropped by the last run",
		}, []string{"reason"}),
		DuplicateRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duplicate_rows",
			Help:      "Exact duplicate rows removed by the last run",
		}),
		ConflictingRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conflicting_rows",
			Help:      "Rows sharing a key with a different price, dropped by the last run",
		}),
		InstrumentsExcluded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instruments_excluded",
			Help:      "Instruments excluded by remediation in the last run",
		}, []string{"reason"}),
		RowsEmitted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_emitted",
			Help:      "Enriched rows written by the last run",
		}),
		InstrumentsEmitted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "instruments_emitted",
			Help:      "Instruments present in the enriched table",
		}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage in the last run",
		}, []string{"stage"}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last run succeeded, 0 otherwise",
		}),
	}

	r.registry.MustRegister(
		r.RowsRead,
		r.RowsDropped,
		r.DuplicateRows,
		r.ConflictingRows,
		r.InstrumentsExcluded,
		r.RowsEmitted,
		r.InstrumentsEmitted,
		r.StageDuration,
		r.LastRunTimestamp,
		r.LastRunSuccess,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveRun records a successful run.
func (r *Recorder) ObserveRun(res *pipeline.Result) {
	r.RowsRead.Set(float64(res.Ingest.RowsRead))
	for reason, n := range res.Ingest.Dropped {
		r.RowsDropped.WithLabelValues(string(reason)).Set(float64(n))
	}
	r.DuplicateRows.Set(float64(res.Ingest.Duplicates))
	r.ConflictingRows.Set(float64(res.Ingest.Conflicts))

	excluded := make(map[string]int)
	for _, ex := range res.Excluded {
		excluded[string(ex.Reason)]++
	}
	for reason, n := range excluded {
		r.InstrumentsExcluded.WithLabelValues(reason).Set(float64(n))
	}

	r.RowsEmitted.Set(float64(len(res.Rows)))
	r.InstrumentsEmitted.Set(float64(res.Instruments()))
	for _, st := range res.Timings {
		r.StageDuration.WithLabelValues(st.Stage).Set(st.Duration.Seconds())
	}
	r.LastRunTimestamp.Set(float64(res.FinishedAt.Unix()))
	r.LastRunSuccess.Set(1)
}

// ObserveFailure records a failed run.
func (r *Recorder) ObserveFailure(at time.Time) {
	r.LastRunTimestamp.Set(float64(at.Unix()))
	r.LastRunSuccess.Set(0)
}

// WriteTextfile writes the registry to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

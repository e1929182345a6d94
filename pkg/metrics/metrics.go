// Package metrics provides Prometheus metrics for loader runs.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	OutcomeSuccessful        = "successful"
	OutcomeSkippedNull       = "skipped_null"
	OutcomeSkippedUnresolved = "skipped_unresolved"
	OutcomeUnprocessed       = "unprocessed"

	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Recorder holds the collectors of one process on its own registry
type Recorder struct {
	registry *prometheus.Registry

	// RowsTotal counts source rows by outcome
	RowsTotal *prometheus.CounterVec
	// BatchesTotal counts merged batches by status
	BatchesTotal *prometheus.CounterVec
	// BatchDuration tracks batch read-merge-record time in seconds
	BatchDuration *prometheus.HistogramVec
	// TargetCount is the node or relationship count before and after a run
	TargetCount *prometheus.GaugeVec
	// RunsTotal counts loader runs by final state
	RunsTotal *prometheus.CounterVec
}

// NewRecorder creates the collectors on a fresh registry
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		RowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fern",
				Subsystem: "loader",
				Name:      "rows_total",
				Help:      "Total number of source rows by outcome",
			},
			[]string{"loader", "outcome"},
		),
		BatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fern",
				Subsystem: "loader",
				Name:      "batches_total",
				Help:      "Total number of batches by status",
			},
			[]string{"loader", "status"},
		),
		BatchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fern",
				Subsystem: "loader",
				Name:      "batch_duration_seconds",
				Help:      "Duration of batch merges in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"loader"},
		),
		TargetCount: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "fern",
				Subsystem: "loader",
				Name:      "target_count",
				Help:      "Nodes or relationships of the loader target, before and after the run",
			},
			[]string{"loader", "phase"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fern",
				Subsystem: "loader",
				Name:      "runs_total",
				Help:      "Total number of loader runs by final state",
			},
			[]string{"loader", "state"},
		),
	}
}

// Registry exposes the registry the collectors live on
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// LoaderStarted is a no-op; counts are recorded as batches complete
func (r *Recorder) LoaderStarted(_ context.Context, _ *models.RunResult) {}

// BatchCompleted records one batch
func (r *Recorder) BatchCompleted(_ context.Context, loader string, stats models.BatchStats) {
	r.BatchDuration.WithLabelValues(loader).Observe(stats.Seconds)
	if stats.Failed {
		r.BatchesTotal.WithLabelValues(loader, StatusFailed).Inc()
		return
	}
	r.BatchesTotal.WithLabelValues(loader, StatusOK).Inc()
	r.RowsTotal.WithLabelValues(loader, OutcomeSuccessful).Add(float64(stats.Successful))
	r.RowsTotal.WithLabelValues(loader, OutcomeSkippedNull).Add(float64(stats.SkippedNull))
	r.RowsTotal.WithLabelValues(loader, OutcomeSkippedUnresolved).Add(float64(stats.SkippedUnresolved))
}

// LoaderFinished records the final state, unprocessed rows and target counts
func (r *Recorder) LoaderFinished(_ context.Context, result *models.RunResult) {
	r.RunsTotal.WithLabelValues(result.Loader, string(result.State)).Inc()
	if n := result.Counters.Unprocessed; n > 0 {
		r.RowsTotal.WithLabelValues(result.Loader, OutcomeUnprocessed).Add(float64(n))
	}
	if b := result.Counters.Before; b != nil {
		r.TargetCount.WithLabelValues(result.Loader, "before").Set(float64(*b))
	}
	if a := result.Counters.After; a != nil {
		r.TargetCount.WithLabelValues(result.Loader, "after").Set(float64(*a))
	}
}

// Push sends every collector to a Pushgateway, grouped by run id
func (r *Recorder) Push(ctx context.Context, url, job, runID string) error {
	err := push.New(url, job).
		Gatherer(r.registry).
		Grouping("run_id", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}

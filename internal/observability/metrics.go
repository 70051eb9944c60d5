// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mountaincenter/dash-plotly/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Run metrics
	RunsTotal    *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	StepDuration *prometheus.HistogramVec
	GuardDenials *prometheus.CounterVec

	// Fetch metrics
	InstrumentsFetched prometheus.Counter
	InstrumentFailures prometheus.Counter
	BarsStored         prometheus.Counter

	// Archive metrics
	ArchiveAppended prometheus.Counter
	ArchiveSkipped  prometheus.Counter

	// Reconcile metrics
	ReconcileOrphans   prometheus.Gauge
	ReconcileDeletions prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "picks_pipeline"
	}

	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Total number of pipeline runs by mode and status",
		}, []string{"mode", "status"}),
		RunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Pipeline run duration by mode",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"mode"}),
		StepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "step_duration_seconds",
			Help:      "Per-step duration by step name and status",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"step", "status"}),
		GuardDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "guard_denials_total",
			Help:      "Window guard denials by mode",
		}, []string{"mode"}),

		InstrumentsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "instruments_total",
			Help:      "Total instruments fetched successfully",
		}),
		InstrumentFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "instrument_failures_total",
			Help:      "Total instruments that failed after retries",
		}),
		BarsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "bars_stored_total",
			Help:      "Total price bars written to the timeseries store",
		}),

		ArchiveAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "entries_appended_total",
			Help:      "Total new archive entries written",
		}),
		ArchiveSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "entries_skipped_total",
			Help:      "Total archive writes skipped as already present",
		}),

		ReconcileOrphans: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "orphans",
			Help:      "Orphan objects found by the latest reconcile plan",
		}),
		ReconcileDeletions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "deletions_total",
			Help:      "Total objects deleted by apply-mode reconciliation",
		}),

		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last SUCCESS run",
		}),
	}
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records a finished run's status, duration and step detail.
func (m *Metrics) ObserveRun(r *domain.RunReport) {
	m.RunsTotal.WithLabelValues(string(r.Mode), string(r.Status)).Inc()
	m.RunDuration.WithLabelValues(string(r.Mode)).
		Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())
	for _, s := range r.Steps {
		m.StepDuration.WithLabelValues(s.Name, string(s.Status)).
			Observe(s.Duration.Seconds())
	}
	if r.DenyReason != "" {
		m.GuardDenials.WithLabelValues(string(r.Mode)).Inc()
	}
	if r.Status == domain.RunStatusSuccess {
		m.LastSuccessfulRun.Set(float64(r.FinishedAt.Unix()))
	}
}

// ObserveFetch records one universe fetch outcome.
func (m *Metrics) ObserveFetch(fetched, failed, bars int) {
	m.InstrumentsFetched.Add(float64(fetched))
	m.InstrumentFailures.Add(float64(failed))
	m.BarsStored.Add(float64(bars))
}

// ObserveArchive records one archive batch outcome.
func (m *Metrics) ObserveArchive(appended, skipped int) {
	m.ArchiveAppended.Add(float64(appended))
	m.ArchiveSkipped.Add(float64(skipped))
}

// ObserveReconcile records a reconcile plan and its applied deletions.
func (m *Metrics) ObserveReconcile(orphans, deleted int) {
	m.ReconcileOrphans.Set(float64(orphans))
	m.ReconcileDeletions.Add(float64(deleted))
}

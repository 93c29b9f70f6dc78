package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// diagnostics pipeline.
type Metrics struct {
	FieldsResolved     prometheus.Counter
	DiagnosticWarnings prometheus.Counter
	SummariesPublished prometheus.Counter
	PipelineRunning    prometheus.Gauge

	AppRuns     *prometheus.CounterVec   // labels: app={tcpi,tcmsi,tcstrflw,tcohc}, outcome={success,error}
	AppDuration *prometheus.HistogramVec // labels: app
	RunDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FieldsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tcdiag",
			Name:      "fields_resolved_total",
			Help:      "Total analysis variables resolved from the input dataset.",
		}),
		DiagnosticWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tcdiag",
			Name:      "diagnostic_warnings_total",
			Help:      "Total non-fatal warnings raised by diagnostic applications.",
		}),
		SummariesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tcdiag",
			Name:      "summaries_published_total",
			Help:      "Total diagnostic summaries written to the sink topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tcdiag",
			Name:      "pipeline_running",
			Help:      "1 when a diagnostics run is active, 0 otherwise.",
		}),
		AppRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tcdiag",
			Name:      "app_runs_total",
			Help:      "Diagnostic application runs by application and outcome.",
		}, []string{"app", "outcome"}),
		AppDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tcdiag",
			Name:      "app_duration_seconds",
			Help:      "Duration of a single diagnostic application.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"app"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "tcdiag",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete resolve-compute-publish cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}

	prometheus.MustRegister(
		m.FieldsResolved,
		m.DiagnosticWarnings,
		m.SummariesPublished,
		m.PipelineRunning,
		m.AppRuns,
		m.AppDuration,
		m.RunDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FieldsResolved:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tcdiag", Name: "fields_resolved_total"}),
		DiagnosticWarnings: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tcdiag", Name: "diagnostic_warnings_total"}),
		SummariesPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "tcdiag", Name: "summaries_published_total"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "tcdiag", Name: "pipeline_running"}),
		AppRuns:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "tcdiag", Name: "app_runs_total"}, []string{"app", "outcome"}),
		AppDuration:        prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "tcdiag", Name: "app_duration_seconds"}, []string{"app"}),
		RunDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "tcdiag", Name: "run_duration_seconds"}),
	}
}

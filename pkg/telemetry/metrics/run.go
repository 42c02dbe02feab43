package metrics

import (
	"time"

	"mercator-hq/auditor/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RunMetrics tracks whole-run metrics and the session gauge.
//
// Metrics:
//   - auditor_runs_total: Finished runs by status
//   - auditor_run_duration_seconds: Wall time of a run
//   - auditor_last_run_findings: Findings of the most recent run by kind
//   - auditor_sessions_open: Query sessions currently open (0 or 1)
type RunMetrics struct {
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	lastRunFindings *prometheus.GaugeVec
	sessionsOpen    prometheus.Gauge
}

// NewRunMetrics creates and registers run metrics with the provided registry.
func NewRunMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RunMetrics {
	rm := &RunMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "runs_total",
				Help:      "Total number of audit runs by status",
			},
			[]string{"status"},
		),

		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of an audit run in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~43min
			},
		),

		lastRunFindings: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "last_run_findings",
				Help:      "Findings reported by the most recent run",
			},
			[]string{"kind"},
		),

		sessionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "sessions_open",
				Help:      "Number of query sessions currently open",
			},
		),
	}

	registry.MustRegister(
		rm.runsTotal,
		rm.runDuration,
		rm.lastRunFindings,
		rm.sessionsOpen,
	)

	return rm
}

// RecordRun records a finished run.
func (rm *RunMetrics) RecordRun(status string, duration time.Duration, multi, queryErrors int) {
	rm.runsTotal.WithLabelValues(status).Inc()
	rm.runDuration.Observe(duration.Seconds())
	rm.lastRunFindings.WithLabelValues("multi").Set(float64(multi))
	rm.lastRunFindings.WithLabelValues("queryerror").Set(float64(queryErrors))
}

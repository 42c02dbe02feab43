package metrics

import (
	"mercator-hq/auditor/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// OpsMetrics tracks remediation, rule reloads and history retention.
//
// Metrics:
//   - auditor_fixes_total: Attempted fixes by check ID and status
//   - auditor_rule_reloads_total: Rule reloads by status
//   - auditor_rules_loaded: Number of loaded check definitions
//   - auditor_history_pruned_runs_total: Runs deleted by retention
type OpsMetrics struct {
	fixesTotal   *prometheus.CounterVec
	reloadsTotal *prometheus.CounterVec
	rulesLoaded  prometheus.Gauge
	prunedTotal  prometheus.Counter
}

// NewOpsMetrics creates and registers operational metrics with the provided registry.
func NewOpsMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *OpsMetrics {
	om := &OpsMetrics{
		fixesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "fixes_total",
				Help:      "Total number of attempted fixes by status",
			},
			[]string{"check_id", "status"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_reloads_total",
				Help:      "Total number of rule reloads by status",
			},
			[]string{"status"},
		),

		rulesLoaded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "rules_loaded",
				Help:      "Number of check definitions currently loaded",
			},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "history_pruned_runs_total",
				Help:      "Total number of runs deleted by the retention pruner",
			},
		),
	}

	registry.MustRegister(
		om.fixesTotal,
		om.reloadsTotal,
		om.rulesLoaded,
		om.prunedTotal,
	)

	return om
}

package metrics

import (
	"time"

	"mercator-hq/auditor/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckMetrics tracks per-check evaluation metrics.
//
// Metrics:
//   - auditor_checks_total: Classified checks by check ID and outcome kind
//   - auditor_check_duration_seconds: Session wall time per check
type CheckMetrics struct {
	checksTotal   *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
}

// NewCheckMetrics creates and registers check metrics with the provided registry.
func NewCheckMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CheckMetrics {
	cm := &CheckMetrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "checks_total",
				Help:      "Total number of evaluated checks by outcome kind",
			},
			[]string{"check_id", "kind"},
		),

		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "check_duration_seconds",
				Help:      "Duration of a check query session in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"check_id"},
		),
	}

	registry.MustRegister(cm.checksTotal, cm.checkDuration)

	return cm
}

// Record records one classified check.
func (cm *CheckMetrics) Record(checkID, kind string, duration time.Duration) {
	cm.checksTotal.WithLabelValues(checkID, kind).Inc()
	cm.checkDuration.WithLabelValues(checkID).Observe(duration.Seconds())
}

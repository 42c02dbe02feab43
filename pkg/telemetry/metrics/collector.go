package metrics

import (
	"sync"
	"time"

	"mercator-hq/auditor/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// OtherCheckID replaces check IDs beyond the cardinality limit.
const OtherCheckID = "other"

// Collector is the main orchestrator for all Prometheus metrics of the auditor.
// It manages metric registration and provides a unified interface for
// recording check, run, session and remediation metrics.
//
// Check IDs come from user-supplied rule documents, so label sets keyed by
// check ID are capped by a CardinalityLimiter.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	checkMetrics *CheckMetrics
	runMetrics   *RunMetrics
	opsMetrics   *OpsMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "auditor",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &config.MetricsConfig{}
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:             cfg,
		registry:           registry,
		checkMetrics:       NewCheckMetrics(cfg, registry),
		runMetrics:         NewRunMetrics(cfg, registry),
		opsMetrics:         NewOpsMetrics(cfg, registry),
		cardinalityLimiter: NewCardinalityLimiter(1000),
	}
}

// RecordCheck records one classified check.
//
// Parameters:
//   - checkID: Check identifier
//   - kind: Outcome kind ("multi", "none", "queryerror")
//   - duration: Session wall time
func (c *Collector) RecordCheck(checkID, kind string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.checkMetrics.Record(c.limitCheckID(checkID), kind, duration)
}

// RecordRun records a finished run.
//
// Parameters:
//   - status: "ok", "findings", "aborted" or "cancelled"
//   - duration: Total run duration
//   - multi, queryErrors: Finding counts of the run
func (c *Collector) RecordRun(status string, duration time.Duration, multi, queryErrors int) {
	if !c.config.Enabled {
		return
	}

	c.runMetrics.RecordRun(status, duration, multi, queryErrors)
}

// SessionOpened increments the open session gauge.
func (c *Collector) SessionOpened() {
	if !c.config.Enabled {
		return
	}
	c.runMetrics.sessionsOpen.Inc()
}

// SessionClosed decrements the open session gauge.
func (c *Collector) SessionClosed() {
	if !c.config.Enabled {
		return
	}
	c.runMetrics.sessionsOpen.Dec()
}

// RecordFix records an attempted remediation.
//
// Parameters:
//   - checkID: Check identifier
//   - status: "applied" or "failed"
func (c *Collector) RecordFix(checkID, status string) {
	if !c.config.Enabled {
		return
	}

	c.opsMetrics.fixesTotal.WithLabelValues(c.limitCheckID(checkID), status).Inc()
}

// RecordReload records a rule reload attempt and, on success, the number
// of definitions now loaded.
func (c *Collector) RecordReload(success bool, loaded int) {
	if !c.config.Enabled {
		return
	}

	status := "success"
	if !success {
		status = "error"
	}
	c.opsMetrics.reloadsTotal.WithLabelValues(status).Inc()
	if success {
		c.opsMetrics.rulesLoaded.Set(float64(loaded))
	}
}

// SetRulesLoaded sets the number of loaded check definitions.
func (c *Collector) SetRulesLoaded(n int) {
	if !c.config.Enabled {
		return
	}
	c.opsMetrics.rulesLoaded.Set(float64(n))
}

// RecordPrune records runs deleted by the retention pruner.
func (c *Collector) RecordPrune(deleted int64) {
	if !c.config.Enabled {
		return
	}
	c.opsMetrics.prunedTotal.Add(float64(deleted))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) limitCheckID(checkID string) string {
	if !c.cardinalityLimiter.Allow(checkID) {
		return OtherCheckID
	}
	return checkID
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values tracked.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label. Known values are
// always allowed; new values are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	_, exists := cl.current[value]
	cl.mu.RUnlock()
	if exists {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}

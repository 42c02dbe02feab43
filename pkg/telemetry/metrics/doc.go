// Package metrics provides Prometheus metrics collection for the auditor.
//
// # Metrics
//
//   - auditor_checks_total{check_id,kind}
//   - auditor_check_duration_seconds{check_id}
//   - auditor_runs_total{status}, auditor_run_duration_seconds
//   - auditor_last_run_findings{kind}
//   - auditor_sessions_open
//   - auditor_fixes_total{check_id,status}
//   - auditor_rule_reloads_total{status}, auditor_rules_loaded
//   - auditor_history_pruned_runs_total
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	manager.SetObserver(collector) // tracks sessions_open
//	collector.RecordCheck("negative-totals", "multi", 12*time.Millisecond)
//
//	http.Handle("/metrics", collector.Handler())
//
// All recording methods are no-ops when metrics are disabled.
package metrics

// Package tracing provides OpenTelemetry tracing for audit runs.
//
// Each run gets an "audit.run" span and each evaluated check a "check.run"
// child span carrying the check ID, outcome kind, code and row count.
// Spans are exported over OTLP gRPC:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    endpoint: localhost:4317
//	    insecure: true
//	    sampler: ratio
//	    sample_ratio: 0.5
//
// When tracing is disabled New returns a noop tracer, so callers never
// need to check Enabled before starting spans.
package tracing

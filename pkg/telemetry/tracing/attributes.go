package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for auditor spans.
const (
	AttrRunID       = attribute.Key("audit.run_id")
	AttrCheckID     = attribute.Key("audit.check_id")
	AttrCheckSource = attribute.Key("audit.check_source")
	AttrKind        = attribute.Key("audit.outcome.kind")
	AttrCode        = attribute.Key("audit.outcome.code")
	AttrCount       = attribute.Key("audit.outcome.count")
	AttrChecks      = attribute.Key("audit.checks")
	AttrFindings    = attribute.Key("audit.findings")
)

// CheckStartOptions returns span start options tagging a check span.
func CheckStartOptions(checkID, source string) trace.SpanStartOption {
	attrs := []attribute.KeyValue{AttrCheckID.String(checkID)}
	if source != "" {
		attrs = append(attrs, AttrCheckSource.String(source))
	}
	return trace.WithAttributes(attrs...)
}

// SetOutcomeAttributes records a check outcome on span.
func SetOutcomeAttributes(span trace.Span, kind, code string, count int) {
	span.SetAttributes(
		AttrKind.String(kind),
		AttrCode.String(code),
		AttrCount.Int(count),
	)
}

// SetRunAttributes records run-level attributes on span.
func SetRunAttributes(span trace.Span, runID string, checks, findings int) {
	span.SetAttributes(
		AttrRunID.String(runID),
		AttrChecks.Int(checks),
		AttrFindings.Int(findings),
	)
}

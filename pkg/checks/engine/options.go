package engine

import (
	"log/slog"
	"time"

	"mercator-hq/auditor/pkg/report"
	"mercator-hq/auditor/pkg/telemetry/tracing"
)

// Recorder receives per-check and per-run measurements. The metrics
// Collector implements it.
type Recorder interface {
	RecordCheck(checkID, kind string, duration time.Duration)
	RecordRun(status string, duration time.Duration, multi, queryErrors int)
}

type nopRecorder struct{}

func (nopRecorder) RecordCheck(string, string, time.Duration) {}
func (nopRecorder) RecordRun(string, time.Duration, int, int) {}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets the sink every finished run is reported to.
func WithSink(sink report.Sink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithLogger sets the engine's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics sets the recorder for check and run metrics.
func WithMetrics(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

// WithTracer sets the tracer for run and check spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithVars sets the variables available to query templates.
func WithVars(vars map[string]string) Option {
	return func(e *Engine) {
		e.vars = make(map[string]string, len(vars))
		for k, v := range vars {
			e.vars[k] = v
		}
	}
}

// WithClock replaces time.Now for run timestamps and check durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

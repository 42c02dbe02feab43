package report

import (
	"context"
	"errors"
	"log/slog"

	"mercator-hq/auditor/pkg/checks"
)

// Sink receives the ordered outcomes of a finished run. Sinks decide
// presentation and persistence; the engine only hands them the run.
type Sink interface {
	Report(ctx context.Context, run *checks.Run) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, run *checks.Run) error

// Report implements Sink.
func (f SinkFunc) Report(ctx context.Context, run *checks.Run) error {
	return f(ctx, run)
}

// Discard is a Sink that drops every run.
var Discard Sink = SinkFunc(func(context.Context, *checks.Run) error { return nil })

// MultiSink fans a run out to several sinks. Every sink is called even when
// an earlier one fails; the failures are joined.
type MultiSink []Sink

// Report implements Sink.
func (m MultiSink) Report(ctx context.Context, run *checks.Run) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Report(ctx, run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes one structured record per outcome and a summary record.
// Clear checks log at info, triggered checks at warn and failed queries at
// error.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "report")}
}

// Report implements Sink.
func (s *LogSink) Report(ctx context.Context, run *checks.Run) error {
	for _, o := range run.Outcomes {
		attrs := []any{
			"run_id", run.ID,
			"check_id", o.CheckID,
			"kind", string(o.Kind),
			"code", o.Code,
			"count", o.Count,
			"duration", o.Duration,
		}
		switch o.Kind {
		case checks.KindMulti:
			if o.Fix != "" {
				attrs = append(attrs, "fix", o.Fix)
			}
			s.logger.WarnContext(ctx, o.Message, attrs...)
		case checks.KindQueryError:
			attrs = append(attrs, "error", o.Error)
			s.logger.ErrorContext(ctx, o.Message, attrs...)
		default:
			s.logger.InfoContext(ctx, o.Message, attrs...)
		}
	}

	sum := run.Summary()
	s.logger.InfoContext(ctx, "audit run complete",
		"run_id", run.ID,
		"total", sum.Total,
		"multi", sum.Multi,
		"none", sum.None,
		"queryerror", sum.QueryError,
		"duration", run.FinishedAt.Sub(run.StartedAt),
	)
	return nil
}

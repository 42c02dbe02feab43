package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/checks/classifier"
	"mercator-hq/auditor/pkg/checks/session"
	"mercator-hq/auditor/pkg/report"
	"mercator-hq/auditor/pkg/telemetry/logging"
	"mercator-hq/auditor/pkg/telemetry/tracing"
)

// Run statuses passed to the Recorder.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// ErrUnknownCheck is returned by RunByID when no check has the given ID.
var ErrUnknownCheck = errors.New("unknown check")

// Engine evaluates check definitions one at a time through a session
// manager and reports each finished run to its sink.
type Engine struct {
	sessions *session.Manager
	sink     report.Sink
	logger   *slog.Logger
	metrics  Recorder
	tracer   *tracing.Tracer
	vars     map[string]string
	now      func() time.Time
}

// New creates an engine over sessions.
func New(sessions *session.Manager, opts ...Option) *Engine {
	e := &Engine{
		sessions: sessions,
		logger:   slog.Default(),
		metrics:  nopRecorder{},
		tracer:   tracing.Noop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "checks.engine")
	return e
}

// RunAll evaluates defs in order and returns one outcome per definition.
//
// A failing query becomes a queryerror outcome and the batch continues. An
// invariant violation aborts the batch and is returned without a run, as is
// the context error when ctx ends between two checks. The finished run is
// handed to the sink; a sink failure is returned together with the run.
func (e *Engine) RunAll(ctx context.Context, defs []*checks.Definition) (*checks.Run, error) {
	run := &checks.Run{
		ID:        uuid.NewString(),
		StartedAt: e.now(),
		Outcomes:  make([]*checks.Outcome, 0, len(defs)),
	}

	ctx = logging.WithRunID(ctx, run.ID)
	ctx, span := e.tracer.Start(ctx, "audit.run")
	defer span.End()

	e.logger.InfoContext(ctx, "audit run started", "checks", len(defs))

	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			e.abort(ctx, span, run, StatusCancelled, err)
			return nil, err
		}

		outcome, err := e.RunOne(ctx, def)
		if err != nil {
			e.abort(ctx, span, run, StatusFailed, err)
			return nil, err
		}
		run.Outcomes = append(run.Outcomes, outcome)
	}

	// A cancellation during the last check surfaces as its queryerror.
	if err := ctx.Err(); err != nil {
		e.abort(ctx, span, run, StatusCancelled, err)
		return nil, err
	}

	run.FinishedAt = e.now()
	sum := run.Summary()
	e.metrics.RecordRun(StatusCompleted, run.FinishedAt.Sub(run.StartedAt), sum.Multi, sum.QueryError)
	tracing.SetRunAttributes(span, run.ID, sum.Total, sum.Multi+sum.QueryError)

	e.logger.InfoContext(ctx, "audit run finished",
		"checks", sum.Total,
		"multi", sum.Multi,
		"queryerror", sum.QueryError,
		"duration", run.FinishedAt.Sub(run.StartedAt),
	)

	if e.sink != nil {
		if err := e.sink.Report(ctx, run); err != nil {
			tracing.SetStatus(span, err)
			return run, fmt.Errorf("report run %s: %w", run.ID, err)
		}
	}
	return run, nil
}

func (e *Engine) abort(ctx context.Context, span trace.Span, run *checks.Run, status string, err error) {
	sum := run.Summary()
	e.metrics.RecordRun(status, e.now().Sub(run.StartedAt), sum.Multi, sum.QueryError)
	tracing.SetStatus(span, err)
	e.logger.ErrorContext(ctx, "audit run aborted",
		"status", status,
		"completed_checks", sum.Total,
		"error", err,
	)
}

// RunOne evaluates a single definition. The session opened for the query
// is released before the outcome is returned.
//
// A check moves from pending to executing when its session opens, and ends
// either classified (multi or none) or failed (queryerror). Only an
// invariant violation is returned as an error.
func (e *Engine) RunOne(ctx context.Context, def *checks.Definition) (*checks.Outcome, error) {
	if def == nil {
		return nil, checks.NewInvariantError("", "nil check definition")
	}

	ctx = logging.WithCheckID(ctx, def.ID)
	ctx, span := e.tracer.Start(ctx, "check.run", tracing.CheckStartOptions(def.ID, def.Source))
	defer span.End()

	outcome, err := e.evaluate(ctx, def)
	if err != nil {
		tracing.SetStatus(span, err)
		e.logger.ErrorContext(ctx, "check aborted", "error", err)
		return nil, err
	}

	tracing.SetOutcomeAttributes(span, string(outcome.Kind), outcome.Code, outcome.Count)
	e.metrics.RecordCheck(def.ID, string(outcome.Kind), outcome.Duration)

	if outcome.Kind == checks.KindQueryError {
		e.logger.WarnContext(ctx, "check query failed", "query", outcome.Query, "error", outcome.Error)
	} else {
		e.logger.DebugContext(ctx, "check classified",
			"kind", string(outcome.Kind),
			"count", outcome.Count,
			"duration", outcome.Duration,
		)
	}
	return outcome, nil
}

func (e *Engine) evaluate(ctx context.Context, def *checks.Definition) (*checks.Outcome, error) {
	rendered, err := render(def.Query, e.vars)
	if err != nil {
		cause := checks.NewExecutionError(def.Query, fmt.Errorf("render query: %w", err))
		return checks.NewQueryErrorOutcome(def, def.Query, cause, 0), nil
	}

	var outcome *checks.Outcome
	start := e.now()
	err = e.sessions.Run(ctx, rendered, func(res session.Result) error {
		var cerr error
		outcome, cerr = classifier.Classify(def, rendered, res, e.now().Sub(start))
		return cerr
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// RunByID evaluates the check registered under id as a run of its own,
// reported to the sink like any other run.
func (e *Engine) RunByID(ctx context.Context, reg *Registry, id string) (*checks.Run, error) {
	def, ok := reg.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCheck, id)
	}
	return e.RunAll(ctx, []*checks.Definition{def})
}

package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/checks/session"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/report"
	"mercator-hq/auditor/pkg/telemetry/logging"
	"mercator-hq/auditor/pkg/telemetry/tracing"
)

const negQuery = "SELECT * FROM orders WHERE total<0"

func negativeTotals() *checks.Definition {
	return &checks.Definition{
		ID:    "negative-totals",
		Query: negQuery,
		None:  checks.Branch{Code: "ok", Message: "No negative totals"},
		Multi: checks.Branch{Code: "neg_totals", Message: "Found negative totals"},
		Fix:   "recalculate",
	}
}

func newEngine(svc session.Service, opts ...Option) *Engine {
	m := session.NewManager(svc, nil, logging.Discard())
	return New(m, append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

type runCapture struct {
	runs []*checks.Run
	err  error
}

func (c *runCapture) Report(_ context.Context, run *checks.Run) error {
	c.runs = append(c.runs, run)
	return c.err
}

type fakeRecorder struct {
	checks map[string]string
	runs   []string
}

func (r *fakeRecorder) RecordCheck(checkID, kind string, _ time.Duration) {
	if r.checks == nil {
		r.checks = make(map[string]string)
	}
	r.checks[checkID] = kind
}

func (r *fakeRecorder) RecordRun(status string, _ time.Duration, _, _ int) {
	r.runs = append(r.runs, status)
}

func TestRunOne_Examples(t *testing.T) {
	tests := []struct {
		name        string
		script      session.Script
		wantCode    string
		wantMessage string
		wantCount   int
		wantFix     string
	}{
		{
			name:        "three matching rows",
			script:      session.Script{Rows: 3},
			wantCode:    "neg_totals",
			wantMessage: "Found negative totals",
			wantCount:   3,
			wantFix:     "recalculate",
		},
		{
			name:        "no matching rows",
			script:      session.Script{Rows: 0},
			wantCode:    "ok",
			wantMessage: "No negative totals",
			wantCount:   0,
			wantFix:     "",
		},
		{
			name:        "query fails",
			script:      session.Script{Err: errors.New("relation \"orders\" does not exist")},
			wantCode:    "queryerror",
			wantMessage: "Query error SELECT * FROM orders WHERE total<0",
			wantCount:   -1,
			wantFix:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := session.NewScriptedService(map[string]session.Script{negQuery: tt.script}, session.Script{})
			e := newEngine(svc)

			got, err := e.RunOne(context.Background(), negativeTotals())
			if err != nil {
				t.Fatalf("RunOne() error = %v, want nil", err)
			}
			if got.Code != tt.wantCode || got.Message != tt.wantMessage || got.Count != tt.wantCount || got.Fix != tt.wantFix {
				t.Errorf("RunOne() = {code:%q message:%q count:%d fix:%q}, want {code:%q message:%q count:%d fix:%q}",
					got.Code, got.Message, got.Count, got.Fix,
					tt.wantCode, tt.wantMessage, tt.wantCount, tt.wantFix)
			}
			if svc.Starts() != 1 || svc.Ends() != 1 {
				t.Errorf("sessions started/ended = %d/%d, want 1/1", svc.Starts(), svc.Ends())
			}
		})
	}
}

func TestRunAll_ContinuesAfterQueryError(t *testing.T) {
	svc := session.NewScriptedService(map[string]session.Script{
		"SELECT a": {Err: errors.New("boom")},
		"SELECT b": {Rows: 2},
		"SELECT c": {Rows: 0},
	}, session.Script{})
	capture := &runCapture{}
	rec := &fakeRecorder{}
	e := newEngine(svc, WithSink(capture), WithMetrics(rec))

	defs := []*checks.Definition{
		{ID: "a", Query: "SELECT a"},
		{ID: "b", Query: "SELECT b", Multi: checks.Branch{Code: "b_found"}},
		{ID: "c", Query: "SELECT c", None: checks.Branch{Code: "c_ok"}},
	}
	run, err := e.RunAll(context.Background(), defs)
	if err != nil {
		t.Fatalf("RunAll() error = %v, want nil", err)
	}

	wantKinds := []checks.Kind{checks.KindQueryError, checks.KindMulti, checks.KindNone}
	if len(run.Outcomes) != len(wantKinds) {
		t.Fatalf("len(Outcomes) = %d, want %d", len(run.Outcomes), len(wantKinds))
	}
	for i, want := range wantKinds {
		if run.Outcomes[i].CheckID != defs[i].ID || run.Outcomes[i].Kind != want {
			t.Errorf("Outcomes[%d] = %s/%s, want %s/%s", i, run.Outcomes[i].CheckID, run.Outcomes[i].Kind, defs[i].ID, want)
		}
	}

	if run.ID == "" || run.FinishedAt.Before(run.StartedAt) {
		t.Errorf("run = %+v, want ID and ordered timestamps", run)
	}
	if len(capture.runs) != 1 || capture.runs[0] != run {
		t.Errorf("sink received %d runs, want the returned run once", len(capture.runs))
	}
	if svc.Starts() != 3 || svc.Ends() != 3 || svc.Overlaps() != 0 {
		t.Errorf("sessions = %d started, %d ended, %d overlaps, want 3/3/0", svc.Starts(), svc.Ends(), svc.Overlaps())
	}
	if rec.checks["a"] != "queryerror" || rec.checks["b"] != "multi" || rec.checks["c"] != "none" {
		t.Errorf("recorded checks = %v", rec.checks)
	}
	if len(rec.runs) != 1 || rec.runs[0] != StatusCompleted {
		t.Errorf("recorded runs = %v, want [completed]", rec.runs)
	}
}

func TestRunAll_EveryCheckFails(t *testing.T) {
	svc := session.NewScriptedService(nil, session.Script{Err: errors.New("connection refused")})
	e := newEngine(svc)

	defs := []*checks.Definition{{ID: "a", Query: "SELECT 1"}, {ID: "b", Query: "SELECT 2"}}
	run, err := e.RunAll(context.Background(), defs)
	if err != nil {
		t.Fatalf("RunAll() error = %v, want nil", err)
	}
	if sum := run.Summary(); sum.QueryError != 2 {
		t.Errorf("Summary() = %+v, want 2 query errors", sum)
	}
	if svc.Starts() != svc.Ends() {
		t.Errorf("sessions started/ended = %d/%d, want equal", svc.Starts(), svc.Ends())
	}
}

type negativeHandle struct{}

func (negativeHandle) RowCount() int { return -3 }

type brokenService struct{ *session.ScriptedService }

func (s brokenService) StartQuery(ctx context.Context, text string) (session.Handle, error) {
	if _, err := s.ScriptedService.StartQuery(ctx, text); err != nil {
		return nil, err
	}
	if text == "SELECT broken" {
		return negativeHandle{}, nil
	}
	return session.Count(0), nil
}

func TestRunAll_InvariantViolationAborts(t *testing.T) {
	scripted := session.NewScriptedService(nil, session.Script{})
	capture := &runCapture{}
	rec := &fakeRecorder{}
	e := newEngine(brokenService{scripted}, WithSink(capture), WithMetrics(rec))

	defs := []*checks.Definition{
		{ID: "a", Query: "SELECT a"},
		{ID: "broken", Query: "SELECT broken"},
		{ID: "c", Query: "SELECT c"},
	}
	run, err := e.RunAll(context.Background(), defs)
	if !errors.Is(err, checks.ErrInvariantViolation) {
		t.Fatalf("RunAll() error = %v, want ErrInvariantViolation", err)
	}
	if run != nil {
		t.Errorf("RunAll() run = %+v, want nil", run)
	}
	if len(capture.runs) != 0 {
		t.Error("sink called for an aborted run")
	}
	if scripted.Starts() != 2 || scripted.Ends() != 2 {
		t.Errorf("sessions started/ended = %d/%d, want 2/2 (released before abort)", scripted.Starts(), scripted.Ends())
	}
	if len(rec.runs) != 1 || rec.runs[0] != StatusFailed {
		t.Errorf("recorded runs = %v, want [failed]", rec.runs)
	}
}

func TestRunAll_CancelledBetweenChecks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := session.NewScriptedService(nil, session.Script{Rows: 1})
	cancelAfterFirst := &cancelService{ScriptedService: svc, cancel: cancel}
	e := newEngine(cancelAfterFirst)

	defs := []*checks.Definition{{ID: "a", Query: "SELECT a"}, {ID: "b", Query: "SELECT b"}}
	run, err := e.RunAll(ctx, defs)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunAll() error = %v, want context.Canceled", err)
	}
	if run != nil {
		t.Errorf("RunAll() run = %+v, want nil", run)
	}
	if svc.Starts() != 1 || svc.Ends() != 1 {
		t.Errorf("sessions started/ended = %d/%d, want 1/1", svc.Starts(), svc.Ends())
	}
}

func TestRunAll_CancelledDuringLastCheck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := session.NewScriptedService(nil, session.Script{Rows: 1})
	sink := &runCapture{}
	e := newEngine(&cancelService{ScriptedService: svc, cancel: cancel}, WithSink(sink))

	run, err := e.RunAll(ctx, []*checks.Definition{{ID: "only", Query: "SELECT 1"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunAll() error = %v, want context.Canceled", err)
	}
	if run != nil {
		t.Errorf("RunAll() run = %+v, want nil", run)
	}
	if len(sink.runs) != 0 {
		t.Errorf("sink received %d runs, want 0 for a cancelled run", len(sink.runs))
	}
	if svc.Starts() != svc.Ends() {
		t.Errorf("sessions started/ended = %d/%d, want equal", svc.Starts(), svc.Ends())
	}
}

// cancelService cancels the run's context when the first session ends.
type cancelService struct {
	*session.ScriptedService
	cancel context.CancelFunc
}

func (s *cancelService) EndQuery() error {
	err := s.ScriptedService.EndQuery()
	s.cancel()
	return err
}

func TestRunAll_SinkErrorReturnsRun(t *testing.T) {
	sinkErr := errors.New("disk full")
	e := newEngine(session.NewScriptedService(nil, session.Script{}), WithSink(&runCapture{err: sinkErr}))

	run, err := e.RunAll(context.Background(), []*checks.Definition{{ID: "a", Query: "SELECT 1"}})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("RunAll() error = %v, want sink error", err)
	}
	if run == nil || len(run.Outcomes) != 1 {
		t.Errorf("RunAll() run = %+v, want completed run", run)
	}
}

func TestRunAll_Empty(t *testing.T) {
	svc := session.NewScriptedService(nil, session.Script{})
	run, err := newEngine(svc).RunAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunAll() error = %v, want nil", err)
	}
	if len(run.Outcomes) != 0 || svc.Starts() != 0 {
		t.Errorf("RunAll(nil) = %d outcomes, %d sessions, want 0/0", len(run.Outcomes), svc.Starts())
	}
}

func TestRunAll_UniqueRunIDs(t *testing.T) {
	e := newEngine(session.NewScriptedService(nil, session.Script{}))
	first, _ := e.RunAll(context.Background(), nil)
	second, _ := e.RunAll(context.Background(), nil)
	if first.ID == second.ID {
		t.Errorf("run IDs = %q and %q, want distinct", first.ID, second.ID)
	}
}

func TestRunOne_TemplateVars(t *testing.T) {
	svc := session.NewScriptedService(nil, session.Script{Rows: 1})
	e := newEngine(svc, WithVars(map[string]string{"schema": "sales"}))

	def := &checks.Definition{ID: "t", Query: "SELECT * FROM {{.schema}}.orders", Multi: checks.Branch{Code: "found"}}
	got, err := e.RunOne(context.Background(), def)
	if err != nil {
		t.Fatalf("RunOne() error = %v, want nil", err)
	}
	if got.Query != "SELECT * FROM sales.orders" {
		t.Errorf("Query = %q, want rendered query", got.Query)
	}
	if q := svc.Queries(); len(q) != 1 || q[0] != "SELECT * FROM sales.orders" {
		t.Errorf("executed = %v, want rendered query", q)
	}
}

func TestRunOne_TemplateMissingVar(t *testing.T) {
	svc := session.NewScriptedService(nil, session.Script{Rows: 1})
	e := newEngine(svc)

	def := &checks.Definition{ID: "t", Query: "SELECT * FROM {{.schema}}.orders"}
	got, err := e.RunOne(context.Background(), def)
	if err != nil {
		t.Fatalf("RunOne() error = %v, want nil", err)
	}
	if got.Kind != checks.KindQueryError {
		t.Fatalf("Kind = %s, want queryerror", got.Kind)
	}
	if got.Message != "Query error SELECT * FROM {{.schema}}.orders" {
		t.Errorf("Message = %q, want raw template in message", got.Message)
	}
	if svc.Starts() != 0 {
		t.Errorf("sessions started = %d, want 0 for an unrenderable query", svc.Starts())
	}
}

func TestRunOne_Nil(t *testing.T) {
	_, err := newEngine(session.NewScriptedService(nil, session.Script{})).RunOne(context.Background(), nil)
	if !errors.Is(err, checks.ErrInvariantViolation) {
		t.Errorf("RunOne(nil) error = %v, want ErrInvariantViolation", err)
	}
}

func TestRunOne_Clock(t *testing.T) {
	base := time.Date(2026, 1, 12, 3, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * 5 * time.Millisecond)
	}
	e := newEngine(session.NewScriptedService(nil, session.Script{}), WithClock(clock))

	got, err := e.RunOne(context.Background(), &checks.Definition{ID: "a", Query: "SELECT 1"})
	if err != nil {
		t.Fatalf("RunOne() error = %v, want nil", err)
	}
	if got.Duration != 5*time.Millisecond {
		t.Errorf("Duration = %v, want 5ms from the injected clock", got.Duration)
	}
}

func TestRunByID(t *testing.T) {
	svc := session.NewScriptedService(map[string]session.Script{negQuery: {Rows: 3}}, session.Script{})
	e := newEngine(svc)
	reg := NewRegistry([]*checks.Definition{negativeTotals(), {ID: "other", Query: "SELECT 1"}})

	run, err := e.RunByID(context.Background(), reg, "negative-totals")
	if err != nil {
		t.Fatalf("RunByID() error = %v, want nil", err)
	}
	if len(run.Outcomes) != 1 || run.Outcomes[0].Code != "neg_totals" {
		t.Errorf("RunByID() outcomes = %+v, want single neg_totals outcome", run.Outcomes)
	}

	if _, err := e.RunByID(context.Background(), reg, "missing"); !errors.Is(err, ErrUnknownCheck) {
		t.Errorf("RunByID(missing) error = %v, want ErrUnknownCheck", err)
	}
}

func TestRunAll_Spans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tr, err := tracing.NewWithExporter(&config.TracingConfig{Enabled: true, Sampler: tracing.SamplerAlways}, exporter, tracing.WithSyncExport())
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v, want nil", err)
	}
	defer tr.Shutdown(context.Background())

	e := newEngine(session.NewScriptedService(nil, session.Script{Rows: 2}), WithTracer(tr))
	defs := []*checks.Definition{{ID: "a", Query: "SELECT a"}, {ID: "b", Query: "SELECT b"}}
	if _, err := e.RunAll(context.Background(), defs); err != nil {
		t.Fatalf("RunAll() error = %v, want nil", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("exported %d spans, want 2 checks + 1 run", len(spans))
	}
	names := map[string]int{}
	for _, s := range spans {
		names[s.Name]++
	}
	if names["check.run"] != 2 || names["audit.run"] != 1 {
		t.Errorf("span names = %v, want 2 check.run and 1 audit.run", names)
	}

	root := spans[len(spans)-1]
	for _, s := range spans[:2] {
		if s.Parent.SpanID() != root.SpanContext.SpanID() {
			t.Errorf("span %s parent = %s, want audit.run span", s.Name, s.Parent.SpanID())
		}
	}
}

var _ report.Sink = (*runCapture)(nil)

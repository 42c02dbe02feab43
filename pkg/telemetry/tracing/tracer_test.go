package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/auditor/pkg/config"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_Disabled(t *testing.T) {
	tr, err := New(&config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v, want nil", err)
	}
	if tr.Enabled() {
		t.Error("Enabled() = true, want false")
	}

	ctx, span := tr.Start(context.Background(), "check.run")
	span.End()
	if TraceID(ctx) != "" {
		t.Error("noop tracer produced a valid trace ID")
	}
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v, want nil", err)
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) error = nil, want error")
	}
}

func TestNewWithExporter(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tr, err := NewWithExporter(&config.TracingConfig{Enabled: true, Sampler: SamplerAlways}, exporter, WithSyncExport())
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v, want nil", err)
	}
	defer tr.Shutdown(context.Background())

	ctx, span := tr.Start(context.Background(), "check.run", CheckStartOptions("negative-totals", "orders.yaml"))
	SetOutcomeAttributes(span, "multi", "neg_totals", 3)
	SetStatus(span, nil)
	if TraceID(ctx) == "" {
		t.Error("TraceID() is empty inside an enabled span")
	}
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}
	got := map[string]any{}
	for _, kv := range spans[0].Attributes {
		got[string(kv.Key)] = kv.Value.AsInterface()
	}
	if got["audit.check_id"] != "negative-totals" {
		t.Errorf("audit.check_id = %v", got["audit.check_id"])
	}
	if got["audit.outcome.count"] != int64(3) {
		t.Errorf("audit.outcome.count = %v, want 3", got["audit.outcome.count"])
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[0].Status.Code)
	}
}

// blockingExporter holds every export until release is closed.
type blockingExporter struct {
	*tracetest.InMemoryExporter
	release chan struct{}
}

func (e *blockingExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	select {
	case <-e.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return e.InMemoryExporter.ExportSpans(ctx, spans)
}

// Shutdown keeps the recorded spans; the in-memory exporter resets them.
func (e *blockingExporter) Shutdown(context.Context) error {
	return nil
}

func TestNewWithExporter_BatchesByDefault(t *testing.T) {
	exporter := &blockingExporter{
		InMemoryExporter: tracetest.NewInMemoryExporter(),
		release:          make(chan struct{}),
	}
	tr, err := NewWithExporter(&config.TracingConfig{Enabled: true, Sampler: SamplerAlways}, exporter)
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v, want nil", err)
	}

	ended := make(chan struct{})
	go func() {
		for i := 0; i < 3; i++ {
			_, span := tr.Start(context.Background(), "check.run")
			span.End()
		}
		close(ended)
	}()

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		close(exporter.release)
		t.Fatal("span.End() blocked on a slow exporter")
	}

	close(exporter.release)
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v, want nil", err)
	}
	if got := len(exporter.GetSpans()); got != 3 {
		t.Errorf("exported %d spans after Shutdown, want 3", got)
	}
}

func TestSetStatusError(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tr, err := NewWithExporter(&config.TracingConfig{Enabled: true, Sampler: SamplerAlways}, exporter, WithSyncExport())
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}

	_, span := tr.Start(context.Background(), "audit.run")
	SetStatus(span, errors.New("invariant violation"))
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Status.Code != codes.Error {
		t.Fatalf("spans = %+v, want one span with error status", spans)
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{SamplerAlways, 0, false},
		{SamplerNever, 0, false},
		{SamplerRatio, 0.5, false},
		{SamplerRatio, 1.5, true},
		{"sometimes", 0, true},
	}
	for _, tt := range tests {
		_, err := createSampler(tt.strategy, tt.ratio)
		if (err != nil) != tt.wantErr {
			t.Errorf("createSampler(%q, %v) error = %v, wantErr %v", tt.strategy, tt.ratio, err, tt.wantErr)
		}
	}
}

func TestHTTPMiddleware(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tr, err := NewWithExporter(&config.TracingConfig{Enabled: true, Sampler: SamplerAlways}, exporter, WithSyncExport())
	if err != nil {
		t.Fatalf("NewWithExporter() error = %v", err)
	}
	_ = tr

	var seen string
	h := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/runs", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("handler trace ID = %q, want propagated ID", seen)
	}
	if rec.Header().Get("X-Trace-ID") != seen {
		t.Errorf("X-Trace-ID = %q, want %q", rec.Header().Get("X-Trace-ID"), seen)
	}
}

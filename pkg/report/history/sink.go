package history

import (
	"context"

	"mercator-hq/auditor/pkg/checks"
)

// Sink records every reported run in a Store. It satisfies report.Sink.
type Sink struct {
	store Store
}

// NewSink creates a sink persisting runs to store.
func NewSink(store Store) *Sink {
	return &Sink{store: store}
}

// Report implements report.Sink.
func (s *Sink) Report(ctx context.Context, run *checks.Run) error {
	return s.store.Save(ctx, run)
}

package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mercator-hq/auditor/pkg/checks"
)

// DefaultLimit is the number of records returned when a query sets no limit.
const DefaultLimit = 100

// ErrRunNotFound is returned by Get for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is the stored header of one audit run.
type RunRecord struct {
	ID         string         `json:"id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Summary    checks.Summary `json:"summary"`
}

// Entry is one stored outcome together with the run it belongs to.
type Entry struct {
	RunID     string         `json:"run_id"`
	StartedAt time.Time      `json:"started_at"`
	Outcome   checks.Outcome `json:"outcome"`
}

// Query filters stored runs and outcomes.
//
// RunID and the time range apply to runs; CheckID and Kind apply to
// outcomes and are ignored by Runs, Count and Delete.
type Query struct {
	RunID     string     `json:"run_id,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"` // Inclusive, on run start
	EndTime   *time.Time `json:"end_time,omitempty"`   // Inclusive, on run start

	CheckID string      `json:"check_id,omitempty"`
	Kind    checks.Kind `json:"kind,omitempty"`

	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// normalize treats a nil query as an empty one and clamps a negative
// offset to zero so that both stores page identically.
func (q *Query) normalize() *Query {
	if q == nil {
		return &Query{}
	}
	if q.Offset < 0 {
		cp := *q
		cp.Offset = 0
		return &cp
	}
	return q
}

func (q *Query) limit() int {
	if q.Limit > 0 {
		return q.Limit
	}
	return DefaultLimit
}

// Store persists audit runs. Implementations are safe for concurrent use.
type Store interface {
	// Save persists a run and its ordered outcomes.
	Save(ctx context.Context, run *checks.Run) error

	// Get returns a stored run with its outcomes in evaluation order.
	Get(ctx context.Context, runID string) (*checks.Run, error)

	// Runs lists run headers, newest first.
	Runs(ctx context.Context, query *Query) ([]*RunRecord, error)

	// Query lists stored outcomes, newest run first and in evaluation
	// order within a run.
	Query(ctx context.Context, query *Query) ([]*Entry, error)

	// Count returns the number of runs matching the query.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes the matching runs and their outcomes and returns the
	// number of runs deleted.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Ping reports whether the store is usable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// StorageError is returned when a store operation fails.
type StorageError struct {
	Backend   string // "sqlite", "memory"
	Operation string // "save", "query", "delete", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

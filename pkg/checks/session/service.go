package session

import (
	"context"
)

// Service is the query execution service a Manager drives. A call to
// StartQuery opens a session; EndQuery releases it. EndQuery must be safe to
// call after StartQuery failed, and after it was never called at all.
//
// Implementations are not required to be safe for concurrent use: the
// Manager serializes every session.
type Service interface {
	// StartQuery executes text and returns a handle exposing the row count.
	StartQuery(ctx context.Context, text string) (Handle, error)

	// EndQuery releases the resources of the current session.
	EndQuery() error
}

// Handle exposes the result of a successfully executed query.
type Handle interface {
	// RowCount returns the number of rows the query produced.
	RowCount() int
}

// Count is a Handle backed by an already materialized row count.
type Count int

// RowCount implements Handle.
func (c Count) RowCount() int {
	return int(c)
}

// Result is the outcome of one session: either Ok with a Handle, or Err
// carrying a *checks.ExecutionError.
type Result struct {
	Handle Handle
	Err    error
}

// Ok builds a successful result.
func Ok(h Handle) Result {
	return Result{Handle: h}
}

// Err builds a failed result.
func Err(err error) Result {
	return Result{Err: err}
}

// OK reports whether the query executed.
func (r Result) OK() bool {
	return r.Err == nil
}

// Observer is notified when sessions open and close. Metrics collectors
// implement it to track open sessions.
type Observer interface {
	SessionOpened()
	SessionClosed()
}

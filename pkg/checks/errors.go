package checks

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRuleDocument matches every error returned when a rule
	// document cannot be loaded into check definitions.
	ErrMalformedRuleDocument = errors.New("malformed rule document")

	// ErrExecutionFailure matches errors raised while executing a check query.
	ErrExecutionFailure = errors.New("query execution failed")

	// ErrInvariantViolation matches errors raised when the classifier receives
	// a state that a correct session backend cannot produce.
	ErrInvariantViolation = errors.New("invariant violation")
)

// RuleDocumentError describes why a rule document could not be loaded.
type RuleDocumentError struct {
	// Source is the file or stream name of the document.
	Source string

	// Index is the 1-based position of the offending entry, or 0 when the
	// error concerns the whole document.
	Index int

	// Line is the 1-based line of the offending entry when known.
	Line int

	// Message describes the problem.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *RuleDocumentError) Error() string {
	msg := fmt.Sprintf("malformed rule document %q", e.Source)
	switch {
	case e.Index > 0 && e.Line > 0:
		msg += fmt.Sprintf(" (check %d, line %d)", e.Index, e.Line)
	case e.Index > 0:
		msg += fmt.Sprintf(" (check %d)", e.Index)
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *RuleDocumentError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrMalformedRuleDocument) succeed.
func (e *RuleDocumentError) Is(target error) bool {
	return target == ErrMalformedRuleDocument
}

// ExecutionError wraps a failure reported by the query execution service.
type ExecutionError struct {
	Query string // Rendered query text
	Cause error  // Driver or transport error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failure [query=%q]: %v", e.Query, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrExecutionFailure) succeed.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecutionFailure
}

// NewExecutionError creates a new ExecutionError.
func NewExecutionError(query string, cause error) *ExecutionError {
	return &ExecutionError{
		Query: query,
		Cause: cause,
	}
}

// InvariantError reports an impossible classifier input. It always
// indicates a bug in a session backend and is fatal to the run.
type InvariantError struct {
	CheckID string
	Message string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation [check_id=%s]: %s", e.CheckID, e.Message)
}

// Is makes errors.Is(err, ErrInvariantViolation) succeed.
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariantViolation
}

// NewInvariantError creates a new InvariantError.
func NewInvariantError(checkID, format string, args ...any) *InvariantError {
	return &InvariantError{
		CheckID: checkID,
		Message: fmt.Sprintf(format, args...),
	}
}

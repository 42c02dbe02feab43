package report

import "fmt"

// ExportError is returned when a run cannot be rendered or written.
type ExportError struct {
	Format       string // Export format ("json", "csv", "text")
	OutcomeCount int    // Number of outcomes being exported
	Cause        error  // Underlying error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, outcome_count=%d]: %v", e.Format, e.OutcomeCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, outcomeCount int, cause error) *ExportError {
	return &ExportError{
		Format:       format,
		OutcomeCount: outcomeCount,
		Cause:        cause,
	}
}

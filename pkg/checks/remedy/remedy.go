package remedy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/auditor/pkg/checks"
)

// Fix statuses reported to the Recorder.
const (
	StatusApplied = "applied"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// FixResult is the result of one attempted fix.
type FixResult struct {
	CheckID      string `json:"check_id"`
	Fix          string `json:"fix"`
	RowsAffected int64  `json:"rows_affected"`
	Skipped      bool   `json:"skipped,omitempty"`
	Err          error  `json:"-"`
}

// Status returns the result as one of the Status constants.
func (r FixResult) Status() string {
	switch {
	case r.Skipped:
		return StatusSkipped
	case r.Err != nil:
		return StatusFailed
	default:
		return StatusApplied
	}
}

// Recorder receives one status per attempted fix.
type Recorder interface {
	RecordFix(checkID, status string)
}

// Config contains configuration for applying fixes.
type Config struct {
	// Timeout bounds each fix statement. Zero disables the deadline.
	Timeout time.Duration

	// DryRun reports the fixes that would run without executing them.
	DryRun bool
}

// Remedy applies the fixes of triggered checks.
type Remedy struct {
	exec     Executor
	config   *Config
	logger   *slog.Logger
	recorder Recorder
}

// New creates a Remedy executing fixes through exec.
func New(exec Executor, cfg *Config, logger *slog.Logger) *Remedy {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Remedy{
		exec:   exec,
		config: cfg,
		logger: logger.With("component", "checks.remedy"),
	}
}

// SetRecorder registers a recorder for fix statuses.
func (r *Remedy) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// Apply executes, in run order, the fix of every multi outcome that has
// one. A failing fix does not stop the remaining ones. The returned error
// is non-nil only when ctx ends before every fix was attempted.
func (r *Remedy) Apply(ctx context.Context, run *checks.Run) ([]FixResult, error) {
	var results []FixResult
	for _, o := range run.Outcomes {
		if o.Kind != checks.KindMulti || o.Fix == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := r.applyOne(ctx, o)
		if r.recorder != nil {
			r.recorder.RecordFix(res.CheckID, res.Status())
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Remedy) applyOne(ctx context.Context, o *checks.Outcome) FixResult {
	res := FixResult{CheckID: o.CheckID, Fix: o.Fix}
	if r.config.DryRun {
		res.Skipped = true
		r.logger.InfoContext(ctx, "fix not applied (dry run)", "check_id", o.CheckID, "fix", o.Fix)
		return res
	}

	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	n, err := r.exec.Exec(ctx, o.Fix)
	if err != nil {
		res.Err = fmt.Errorf("fix for check %s: %w", o.CheckID, err)
		r.logger.ErrorContext(ctx, "fix failed", "check_id", o.CheckID, "fix", o.Fix, "error", err)
		return res
	}

	res.RowsAffected = n
	r.logger.InfoContext(ctx, "fix applied", "check_id", o.CheckID, "rows_affected", n)
	return res
}

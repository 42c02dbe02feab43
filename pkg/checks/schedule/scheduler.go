package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/auditor/pkg/checks"
)

// ErrAlreadyRunning is returned by Start when the scheduler is active.
var ErrAlreadyRunning = errors.New("audit scheduler already running")

// Runner evaluates a rule set.
type Runner interface {
	RunAll(ctx context.Context, defs []*checks.Definition) (*checks.Run, error)
}

// RuleSource provides the current rule set. The engine registry satisfies it.
type RuleSource interface {
	List() []*checks.Definition
}

// AfterRun is called with every successful scheduled run.
type AfterRun func(ctx context.Context, run *checks.Run)

// Scheduler runs the current rule set on a cron schedule. A tick that
// arrives while the previous run is still in progress is skipped.
type Scheduler struct {
	spec   string
	runner Runner
	rules  RuleSource
	after  AfterRun
	logger *slog.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	running bool
	lastRun *checks.Run
	lastErr error
	runs    int
}

// New creates a scheduler running rules through runner on the cron
// expression spec (five fields or a descriptor such as "@every 10m").
func New(spec string, runner Runner, rules RuleSource, logger *slog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "checks.schedule")

	return &Scheduler{
		spec:   spec,
		runner: runner,
		rules:  rules,
		logger: logger,
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger}),
			cron.SkipIfStillRunning(cronLogger{logger}),
		)),
	}, nil
}

// OnRun registers a hook called after every successful scheduled run. A
// run returned together with an error, such as a failed report, does not
// reach the hook.
func (s *Scheduler) OnRun(fn AfterRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.after = fn
}

// Start begins scheduling and stops when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunNow(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule audit runs: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("audit scheduler started", "schedule", s.spec)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// RunNow performs one run of the current rule set.
func (s *Scheduler) RunNow(ctx context.Context) (*checks.Run, error) {
	defs := s.rules.List()
	s.logger.Debug("scheduled audit run starting", "checks", len(defs))

	run, err := s.runner.RunAll(ctx, defs)

	s.mu.Lock()
	s.runs++
	s.lastErr = err
	if run != nil {
		s.lastRun = run
	}
	after := s.after
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled audit run failed", "error", err)
	}
	if err == nil && after != nil {
		after(ctx, run)
	}
	return run, err
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("audit scheduler stopped")
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the time of the next scheduled run, or nil when the
// scheduler has not been started.
func (s *Scheduler) NextRun() *time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}

// Status describes the scheduler's recent activity.
type Status struct {
	Schedule string      `json:"schedule"`
	Running  bool        `json:"running"`
	Runs     int         `json:"runs"`
	LastRun  *checks.Run `json:"last_run,omitempty"`
	LastErr  string      `json:"last_error,omitempty"`
	NextRun  *time.Time  `json:"next_run,omitempty"`
}

// Status returns a snapshot of the scheduler state.
func (s *Scheduler) Status() Status {
	next := s.NextRun()

	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Schedule: s.spec,
		Running:  s.running,
		Runs:     s.runs,
		LastRun:  s.lastRun,
		NextRun:  next,
	}
	if s.lastErr != nil {
		st.LastErr = s.lastErr.Error()
	}
	return st
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

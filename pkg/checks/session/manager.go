package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/auditor/pkg/checks"
)

// Stats counts session lifecycle events.
type Stats struct {
	Opened        int64 // Sessions started
	Closed        int64 // Sessions released
	Failed        int64 // Sessions whose query failed
	ReleaseErrors int64 // EndQuery calls that returned an error
}

// Open returns the number of sessions currently open.
func (s Stats) Open() int64 {
	return s.Opened - s.Closed
}

// Config contains configuration for the session manager.
type Config struct {
	// QueryTimeout bounds every query. Zero disables the deadline.
	QueryTimeout time.Duration
}

// Manager wraps every query in a scoped session. At most one session is
// open at a time, and a session is always released before Run returns.
type Manager struct {
	service  Service
	config   *Config
	logger   *slog.Logger
	observer Observer

	mu    sync.Mutex // held for the lifetime of a session
	stats Stats
	smu   sync.Mutex // guards stats for concurrent Stats readers
}

// NewManager creates a session manager over service.
func NewManager(service Service, config *Config, logger *slog.Logger) *Manager {
	if config == nil {
		config = &Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		service: service,
		config:  config,
		logger:  logger.With("component", "checks.session"),
	}
}

// SetObserver registers an observer for session open/close events.
func (m *Manager) SetObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = o
}

// Run opens a session for query, passes its result to fn and releases the
// session on every exit path, including a panic in fn. The error returned
// is fn's; query failures are delivered to fn as an Err result.
func (m *Manager) Run(ctx context.Context, query string, fn func(Result) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.config.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.QueryTimeout)
		defer cancel()
	}

	m.record(func(s *Stats) { s.Opened++ })
	if m.observer != nil {
		m.observer.SessionOpened()
	}
	defer m.release()

	handle, err := m.service.StartQuery(ctx, query)
	if err != nil {
		m.record(func(s *Stats) { s.Failed++ })
		m.logger.Debug("query failed", "query", query, "error", err)
		return fn(Err(checks.NewExecutionError(query, err)))
	}

	return fn(Ok(handle))
}

// Execute runs query in its own session and returns a result whose handle
// remains valid after the session has been released.
func (m *Manager) Execute(ctx context.Context, query string) Result {
	var res Result
	_ = m.Run(ctx, query, func(r Result) error {
		if r.OK() && r.Handle != nil {
			r.Handle = Count(r.Handle.RowCount())
		}
		res = r
		return nil
	})
	return res
}

// Stats returns a snapshot of the session counters.
func (m *Manager) Stats() Stats {
	m.smu.Lock()
	defer m.smu.Unlock()
	return m.stats
}

func (m *Manager) release() {
	if err := m.service.EndQuery(); err != nil {
		m.record(func(s *Stats) { s.ReleaseErrors++ })
		m.logger.Error("failed to release query session", "error", err)
	}
	m.record(func(s *Stats) { s.Closed++ })
	if m.observer != nil {
		m.observer.SessionClosed()
	}
}

func (m *Manager) record(update func(*Stats)) {
	m.smu.Lock()
	update(&m.stats)
	m.smu.Unlock()
}

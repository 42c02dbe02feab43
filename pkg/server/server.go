package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/checks/engine"
	"mercator-hq/auditor/pkg/checks/remedy"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/report/history"
	"mercator-hq/auditor/pkg/telemetry/health"
	"mercator-hq/auditor/pkg/telemetry/tracing"
)

// Runner evaluates checks. *engine.Engine implements it.
type Runner interface {
	RunAll(ctx context.Context, defs []*checks.Definition) (*checks.Run, error)
	RunByID(ctx context.Context, reg *engine.Registry, id string) (*checks.Run, error)
}

// Fixer applies the fixes of a run. *remedy.Remedy implements it.
type Fixer interface {
	Apply(ctx context.Context, run *checks.Run) ([]remedy.FixResult, error)
}

// Dependencies are the components served over HTTP. Runner and Registry are
// required; the rest enable optional endpoints.
type Dependencies struct {
	Runner   Runner
	Registry *engine.Registry

	// History serves GET /runs and GET /outcomes.
	History history.Store

	// Fixer enables ?fix=true on run endpoints.
	Fixer Fixer

	// Health serves /health and /ready.
	Health *health.Checker

	// Metrics is served on MetricsPath.
	Metrics     http.Handler
	MetricsPath string

	// Schedule reports the audit scheduler state on GET /schedule.
	Schedule func() any

	Version, Commit, BuildDate string
}

// Server is the HTTP API of the auditor.
type Server struct {
	config     *config.ServerConfig
	deps       Dependencies
	logger     *slog.Logger
	router     *chi.Mux
	httpServer *http.Server

	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server. Routes are registered immediately, so the
// server can be exercised through Router without listening.
func NewServer(cfg *config.ServerConfig, deps Dependencies, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Health == nil {
		deps.Health = health.New(0)
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = config.DefaultPrometheusPath
	}

	s := &Server{
		config: cfg,
		deps:   deps,
		logger: logger.With("component", "server"),
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(s.recoverer)
	s.router.Use(tracing.HTTPMiddleware)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.deps.Health.LivenessHandler())
	s.router.Head("/health", s.deps.Health.LivenessHandler())
	s.router.Get("/ready", s.deps.Health.ReadinessHandler())
	s.router.Get("/version", health.VersionHandler(s.deps.Version, s.deps.Commit, s.deps.BuildDate))

	if s.deps.Metrics != nil {
		s.router.Handle(s.deps.MetricsPath, s.deps.Metrics)
	}

	s.router.Route("/checks", func(r chi.Router) {
		r.Get("/", s.handleListChecks)
		r.Get("/{id}", s.handleGetCheck)
		r.Post("/{id}/run", s.handleRunCheck)
	})

	s.router.Post("/runs", s.handleRunAll)
	if s.deps.History != nil {
		s.router.Get("/runs", s.handleListRuns)
		s.router.Get("/runs/{id}", s.handleGetRun)
		s.router.Get("/outcomes", s.handleQueryOutcomes)
	}

	if s.deps.Schedule != nil {
		s.router.Get("/schedule", s.handleSchedule)
	}
}

// Router returns the HTTP handler, for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server is already running")
	}
	s.isRunning = true
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	srv := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err, ok := <-errChan:
		if !ok {
			return nil
		}
		return err
	}
}

// Shutdown gracefully stops the server within the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		srv := s.httpServer
		running := s.isRunning
		s.isRunning = false
		s.mu.Unlock()
		if !running || srv == nil {
			return
		}

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		if err := srv.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			s.logger.Error("error during server shutdown", "error", err)
			return
		}
		s.logger.Info("HTTP server stopped")
	})

	return shutdownErr
}

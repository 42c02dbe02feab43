package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/checks/engine"
	"mercator-hq/auditor/pkg/checks/loader"
	"mercator-hq/auditor/pkg/checks/remedy"
	"mercator-hq/auditor/pkg/checks/session"
	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/datasource"
	"mercator-hq/auditor/pkg/report"
	"mercator-hq/auditor/pkg/report/history"
	"mercator-hq/auditor/pkg/telemetry/logging"
	"mercator-hq/auditor/pkg/telemetry/metrics"
	"mercator-hq/auditor/pkg/telemetry/tracing"
)

// loadConfig loads the global configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError(cfgFile, err.Error())
	}
	cfg := config.GetConfig()
	if rulesPath != "" {
		cfg.Rules.Path = rulesPath
	}
	return cfg, nil
}

// newLogger builds the process logger from telemetry.logging. Logs go to
// stderr so that reports written to stdout stay machine-readable.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:         level,
		Format:        cfg.Telemetry.Logging.Format,
		AddSource:     cfg.Telemetry.Logging.AddSource,
		RedactSecrets: true,
		Writer:        os.Stderr,
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)
	return logger, nil
}

// newRuleLoader creates a loader honouring rules.max_file_size.
func newRuleLoader(cfg *config.Config) *loader.Loader {
	lc := loader.DefaultConfig()
	lc.MaxFileSize = cfg.Rules.MaxFileSize
	return loader.New(lc)
}

// appOptions select how the audit stack is assembled.
type appOptions struct {
	// dryRun replaces the datasource with a scripted backend returning no
	// rows, and turns fixes into no-ops.
	dryRun bool

	// sinks receive every run in addition to the log and history sinks.
	sinks []report.Sink
}

// app is the assembled audit stack shared by run, check and serve.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	registry *engine.Registry
	source   *datasource.Source
	sessions *session.Manager
	store    history.Store
	engine   *engine.Engine
	remedy   *remedy.Remedy

	closers []func() error
}

// newApp loads the rules, connects to the datasource and wires the engine.
// On error every resource opened so far is released.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return nil, fmt.Errorf("initialize tracing: %w", err)
	}
	a.closers = append(a.closers, func() error { return a.tracer.Shutdown(context.Background()) })

	defs, err := newRuleLoader(cfg).Load(cfg.Rules.Path)
	if err != nil {
		return nil, err
	}
	a.registry = engine.NewRegistry(defs)
	a.metrics.SetRulesLoaded(len(defs))
	logger.Info("rules loaded", "path", cfg.Rules.Path, "checks", len(defs))

	if opts.dryRun {
		a.source = datasource.Scripted(session.NewScriptedService(nil, session.Script{}))
		logger.Info("dry run: queries are not sent to the datasource")
	} else {
		a.source, err = datasource.Open(ctx, &cfg.Datasource, logger)
		if err != nil {
			return nil, err
		}
	}
	a.closers = append(a.closers, a.source.Close)

	a.sessions = session.NewManager(a.source.Service, &session.Config{QueryTimeout: cfg.Datasource.QueryTimeout}, logger)
	a.sessions.SetObserver(a.metrics)

	sinks := report.MultiSink{report.NewLogSink(logger)}
	if cfg.History.Enabled {
		a.store, err = openHistory(&cfg.History, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.store.Close)
		sinks = append(sinks, history.NewSink(a.store))
	}
	sinks = append(sinks, opts.sinks...)

	a.engine = engine.New(a.sessions,
		engine.WithSink(sinks),
		engine.WithLogger(logger),
		engine.WithMetrics(a.metrics),
		engine.WithTracer(a.tracer),
		engine.WithVars(cfg.Rules.Vars),
	)

	a.remedy = remedy.New(a.source.Executor, &remedy.Config{
		Timeout: cfg.Remediation.Timeout,
		DryRun:  opts.dryRun || a.source.Executor == nil,
	}, logger)
	a.remedy.SetRecorder(a.metrics)

	return a, nil
}

// applyFixes runs the fixes of run and reports failures.
func (a *app) applyFixes(ctx context.Context, run *checks.Run) ([]remedy.FixResult, error) {
	results, err := a.remedy.Apply(ctx, run)
	if err != nil {
		return results, err
	}
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return results, errors.Join(errs...)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// openHistory opens the configured history backend.
func openHistory(cfg *config.HistoryConfig, logger *slog.Logger) (history.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return history.NewSQLiteStore(&cfg.SQLite, logger)
	case "memory":
		return history.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", cfg.Backend)
	}
}

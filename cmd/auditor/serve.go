package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/checks/schedule"
	"mercator-hq/auditor/pkg/checks/watcher"
	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/report/retention"
	"mercator-hq/auditor/pkg/server"
	"mercator-hq/auditor/pkg/telemetry/health"
)

var serveFlags struct {
	listenAddress string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and scheduled runs",
	Long: `Start the HTTP API. Depending on the configuration it also:
  - runs every check on the schedule.cron expression
  - reloads rules when files under rules.path change (rules.watch) or on SIGHUP
  - prunes the history store on history.retention.prune_schedule

Examples:
  auditor serve --config auditor.yaml
  auditor serve --listen 0.0.0.0:9090`,
	Args: cobra.NoArgs,
	RunE: serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override server.listen_address")
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer a.Close()

	checker := health.New(health.DefaultCheckTimeout)
	checker.Register("datasource", a.source.Ping)
	checker.Register("rules", func(context.Context) error {
		if a.registry.Len() == 0 {
			return errors.New("no checks loaded")
		}
		return nil
	})

	deps := server.Dependencies{
		Runner:    a.engine,
		Registry:  a.registry,
		Health:    checker,
		Version:   Version,
		Commit:    GitCommit,
		BuildDate: BuildDate,
	}
	if cfg.Telemetry.Metrics.Enabled {
		deps.Metrics = a.metrics.Handler()
		deps.MetricsPath = cfg.Telemetry.Metrics.Path
	}
	if cfg.Remediation.Enabled {
		deps.Fixer = a.remedy
	}

	if a.store != nil {
		checker.Register("history", a.store.Ping)
		deps.History = a.store

		pruner := retention.NewPruner(a.store, retention.FromConfig(cfg.History.Retention), logger)
		pruner.SetRecorder(a.metrics)
		pruning := retention.NewScheduler(pruner)
		if err := pruning.Start(ctx); err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer pruning.Stop()
	}

	reloader := watcher.NewReloader(cfg.Rules.Path, newRuleLoader(cfg), a.registry, logger)
	reloader.SetRecorder(a.metrics)
	if cfg.Rules.Watch {
		w, err := watcher.New(&watcher.Config{
			Path:             cfg.Rules.Path,
			DebounceInterval: cfg.Rules.Debounce,
			SkipHidden:       true,
		}, logger)
		if err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer w.Stop()
		go func() {
			if err := w.Watch(ctx, reloader.Reload); err != nil {
				logger.Error("rule watcher exited", "error", err)
			}
		}()
	}

	hup, stopHup := cli.WaitForReload()
	defer stopHup()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := reloader.Reload(); err != nil {
					logger.Error("rule reload failed", "error", err)
				}
			}
		}
	}()

	if cfg.Schedule.Cron != "" {
		sched, err := schedule.New(cfg.Schedule.Cron, a.engine, a.registry, logger)
		if err != nil {
			return cli.NewConfigError("schedule.cron", err.Error())
		}
		if cfg.Remediation.Enabled {
			sched.OnRun(func(ctx context.Context, run *checks.Run) {
				if _, err := a.applyFixes(ctx, run); err != nil {
					logger.Error("scheduled fixes failed", "run_id", run.ID, "error", err)
				}
			})
		}
		if err := sched.Start(ctx); err != nil {
			return cli.NewCommandError("serve", err)
		}
		defer sched.Stop()
		deps.Schedule = func() any { return sched.Status() }
	}

	srv := server.NewServer(&cfg.Server, deps, logger)

	fmt.Fprintf(cmd.ErrOrStderr(), "✓ %d checks loaded from %s\n", a.registry.Len(), cfg.Rules.Path)
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Listening on %s\n", cfg.Server.ListenAddress)

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "✓ Server stopped")
	return nil
}

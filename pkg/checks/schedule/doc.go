// Package schedule runs the audit periodically.
//
// Scheduler wraps robfig/cron. Every tick evaluates the rule set currently
// held by the registry, so reloaded rules take effect on the next tick.
// Ticks that fire while a run is still in progress are skipped rather than
// queued; together with the session manager this keeps a single query
// session open at a time even under a tight schedule.
//
//	s, err := schedule.New(cfg.Schedule.Cron, eng, registry, logger)
//	s.OnRun(func(ctx context.Context, run *checks.Run) { ... })
//	err = s.Start(ctx)
package schedule

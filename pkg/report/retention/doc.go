// Package retention bounds the size of the run history.
//
// A Pruner deletes runs older than RetentionDays and, when MaxRuns is set,
// the oldest runs beyond that count. A Scheduler runs the pruner on a cron
// expression (robfig/cron standard syntax) for the lifetime of a context.
package retention

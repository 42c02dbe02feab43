// Package logging builds the structured loggers used across the auditor.
//
// New returns a *slog.Logger configured from telemetry.logging: JSON or text
// output, a minimum level and optional source locations. Components derive
// their own logger with logger.With("component", "...").
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//
//	ctx = logging.WithRunID(ctx, run.ID)
//	logger.InfoContext(ctx, "run finished")  // includes run_id
//
// With RedactSecrets enabled, passwords embedded in data source names and
// bearer tokens are masked before records are written:
//
//	postgres://auditor:s3cret@db/shop  ->  postgres://auditor:***@db/shop
package logging

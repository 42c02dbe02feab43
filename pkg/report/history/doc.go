// Package history persists audit runs so that findings can be compared
// across runs and inspected after the fact.
//
// Two Store implementations are provided: SQLiteStore, a single-file
// database with a versioned schema, and MemoryStore for ephemeral use. Sink
// adapts a Store to the report.Sink interface so that the engine records
// runs as they finish:
//
//	store, err := history.NewSQLiteStore(&cfg.History.SQLite, logger)
//	engine := engine.New(sessions, engine.WithSink(report.MultiSink{
//	    report.NewLogSink(logger),
//	    history.NewSink(store),
//	}))
//
// Timestamps are stored in UTC; range filters in Query apply to the run's
// start time.
package history

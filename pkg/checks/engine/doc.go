// Package engine evaluates check definitions against a data source.
//
// The engine runs checks strictly one after another. For every definition
// it renders the query template, opens a query session through the
// session.Manager, classifies the result and releases the session before
// moving on. A failing query produces a queryerror outcome and never stops
// the batch; only an invariant violation (an impossible row count) aborts a
// run.
//
//	sessions := session.NewManager(src.Service, &session.Config{QueryTimeout: 30 * time.Second}, logger)
//	e := engine.New(sessions,
//	    engine.WithSink(report.NewLogSink(logger)),
//	    engine.WithMetrics(collector),
//	    engine.WithTracer(tracer),
//	    engine.WithVars(cfg.Rules.Vars),
//	)
//	run, err := e.RunAll(ctx, registry.List())
//
// Registry holds the loaded rule set. The rule watcher replaces it
// atomically on reload, so scheduled and HTTP-triggered runs always see a
// complete rule set.
package engine

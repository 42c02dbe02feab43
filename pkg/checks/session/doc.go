// Package session runs check queries inside scoped sessions.
//
// A Manager opens a session on its Service, hands the Result to a callback
// and releases the session before returning, on success, on an empty result,
// on failure and on panic alike:
//
//	err := manager.Run(ctx, query, func(res session.Result) error {
//	    if !res.OK() {
//	        // res.Err is a *checks.ExecutionError
//	    }
//	    n := res.Handle.RowCount()
//	    ...
//	})
//
// Backends:
//   - SQLService: database/sql, one pinned *sql.Conn per session
//   - PgxService: PostgreSQL through a pgxpool, one acquired conn per session
//   - ScriptedService: in-memory canned answers for dry runs and tests
package session

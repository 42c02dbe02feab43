// Package datasource opens the database that checks are evaluated against.
//
// The driver is chosen by datasource.driver: "sqlite3" (cgo) and "sqlite"
// (pure Go) for SQLite files, "pgx" for PostgreSQL through database/sql, and
// "postgres" for PostgreSQL through a native pgx connection pool. Every
// Source exposes a session.Service for check queries and a remedy.Executor
// for fixes.
package datasource

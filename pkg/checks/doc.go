// Package checks defines the data model of the integrity auditor: check
// definitions loaded from rule documents, the outcomes produced by
// evaluating them, and the error taxonomy shared by the loader, the session
// manager, the classifier and the engine.
//
// # Architecture
//
// A run flows through four layers:
//
//  1. Loader - parses rule documents into ordered Definitions (package loader)
//  2. Session Manager - executes one query inside a scoped session (package session)
//  3. Classifier - maps a session result to an Outcome (package classifier)
//  4. Engine - drives the above per definition and aggregates a Run (package engine)
//
// The finished Run is handed to a report.Sink.
//
// # Outcomes
//
// Every definition yields exactly one Outcome of one of three kinds:
//
//	multi       the query returned rows; carries the declared multi code, the row count and the fix
//	none        the query returned no rows; carries the declared none code and a zero count
//	queryerror  the query failed; message is "Query error <query>", count is -1
//
// A failing query is reported as data, never as an engine error. Only an
// InvariantError (an impossible row count) aborts a run.
//
// # Errors
//
// Errors returned by this module can be matched with errors.Is against
// ErrMalformedRuleDocument, ErrExecutionFailure and ErrInvariantViolation.
package checks

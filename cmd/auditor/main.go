// Auditor is a declarative data-integrity rule engine.
//
// It evaluates named checks against a database. Each check is a query that
// selects offending rows; the auditor classifies every check as triggered
// (multi), clear (none) or failed (queryerror) and reports the declared
// code and message for that outcome.
//
// Usage:
//
//	# Run every check once and print a report
//	auditor run --config auditor.yaml
//
//	# Fail a CI job when any check triggers or fails
//	auditor run --fail-on-findings --format json --output report.json
//
//	# Evaluate one check
//	auditor check negative-totals
//
//	# Validate rule documents without touching the database
//	auditor lint --rules checks.yaml
//
//	# Serve the HTTP API with scheduled runs
//	auditor serve
//
//	# Inspect stored runs
//	auditor history runs --limit 10
package main

import "os"

func main() {
	os.Exit(Execute())
}

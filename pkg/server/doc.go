// Package server exposes the auditor over HTTP.
//
// Routes:
//
//	GET  /health              liveness
//	GET  /ready               readiness (datasource, history store, rules)
//	GET  /version             build information
//	GET  /metrics             Prometheus metrics, when enabled
//	GET  /checks              loaded check definitions
//	GET  /checks/{id}         one definition
//	POST /checks/{id}/run     evaluate one check
//	POST /runs                evaluate every loaded check
//	GET  /runs                stored runs, newest first
//	GET  /runs/{id}           one stored run with its outcomes
//	GET  /outcomes            stored outcomes filtered by check_id, kind, since, until
//	GET  /schedule            audit scheduler state
//
// Run endpoints accept ?fix=true to apply the fixes of triggered checks
// when remediation is enabled. Runs triggered over HTTP share the engine
// with scheduled runs and therefore wait for each other's query sessions.
package server

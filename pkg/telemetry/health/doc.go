// Package health reports whether the auditor's collaborators are usable.
//
// Components register a CheckFunc under a name; the serve command registers
// "datasource" (a ping of the audited database), "history" (the run history
// store) and "rules" (at least one check loaded):
//
//	checker := health.New(2 * time.Second)
//	checker.Register("datasource", db.PingContext)
//	r.Get("/health", checker.ReadinessHandler())
//	r.Get("/livez", checker.LivenessHandler())
//
// Readiness runs all checks concurrently, each bounded by the checker's
// timeout, and degrades the overall status when any of them fails.
package health

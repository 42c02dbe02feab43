// Package remedy applies the fix statements attached to triggered checks.
//
// Fixes are opaque to the engine: a rule document may carry any statement
// the data source accepts. They only run when the caller asks for them
// (run --auto-fix, or remediation.enabled for scheduled runs), after the
// run has been reported.
package remedy

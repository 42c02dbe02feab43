// Package classifier maps the result of a query session to a check outcome.
package classifier

import (
	"time"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/checks/session"
)

// Classify turns a session result into an outcome for def.
//
// Rules, applied in order:
//   - a failed result yields a queryerror outcome (count -1, no fix)
//   - n > 0 rows yields the multi branch with count n and the definition's fix
//   - n == 0 rows yields the none branch with count 0 and no fix
//
// A negative row count or a successful result without a handle cannot come
// from a working session backend and is reported as an *checks.InvariantError
// instead of being coerced into an outcome.
func Classify(def *checks.Definition, rendered string, res session.Result, elapsed time.Duration) (*checks.Outcome, error) {
	if def == nil {
		return nil, checks.NewInvariantError("", "nil check definition")
	}

	if !res.OK() {
		return checks.NewQueryErrorOutcome(def, rendered, res.Err, elapsed), nil
	}

	if res.Handle == nil {
		return nil, checks.NewInvariantError(def.ID, "successful session returned no result handle")
	}

	n := res.Handle.RowCount()
	switch {
	case n < 0:
		return nil, checks.NewInvariantError(def.ID, "negative row count %d", n)
	case n > 0:
		return checks.NewMultiOutcome(def, rendered, n, elapsed), nil
	default:
		return checks.NewNoneOutcome(def, rendered, elapsed), nil
	}
}

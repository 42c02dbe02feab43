package checks

import (
	"time"
)

// Kind tags the variant of a check outcome. The set is closed: every
// outcome produced by the engine is exactly one of the kinds below.
type Kind string

const (
	// KindMulti means the query returned one or more rows (condition triggered).
	KindMulti Kind = "multi"

	// KindNone means the query returned zero rows (condition clear).
	KindNone Kind = "none"

	// KindQueryError means the query could not be executed.
	KindQueryError Kind = "queryerror"
)

// CountUnknown is the row count reported for outcomes whose query failed.
const CountUnknown = -1

// QueryErrorPrefix prefixes the message of every queryerror outcome.
const QueryErrorPrefix = "Query error "

// Branch is a declared (code, message) pair attached to one side of a check.
type Branch struct {
	Code    string `yaml:"code" json:"code"`
	Message string `yaml:"message" json:"message"`
}

// IsZero reports whether the branch was left empty in the rule document.
func (b Branch) IsZero() bool {
	return b.Code == "" && b.Message == ""
}

// Definition is one rule to evaluate. Definitions are produced by the
// loader and are read-only from then on.
type Definition struct {
	// ID identifies the check for single-check execution and reporting.
	ID string `json:"id"`

	// Description is free text copied from the rule document.
	Description string `json:"description,omitempty"`

	// Query is the query template executed against the data source.
	Query string `json:"query"`

	// Multi is emitted when the query returns one or more rows.
	Multi Branch `json:"multi"`

	// None is emitted when the query returns zero rows.
	None Branch `json:"none"`

	// Fix is an opaque remediation directive, surfaced only on multi outcomes.
	Fix string `json:"fix,omitempty"`

	// Source is the document the definition was loaded from.
	Source string `json:"source,omitempty"`
}

// Outcome is the result of evaluating one Definition once.
//
// Outcomes are built with NewMultiOutcome, NewNoneOutcome or
// NewQueryErrorOutcome so that only the fields relevant to the variant are
// populated. They are never mutated after construction.
type Outcome struct {
	CheckID  string        `json:"check_id"`
	Kind     Kind          `json:"kind"`
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	Count    int           `json:"count"`
	Fix      string        `json:"fix,omitempty"`
	Query    string        `json:"query"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// NewMultiOutcome builds the outcome for a check whose query returned n > 0 rows.
func NewMultiOutcome(def *Definition, query string, n int, d time.Duration) *Outcome {
	return &Outcome{
		CheckID:  def.ID,
		Kind:     KindMulti,
		Code:     codeOr(def.Multi.Code, KindMulti),
		Message:  def.Multi.Message,
		Count:    n,
		Fix:      def.Fix,
		Query:    query,
		Duration: d,
	}
}

// NewNoneOutcome builds the outcome for a check whose query returned no rows.
func NewNoneOutcome(def *Definition, query string, d time.Duration) *Outcome {
	return &Outcome{
		CheckID:  def.ID,
		Kind:     KindNone,
		Code:     codeOr(def.None.Code, KindNone),
		Message:  def.None.Message,
		Count:    0,
		Query:    query,
		Duration: d,
	}
}

// NewQueryErrorOutcome builds the outcome for a check whose query failed.
// The message embeds the rendered query; the underlying cause is kept
// separately in Error.
func NewQueryErrorOutcome(def *Definition, query string, cause error, d time.Duration) *Outcome {
	o := &Outcome{
		CheckID:  def.ID,
		Kind:     KindQueryError,
		Code:     string(KindQueryError),
		Message:  QueryErrorPrefix + query,
		Count:    CountUnknown,
		Query:    query,
		Duration: d,
	}
	if cause != nil {
		o.Error = cause.Error()
	}
	return o
}

func codeOr(code string, kind Kind) string {
	if code == "" {
		return string(kind)
	}
	return code
}

// Findings reports whether the outcome needs attention from the caller.
func (o *Outcome) Findings() bool {
	return o.Kind != KindNone
}

// Run is the aggregate result of evaluating a rule set once.
type Run struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Outcomes   []*Outcome `json:"outcomes"`
}

// Summary counts the outcomes of a run by kind.
type Summary struct {
	Total      int `json:"total"`
	Multi      int `json:"multi"`
	None       int `json:"none"`
	QueryError int `json:"queryerror"`
}

// Summary returns per-kind counts for the run.
func (r *Run) Summary() Summary {
	s := Summary{Total: len(r.Outcomes)}
	for _, o := range r.Outcomes {
		switch o.Kind {
		case KindMulti:
			s.Multi++
		case KindNone:
			s.None++
		case KindQueryError:
			s.QueryError++
		}
	}
	return s
}

// HasFindings reports whether any outcome in the run is multi or queryerror.
func (r *Run) HasFindings() bool {
	for _, o := range r.Outcomes {
		if o.Findings() {
			return true
		}
	}
	return false
}

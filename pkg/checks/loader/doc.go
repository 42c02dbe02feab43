// Package loader parses rule documents into ordered check definitions.
//
// A rule document is YAML (or JSON) with a top-level "checks" list:
//
//	checks:
//	  - id: negative-totals
//	    query: "SELECT * FROM orders WHERE total < 0"
//	    result:
//	      multi: {code: neg_totals, message: "Found negative totals"}
//	      none:  {code: ok, message: "No negative totals"}
//	    fix: recalculate
//
// Entries without a query, or without both result branches, make the whole
// document malformed. Unknown fields are ignored and the query text is not
// validated; syntax errors surface only when the check runs.
package loader

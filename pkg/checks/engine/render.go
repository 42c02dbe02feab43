package engine

import (
	"strings"
	"text/template"

	"mercator-hq/auditor/pkg/checks"
)

// render expands {{.name}} references in a query template. Queries without
// template actions are returned unchanged; a reference to an undefined
// variable is an error.
func render(query string, vars map[string]string) (string, error) {
	if !strings.Contains(query, "{{") {
		return query, nil
	}

	tmpl, err := template.New("query").Option("missingkey=error").Parse(query)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, vars); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Render expands the query template of def with vars, as the engine does
// before opening a session. It lets callers validate templates without
// running them.
func Render(def *checks.Definition, vars map[string]string) (string, error) {
	return render(def.Query, vars)
}

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/auditor/pkg/cli"
)

func TestLint_Valid(t *testing.T) {
	env := newTestEnv(t)

	out, code := execute(t, "lint", "-c", env.config)
	if code != cli.ExitOK {
		t.Fatalf("exit code = %d, want 0", code)
	}
	for _, id := range []string{"negative-totals", "big-orders", "broken"} {
		if !strings.Contains(out, id) {
			t.Errorf("lint output missing %s:\n%s", id, out)
		}
	}
}

func TestLint_JSON(t *testing.T) {
	env := newTestEnv(t)

	out, code := execute(t, "lint", "-c", env.config, "--format", "json")
	if code != cli.ExitOK {
		t.Fatalf("exit code = %d, want 0", code)
	}
	var doc struct {
		Checks []struct {
			ID string `json:"id"`
		} `json:"checks"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("lint output is not JSON: %v", err)
	}
	if len(doc.Checks) != 3 {
		t.Errorf("checks = %d, want 3", len(doc.Checks))
	}
}

func TestLint_MissingTemplateVar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checks.yaml")
	rules := `
checks:
  - id: tenant-orders
    query: SELECT * FROM {{.tenant}}.orders
    result:
      none: {code: ok, message: fine}
`
	if err := os.WriteFile(path, []byte(rules), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, code := execute(t, "lint", path); code != cli.ExitFailure {
		t.Errorf("exit code = %d, want %d", code, cli.ExitFailure)
	}
}

func TestLint_DuplicateAcrossPaths(t *testing.T) {
	env := newTestEnv(t)

	if _, code := execute(t, "lint", env.rules, env.rules); code != cli.ExitFailure {
		t.Errorf("exit code = %d, want %d", code, cli.ExitFailure)
	}
}

func TestLint_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checks.yaml")
	if err := os.WriteFile(path, []byte("checks:\n  - id: x\n    result: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, code := execute(t, "lint", path); code != cli.ExitFailure {
		t.Errorf("exit code = %d, want %d", code, cli.ExitFailure)
	}
}

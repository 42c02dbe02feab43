package logging

import (
	"context"
	"testing"
)

func TestContextIDs(t *testing.T) {
	ctx := context.Background()
	if RunID(ctx) != "" || CheckID(ctx) != "" {
		t.Fatal("empty context returned identifiers")
	}
	if attrs := contextAttrs(ctx); len(attrs) != 0 {
		t.Errorf("contextAttrs(empty) = %v, want none", attrs)
	}

	ctx = WithRunID(ctx, "run-42")
	ctx = WithCheckID(ctx, "orphan-lines")

	if got := RunID(ctx); got != "run-42" {
		t.Errorf("RunID() = %q, want run-42", got)
	}
	if got := CheckID(ctx); got != "orphan-lines" {
		t.Errorf("CheckID() = %q, want orphan-lines", got)
	}
	if attrs := contextAttrs(ctx); len(attrs) != 2 {
		t.Errorf("len(contextAttrs) = %d, want 2", len(attrs))
	}
}

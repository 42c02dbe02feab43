package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/report/history"
	"mercator-hq/auditor/pkg/telemetry/logging"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedRuns(t *testing.T, store history.Store, ages ...time.Duration) {
	t.Helper()
	for i, age := range ages {
		start := now.Add(-age)
		run := &checks.Run{
			ID:         string(rune('a'+i)) + "-run",
			StartedAt:  start,
			FinishedAt: start.Add(time.Second),
		}
		if err := store.Save(context.Background(), run); err != nil {
			t.Fatalf("Save() error = %v, want nil", err)
		}
	}
}

func remaining(t *testing.T, store history.Store) []string {
	t.Helper()
	runs, err := store.Runs(context.Background(), &history.Query{})
	if err != nil {
		t.Fatalf("Runs() error = %v, want nil", err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	return ids
}

type pruneCounter struct{ total int64 }

func (c *pruneCounter) RecordPrune(deleted int64) { c.total += deleted }

func TestPrune_ByAge(t *testing.T) {
	store := history.NewMemoryStore()
	day := 24 * time.Hour
	seedRuns(t, store, 1*day, 10*day, 40*day)

	pruner := NewPruner(store, &Config{RetentionDays: 30}, logging.Discard())
	pruner.now = func() time.Time { return now }
	counter := &pruneCounter{}
	pruner.SetRecorder(counter)

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v, want nil", err)
	}
	if deleted != 1 {
		t.Errorf("Prune() = %d, want 1", deleted)
	}
	if counter.total != 1 {
		t.Errorf("recorded = %d, want 1", counter.total)
	}
	if ids := remaining(t, store); len(ids) != 2 || ids[0] != "a-run" || ids[1] != "b-run" {
		t.Errorf("remaining = %v, want [a-run b-run]", ids)
	}
}

func TestPrune_ByCount(t *testing.T) {
	store := history.NewMemoryStore()
	seedRuns(t, store, time.Hour, 2*time.Hour, 3*time.Hour, 4*time.Hour)

	pruner := NewPruner(store, &Config{MaxRuns: 2}, logging.Discard())
	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v, want nil", err)
	}
	if deleted != 2 {
		t.Errorf("Prune() = %d, want 2", deleted)
	}
	if ids := remaining(t, store); len(ids) != 2 || ids[0] != "a-run" || ids[1] != "b-run" {
		t.Errorf("remaining = %v, want the two newest runs", ids)
	}
}

func TestPrune_Disabled(t *testing.T) {
	store := history.NewMemoryStore()
	seedRuns(t, store, 1000*24*time.Hour)

	deleted, err := NewPruner(store, nil, logging.Discard()).Prune(context.Background())
	if err != nil || deleted != 0 {
		t.Errorf("Prune() = %d, %v, want 0, nil", deleted, err)
	}
}

type failingStore struct{ history.Store }

func (failingStore) Delete(context.Context, *history.Query) (int64, error) {
	return 0, errors.New("database is locked")
}

func TestPrune_StoreError(t *testing.T) {
	pruner := NewPruner(failingStore{history.NewMemoryStore()}, &Config{RetentionDays: 1}, logging.Discard())
	if _, err := pruner.Prune(context.Background()); err == nil {
		t.Error("Prune() error = nil, want error")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.RetentionConfig{Days: 7, MaxRuns: 100, PruneSchedule: "@daily"})
	if cfg.RetentionDays != 7 || cfg.MaxRuns != 100 || cfg.PruneSchedule != "@daily" {
		t.Errorf("FromConfig() = %+v, want mapped fields", cfg)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	pruner := NewPruner(history.NewMemoryStore(), &Config{RetentionDays: 1, PruneSchedule: "0 3 * * *"}, logging.Discard())
	s := NewScheduler(pruner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v, want nil", err)
	}
	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	next := s.NextRun()
	if next == nil || next.Hour() != 3 {
		t.Errorf("NextRun() = %v, want next 03:00", next)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	pruner := NewPruner(history.NewMemoryStore(), &Config{PruneSchedule: "whenever"}, logging.Discard())
	if err := NewScheduler(pruner).Start(context.Background()); err == nil {
		t.Error("Start() error = nil, want invalid schedule error")
	}
}

func TestScheduler_EmptySchedule(t *testing.T) {
	s := NewScheduler(NewPruner(history.NewMemoryStore(), &Config{}, logging.Discard()))
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v, want nil", err)
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true, want scheduler disabled without schedule")
	}
	if s.NextRun() != nil {
		t.Error("NextRun() != nil, want nil")
	}
}

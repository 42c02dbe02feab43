package history

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/telemetry/logging"
)

var baseTime = time.Date(2026, 1, 12, 3, 0, 0, 0, time.UTC)

func makeRun(id string, startOffset time.Duration) *checks.Run {
	neg := &checks.Definition{
		ID:    "negative-totals",
		Query: "SELECT * FROM orders WHERE total < 0",
		Multi: checks.Branch{Code: "neg_totals", Message: "Found negative totals"},
		None:  checks.Branch{Code: "ok", Message: "No negative totals"},
		Fix:   "recalculate",
	}
	broken := &checks.Definition{ID: "broken", Query: "SELEC"}
	orphans := &checks.Definition{
		ID:    "orphans",
		Query: "SELECT * FROM items WHERE order_id IS NULL",
		None:  checks.Branch{Code: "ok", Message: "No orphans"},
	}

	start := baseTime.Add(startOffset)
	return &checks.Run{
		ID:         id,
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Outcomes: []*checks.Outcome{
			checks.NewMultiOutcome(neg, neg.Query, 4, 3*time.Millisecond),
			checks.NewQueryErrorOutcome(broken, broken.Query, errors.New("near \"SELEC\": syntax error"), time.Millisecond),
			checks.NewNoneOutcome(orphans, orphans.Query, 2*time.Millisecond),
		},
	}
}

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	store, err := NewSQLiteStore(&config.SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "history.db"),
		JournalMode: "wal",
		BusyTimeout: time.Second,
	}, logging.Discard())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v, want nil", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func forEachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
}

func seed(t *testing.T, store Store, runs ...*checks.Run) {
	t.Helper()
	for _, run := range runs {
		if err := store.Save(context.Background(), run); err != nil {
			t.Fatalf("Save(%s) error = %v, want nil", run.ID, err)
		}
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		want := makeRun("run-1", 0)
		seed(t, store, want)

		got, err := store.Get(ctx, "run-1")
		if err != nil {
			t.Fatalf("Get() error = %v, want nil", err)
		}
		if !got.StartedAt.Equal(want.StartedAt) || !got.FinishedAt.Equal(want.FinishedAt) {
			t.Errorf("times = %v..%v, want %v..%v", got.StartedAt, got.FinishedAt, want.StartedAt, want.FinishedAt)
		}
		if len(got.Outcomes) != len(want.Outcomes) {
			t.Fatalf("len(Outcomes) = %d, want %d", len(got.Outcomes), len(want.Outcomes))
		}
		for i := range want.Outcomes {
			if *got.Outcomes[i] != *want.Outcomes[i] {
				t.Errorf("Outcomes[%d] = %+v, want %+v", i, *got.Outcomes[i], *want.Outcomes[i])
			}
		}
	})
}

func TestStore_GetUnknown(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		_, err := store.Get(context.Background(), "missing")
		if !errors.Is(err, ErrRunNotFound) {
			t.Errorf("Get() error = %v, want ErrRunNotFound", err)
		}
	})
}

func TestStore_DuplicateRun(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		seed(t, store, makeRun("run-1", 0))

		err := store.Save(context.Background(), makeRun("run-1", time.Hour))
		var storageErr *StorageError
		if !errors.As(err, &storageErr) {
			t.Fatalf("Save() error = %v, want *StorageError", err)
		}
		if storageErr.Operation != "save" {
			t.Errorf("Operation = %q, want save", storageErr.Operation)
		}
	})
}

func TestStore_Runs(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		seed(t, store, makeRun("run-a", 0), makeRun("run-c", 2*time.Hour), makeRun("run-b", time.Hour))

		runs, err := store.Runs(ctx, &Query{})
		if err != nil {
			t.Fatalf("Runs() error = %v, want nil", err)
		}
		var ids []string
		for _, r := range runs {
			ids = append(ids, r.ID)
		}
		if len(ids) != 3 || ids[0] != "run-c" || ids[1] != "run-b" || ids[2] != "run-a" {
			t.Errorf("Runs() ids = %v, want newest first [run-c run-b run-a]", ids)
		}
		want := checks.Summary{Total: 3, Multi: 1, None: 1, QueryError: 1}
		if runs[0].Summary != want {
			t.Errorf("Summary = %+v, want %+v", runs[0].Summary, want)
		}

		page, err := store.Runs(ctx, &Query{Limit: 1, Offset: 1})
		if err != nil {
			t.Fatalf("Runs(page) error = %v, want nil", err)
		}
		if len(page) != 1 || page[0].ID != "run-b" {
			t.Errorf("Runs(limit 1, offset 1) = %v, want [run-b]", page)
		}
	})
}

func TestStore_QueryFilters(t *testing.T) {
	from := baseTime.Add(30 * time.Minute)

	tests := []struct {
		name  string
		query *Query
		want  int
	}{
		{name: "all", query: &Query{}, want: 6},
		{name: "by run", query: &Query{RunID: "run-b"}, want: 3},
		{name: "by check", query: &Query{CheckID: "negative-totals"}, want: 2},
		{name: "by kind", query: &Query{Kind: checks.KindQueryError}, want: 2},
		{name: "by time", query: &Query{StartTime: &from}, want: 3},
		{name: "combined", query: &Query{StartTime: &from, Kind: checks.KindMulti}, want: 1},
		{name: "limit", query: &Query{Limit: 4}, want: 4},
		{name: "offset past end", query: &Query{Offset: 10}, want: 0},
		{name: "negative offset", query: &Query{Offset: -1}, want: 6},
		{name: "nil query", query: nil, want: 6},
	}

	forEachStore(t, func(t *testing.T, store Store) {
		seed(t, store, makeRun("run-a", 0), makeRun("run-b", time.Hour))

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				entries, err := store.Query(context.Background(), tt.query)
				if err != nil {
					t.Fatalf("Query() error = %v, want nil", err)
				}
				if len(entries) != tt.want {
					t.Errorf("len(Query()) = %d, want %d", len(entries), tt.want)
				}
			})
		}
	})
}

func TestStore_QueryOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		seed(t, store, makeRun("run-a", 0), makeRun("run-b", time.Hour))

		entries, err := store.Query(context.Background(), &Query{})
		if err != nil {
			t.Fatalf("Query() error = %v, want nil", err)
		}
		want := []string{"negative-totals", "broken", "orphans"}
		for i, id := range want {
			if entries[i].RunID != "run-b" || entries[i].Outcome.CheckID != id {
				t.Errorf("entries[%d] = %s/%s, want run-b/%s", i, entries[i].RunID, entries[i].Outcome.CheckID, id)
			}
		}
		if entries[0].Outcome.Fix != "recalculate" || entries[1].Outcome.Count != checks.CountUnknown {
			t.Errorf("entries lost outcome fields: %+v %+v", entries[0].Outcome, entries[1].Outcome)
		}
	})
}

func TestStore_CountAndDelete(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		seed(t, store, makeRun("run-a", 0), makeRun("run-b", time.Hour), makeRun("run-c", 2*time.Hour))

		count, err := store.Count(ctx, &Query{})
		if err != nil || count != 3 {
			t.Fatalf("Count() = %d, %v, want 3, nil", count, err)
		}

		cutoff := baseTime.Add(time.Hour)
		deleted, err := store.Delete(ctx, &Query{EndTime: &cutoff})
		if err != nil {
			t.Fatalf("Delete() error = %v, want nil", err)
		}
		if deleted != 2 {
			t.Errorf("Delete() = %d, want 2", deleted)
		}

		entries, err := store.Query(ctx, &Query{})
		if err != nil {
			t.Fatalf("Query() error = %v, want nil", err)
		}
		if len(entries) != 3 {
			t.Errorf("len(Query()) = %d, want outcomes of the remaining run only", len(entries))
		}
		for _, e := range entries {
			if e.RunID != "run-c" {
				t.Errorf("entry of deleted run %s still stored", e.RunID)
			}
		}
	})
}

func TestStore_NilAndNegativeQueries(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		seed(t, store, makeRun("run-a", 0), makeRun("run-b", time.Hour))

		runs, err := store.Runs(ctx, &Query{Offset: -1})
		if err != nil {
			t.Fatalf("Runs(offset -1) error = %v, want nil", err)
		}
		if len(runs) != 2 || runs[0].ID != "run-b" {
			t.Errorf("Runs(offset -1) = %d runs, want both runs newest first", len(runs))
		}

		runs, err = store.Runs(ctx, nil)
		if err != nil || len(runs) != 2 {
			t.Fatalf("Runs(nil) = %d, %v, want 2, nil", len(runs), err)
		}
		count, err := store.Count(ctx, nil)
		if err != nil || count != 2 {
			t.Fatalf("Count(nil) = %d, %v, want 2, nil", count, err)
		}
		deleted, err := store.Delete(ctx, nil)
		if err != nil || deleted != 2 {
			t.Fatalf("Delete(nil) = %d, %v, want 2, nil", deleted, err)
		}
	})
}

func TestSQLiteStore_BusyTimeoutPerConnection(t *testing.T) {
	store, err := NewSQLiteStore(&config.SQLiteConfig{
		Path:         filepath.Join(t.TempDir(), "history.db"),
		BusyTimeout:  1500 * time.Millisecond,
		MaxOpenConns: 2,
	}, logging.Discard())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v, want nil", err)
	}
	defer store.Close()

	ctx := context.Background()
	var conns []*sql.Conn
	for i := 0; i < 2; i++ {
		conn, err := store.db.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn() error = %v, want nil", err)
		}
		defer conn.Close()
		conns = append(conns, conn)
	}

	for i, conn := range conns {
		var timeout int
		if err := conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
			t.Fatalf("PRAGMA busy_timeout on conn %d error = %v", i, err)
		}
		if timeout != 1500 {
			t.Errorf("conn %d busy_timeout = %d, want 1500", i, timeout)
		}
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		cfg  config.SQLiteConfig
		want string
	}{
		{config.SQLiteConfig{Path: "history.db"}, "history.db"},
		{config.SQLiteConfig{Path: "history.db", BusyTimeout: 5 * time.Second}, "history.db?_busy_timeout=5000"},
		{config.SQLiteConfig{Path: "file:history.db?cache=shared", BusyTimeout: time.Second}, "file:history.db?cache=shared&_busy_timeout=1000"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(&tt.cfg); got != tt.want {
			t.Errorf("sqliteDSN(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestStore_Ping(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		if err := store.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v, want nil", err)
		}
	})
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	cfg := &config.SQLiteConfig{Path: path, JournalMode: "wal"}

	store, err := NewSQLiteStore(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v, want nil", err)
	}
	seed(t, store, makeRun("run-1", 0))
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v, want nil", err)
	}

	reopened, err := NewSQLiteStore(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("NewSQLiteStore(reopen) error = %v, want nil", err)
	}
	defer reopened.Close()

	if _, err := reopened.Get(context.Background(), "run-1"); err != nil {
		t.Errorf("Get() after reopen error = %v, want nil", err)
	}
}

func TestSink(t *testing.T) {
	store := NewMemoryStore()
	run := makeRun("run-1", 0)

	if err := NewSink(store).Report(context.Background(), run); err != nil {
		t.Fatalf("Report() error = %v, want nil", err)
	}
	if n, _ := store.Count(context.Background(), &Query{}); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}

	// The store keeps its own copy.
	run.Outcomes[0] = nil
	got, err := store.Get(context.Background(), "run-1")
	if err != nil || got.Outcomes[0] == nil {
		t.Errorf("Get() = %v, %v, want stored copy unaffected by caller", got, err)
	}
}

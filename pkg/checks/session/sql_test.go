package session

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, total REAL NOT NULL)`,
		`INSERT INTO orders (total) VALUES (10), (-5), (-7), (20)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Exec(%q) error = %v", stmt, err)
		}
	}
	return db
}

func TestSQLService(t *testing.T) {
	db := openTestDB(t)
	m := NewManager(NewSQLService(db), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    string
		wantOK   bool
		wantRows int
	}{
		{name: "rows", query: "SELECT id FROM orders WHERE total < 0", wantOK: true, wantRows: 2},
		{name: "empty", query: "SELECT id FROM orders WHERE total > 1000", wantOK: true, wantRows: 0},
		{name: "missing table", query: "SELECT id FROM missing", wantOK: false},
		{name: "syntax error", query: "SELEC id FROM orders", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := m.Execute(ctx, tt.query)
			if res.OK() != tt.wantOK {
				t.Fatalf("Execute(%q).OK() = %v, want %v (err %v)", tt.query, res.OK(), tt.wantOK, res.Err)
			}
			if tt.wantOK && res.Handle.RowCount() != tt.wantRows {
				t.Errorf("RowCount() = %d, want %d", res.Handle.RowCount(), tt.wantRows)
			}
		})
	}

	if open := m.Stats().Open(); open != 0 {
		t.Errorf("Stats().Open() = %d, want 0", open)
	}
	if got := db.Stats().InUse; got != 0 {
		t.Errorf("db.Stats().InUse = %d, want 0", got)
	}
}

func TestSQLServiceEndQueryWithoutStart(t *testing.T) {
	svc := NewSQLService(openTestDB(t))
	if err := svc.EndQuery(); err != nil {
		t.Fatalf("EndQuery() error = %v, want nil", err)
	}
}

func TestSQLServiceRejectsOverlap(t *testing.T) {
	svc := NewSQLService(openTestDB(t))
	ctx := context.Background()

	if _, err := svc.StartQuery(ctx, "SELECT 1"); err != nil {
		t.Fatalf("StartQuery() error = %v", err)
	}
	if _, err := svc.StartQuery(ctx, "SELECT 1"); err == nil {
		t.Error("second StartQuery() error = nil, want error")
	}
	if err := svc.EndQuery(); err != nil {
		t.Fatalf("EndQuery() error = %v", err)
	}
}

package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/config"
)

const backendSQLite = "sqlite"

// SQLiteStore implements Store on a SQLite database file.
type SQLiteStore struct {
	db     *sql.DB
	config *config.SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens (and if needed creates) the history database at
// cfg.Path and brings its schema up to date.
func NewSQLiteStore(cfg *config.SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if cfg == nil {
		cfg = &config.SQLiteConfig{}
	}
	if cfg.Path == "" {
		cfg.Path = config.DefaultHistorySQLitePath
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "report.history.sqlite")

	db, err := sql.Open("sqlite3", sqliteDSN(cfg))
	if err != nil {
		return nil, NewStorageError(backendSQLite, "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStore{db: db, config: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite history store initialized",
		"path", cfg.Path,
		"journal_mode", cfg.JournalMode,
		"max_open_conns", cfg.MaxOpenConns,
	)
	return s, nil
}

// sqliteDSN appends per-connection settings to the database path; the
// driver applies DSN parameters to every connection it opens.
func sqliteDSN(cfg *config.SQLiteConfig) string {
	if cfg.BusyTimeout <= 0 {
		return cfg.Path
	}
	sep := "?"
	if strings.Contains(cfg.Path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", cfg.Path, sep, cfg.BusyTimeout.Milliseconds())
}

func (s *SQLiteStore) initialize() error {
	if mode := s.config.JournalMode; mode != "" {
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA journal_mode=%s;", strings.ToUpper(mode))); err != nil {
			return NewStorageError(backendSQLite, "set_journal_mode", err)
		}
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError(backendSQLite, "create_schema", err)
	}
	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError(backendSQLite, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return NewStorageError(backendSQLite, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError(backendSQLite, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, run *checks.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewStorageError(backendSQLite, "save", err)
	}
	defer tx.Rollback()

	sum := run.Summary()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, n_total, n_multi, n_none, n_queryerror)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, toUnix(run.StartedAt), toUnix(run.FinishedAt),
		sum.Total, sum.Multi, sum.None, sum.QueryError,
	)
	if err != nil {
		return NewStorageError(backendSQLite, "save", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outcomes (run_id, position, check_id, kind, code, message, row_count, fix, query_text, error, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return NewStorageError(backendSQLite, "save", err)
	}
	defer stmt.Close()

	for i, o := range run.Outcomes {
		_, err := stmt.ExecContext(ctx,
			run.ID, i, o.CheckID, string(o.Kind), o.Code, o.Message, o.Count,
			nullString(o.Fix), o.Query, nullString(o.Error), int64(o.Duration),
		)
		if err != nil {
			return NewStorageError(backendSQLite, "save", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return NewStorageError(backendSQLite, "save", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, runID string) (*checks.Run, error) {
	var started, finished int64
	err := s.db.QueryRowContext(ctx,
		`SELECT started_at, finished_at FROM runs WHERE id = ?`, runID,
	).Scan(&started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, NewStorageError(backendSQLite, "get", err)
	}

	run := &checks.Run{
		ID:         runID,
		StartedAt:  fromUnix(started),
		FinishedAt: fromUnix(finished),
		Outcomes:   []*checks.Outcome{},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT check_id, kind, code, message, row_count, fix, query_text, error, duration_ns
		FROM outcomes WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, NewStorageError(backendSQLite, "get", err)
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, NewStorageError(backendSQLite, "scan", err)
		}
		run.Outcomes = append(run.Outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(backendSQLite, "get", err)
	}
	return run, nil
}

// Runs implements Store.
func (s *SQLiteStore) Runs(ctx context.Context, query *Query) ([]*RunRecord, error) {
	query = query.normalize()
	where, args := buildRunWhere(query, "")
	sqlQuery := `SELECT id, started_at, finished_at, n_total, n_multi, n_none, n_queryerror FROM runs` +
		where + " ORDER BY started_at DESC, id" + pagination(query)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, NewStorageError(backendSQLite, "runs", err)
	}
	defer rows.Close()

	records := []*RunRecord{}
	for rows.Next() {
		var (
			r                 RunRecord
			started, finished int64
		)
		err := rows.Scan(&r.ID, &started, &finished,
			&r.Summary.Total, &r.Summary.Multi, &r.Summary.None, &r.Summary.QueryError)
		if err != nil {
			return nil, NewStorageError(backendSQLite, "scan", err)
		}
		r.StartedAt = fromUnix(started)
		r.FinishedAt = fromUnix(finished)
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(backendSQLite, "runs", err)
	}
	return records, nil
}

// Query implements Store.
func (s *SQLiteStore) Query(ctx context.Context, query *Query) ([]*Entry, error) {
	query = query.normalize()
	where, args := buildRunWhere(query, "r.")
	var conditions []string
	if query.CheckID != "" {
		conditions = append(conditions, "o.check_id = ?")
		args = append(args, query.CheckID)
	}
	if query.Kind != "" {
		conditions = append(conditions, "o.kind = ?")
		args = append(args, string(query.Kind))
	}
	where = appendConditions(where, conditions)

	sqlQuery := `
		SELECT r.id, r.started_at,
		       o.check_id, o.kind, o.code, o.message, o.row_count, o.fix, o.query_text, o.error, o.duration_ns
		FROM outcomes o JOIN runs r ON r.id = o.run_id` +
		where + " ORDER BY r.started_at DESC, r.id, o.position" + pagination(query)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, NewStorageError(backendSQLite, "query", err)
	}
	defer rows.Close()

	entries := []*Entry{}
	for rows.Next() {
		var (
			e       Entry
			started int64
		)
		o, err := scanOutcome(rows, &e.RunID, &started)
		if err != nil {
			return nil, NewStorageError(backendSQLite, "scan", err)
		}
		e.StartedAt = fromUnix(started)
		e.Outcome = *o
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(backendSQLite, "query", err)
	}
	return entries, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context, query *Query) (int64, error) {
	query = query.normalize()
	where, args := buildRunWhere(query, "")

	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs"+where, args...).Scan(&count); err != nil {
		return 0, NewStorageError(backendSQLite, "count", err)
	}
	return count, nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, query *Query) (int64, error) {
	query = query.normalize()
	where, args := buildRunWhere(query, "")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, NewStorageError(backendSQLite, "delete", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM outcomes WHERE run_id IN (SELECT id FROM runs"+where+")", args...); err != nil {
		return 0, NewStorageError(backendSQLite, "delete", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM runs"+where, args...)
	if err != nil {
		return 0, NewStorageError(backendSQLite, "delete", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError(backendSQLite, "delete", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, NewStorageError(backendSQLite, "delete", err)
	}
	return deleted, nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError(backendSQLite, "ping", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError(backendSQLite, "close", err)
	}
	s.logger.Info("SQLite history store closed")
	return nil
}

// buildRunWhere builds the " WHERE ..." clause for run-level filters.
// prefix qualifies the runs table columns.
func buildRunWhere(query *Query, prefix string) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if query.RunID != "" {
		conditions = append(conditions, prefix+"id = ?")
		args = append(args, query.RunID)
	}
	if query.StartTime != nil {
		conditions = append(conditions, prefix+"started_at >= ?")
		args = append(args, toUnix(*query.StartTime))
	}
	if query.EndTime != nil {
		conditions = append(conditions, prefix+"started_at <= ?")
		args = append(args, toUnix(*query.EndTime))
	}
	return appendConditions("", conditions), args
}

func appendConditions(where string, conditions []string) string {
	if len(conditions) == 0 {
		return where
	}
	joined := strings.Join(conditions, " AND ")
	if where == "" {
		return " WHERE " + joined
	}
	return where + " AND " + joined
}

func pagination(query *Query) string {
	clause := fmt.Sprintf(" LIMIT %d", query.limit())
	if query.Offset > 0 {
		clause += fmt.Sprintf(" OFFSET %d", query.Offset)
	}
	return clause
}

// scanOutcome scans the outcome columns, preceded by any extra destinations.
func scanOutcome(rows *sql.Rows, prefix ...any) (*checks.Outcome, error) {
	var (
		o          checks.Outcome
		kind       string
		fix, cause sql.NullString
		durationNs int64
	)
	dest := append(prefix,
		&o.CheckID, &kind, &o.Code, &o.Message, &o.Count, &fix, &o.Query, &cause, &durationNs,
	)
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	o.Kind = checks.Kind(kind)
	o.Fix = fix.String
	o.Error = cause.String
	o.Duration = time.Duration(durationNs)
	return &o, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func toUnix(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnix(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

package remedy

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Executor runs a fix statement and reports the rows it affected.
type Executor interface {
	Exec(ctx context.Context, statement string) (int64, error)
}

// SQLExecutor runs fixes through database/sql.
type SQLExecutor struct {
	db *sql.DB
}

// NewSQLExecutor creates an executor over db.
func NewSQLExecutor(db *sql.DB) *SQLExecutor {
	return &SQLExecutor{db: db}
}

// Exec implements Executor.
func (e *SQLExecutor) Exec(ctx context.Context, statement string) (int64, error) {
	res, err := e.db.ExecContext(ctx, statement)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PgxExecutor runs fixes on a pgx pool.
type PgxExecutor struct {
	pool *pgxpool.Pool
}

// NewPgxExecutor creates an executor over pool.
func NewPgxExecutor(pool *pgxpool.Pool) *PgxExecutor {
	return &PgxExecutor{pool: pool}
}

// Exec implements Executor.
func (e *PgxExecutor) Exec(ctx context.Context, statement string) (int64, error) {
	tag, err := e.pool.Exec(ctx, statement)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

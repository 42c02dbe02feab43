package session

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxService executes queries against PostgreSQL through a pgx pool. A
// session acquires one pooled connection and EndQuery releases it.
type PgxService struct {
	pool *pgxpool.Pool
	conn *pgxpool.Conn
}

// NewPgxService creates a service over a connected pool.
func NewPgxService(pool *pgxpool.Pool) *PgxService {
	return &PgxService{pool: pool}
}

// StartQuery acquires a pooled connection, runs text and counts the rows.
func (s *PgxService) StartQuery(ctx context.Context, text string) (Handle, error) {
	if s.conn != nil {
		return nil, errSessionOpen
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	s.conn = conn

	rows, err := conn.Query(ctx, text)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return Count(n), nil
}

// EndQuery releases the pooled connection.
func (s *PgxService) EndQuery() error {
	if s.conn == nil {
		return nil
	}
	s.conn.Release()
	s.conn = nil
	return nil
}

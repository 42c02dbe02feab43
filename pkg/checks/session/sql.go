package session

import (
	"context"
	"database/sql"
	"errors"
)

// errSessionOpen is returned when StartQuery is called before the previous
// session was released.
var errSessionOpen = errors.New("query session already open")

// SQLService executes queries through database/sql. Each session pins a
// dedicated connection from the pool so that the query and its release are
// scoped to one connection.
type SQLService struct {
	db   *sql.DB
	conn *sql.Conn
}

// NewSQLService creates a service over an open database handle.
func NewSQLService(db *sql.DB) *SQLService {
	return &SQLService{db: db}
}

// StartQuery acquires a connection, runs text and counts the rows returned.
func (s *SQLService) StartQuery(ctx context.Context, text string) (Handle, error) {
	if s.conn != nil {
		return nil, errSessionOpen
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	s.conn = conn

	rows, err := conn.QueryContext(ctx, text)
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

// EndQuery returns the session's connection to the pool.
func (s *SQLService) EndQuery() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}

package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/auditor/pkg/checks/remedy"
	"mercator-hq/auditor/pkg/checks/session"
	"mercator-hq/auditor/pkg/config"
)

// Supported drivers.
const (
	DriverSQLite3  = "sqlite3"  // mattn/go-sqlite3 (cgo)
	DriverSQLite   = "sqlite"   // modernc.org/sqlite (pure Go)
	DriverPgx      = "pgx"      // PostgreSQL through database/sql
	DriverPostgres = "postgres" // PostgreSQL through a native pgx pool
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown datasource driver")

// Source is an open connection to the audited database.
type Source struct {
	// Driver is the configured driver name.
	Driver string

	// Service runs check queries, one scoped session at a time.
	Service session.Service

	// Executor runs fix statements. Nil when the source cannot apply fixes.
	Executor remedy.Executor

	ping  func(ctx context.Context) error
	close func() error
}

// Open connects to the database described by cfg and verifies the
// connection.
func Open(ctx context.Context, cfg *config.DatasourceConfig, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "datasource")

	var (
		src *Source
		err error
	)
	switch cfg.Driver {
	case DriverSQLite3, DriverSQLite, DriverPgx:
		src, err = openSQL(ctx, cfg)
	case DriverPostgres:
		src, err = openPool(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("connected to datasource", "driver", cfg.Driver, "dsn", cfg.DSN)
	return src, nil
}

func openSQL(ctx context.Context, cfg *config.DatasourceConfig) (*Source, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s datasource: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s datasource: %w", cfg.Driver, err)
	}

	return &Source{
		Driver:   cfg.Driver,
		Service:  session.NewSQLService(db),
		Executor: remedy.NewSQLExecutor(db),
		ping:     db.PingContext,
		close:    db.Close,
	}, nil
}

func openPool(ctx context.Context, cfg *config.DatasourceConfig) (*Source, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres DSN: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect postgres datasource: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres datasource: %w", err)
	}

	return &Source{
		Driver:   cfg.Driver,
		Service:  session.NewPgxService(pool),
		Executor: remedy.NewPgxExecutor(pool),
		ping:     pool.Ping,
		close: func() error {
			pool.Close()
			return nil
		},
	}, nil
}

// Scripted wraps an in-memory scripted service. It is used for dry runs and
// has no executor.
func Scripted(service *session.ScriptedService) *Source {
	return &Source{
		Driver:  "scripted",
		Service: service,
		ping:    func(context.Context) error { return nil },
		close:   func() error { return nil },
	}
}

// Ping verifies the database is reachable.
func (s *Source) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the connection pool.
func (s *Source) Close() error {
	return s.close()
}

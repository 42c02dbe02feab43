package config

import "time"

// Config is the root configuration structure for the auditor.
// It contains all configuration sections for rule loading, the audited data
// source, run history, scheduling, remediation, telemetry and the HTTP
// server.
type Config struct {
	// Rules contains configuration for locating and loading rule documents.
	Rules RulesConfig `yaml:"rules"`

	// Datasource contains configuration for the database the checks run against.
	Datasource DatasourceConfig `yaml:"datasource"`

	// History contains configuration for persisting run outcomes.
	History HistoryConfig `yaml:"history"`

	// Schedule contains configuration for periodic audit runs.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Remediation controls whether fixes of triggered checks are applied.
	Remediation RemediationConfig `yaml:"remediation"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Server contains configuration for the HTTP server started by "serve".
	Server ServerConfig `yaml:"server"`
}

// RulesConfig contains configuration for rule documents.
type RulesConfig struct {
	// Path is a rule file or a directory of rule files.
	// Default: "./checks.yaml"
	Path string `yaml:"path"`

	// Watch enables reloading the rules when files under Path change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Vars are substituted into query templates ({{.name}}).
	Vars map[string]string `yaml:"vars"`

	// MaxFileSize is the largest rule file accepted, in bytes.
	// Default: 1048576 (1MB)
	MaxFileSize int64 `yaml:"max_file_size"`

	// Debounce is the quiet period before a file change triggers a reload.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`
}

// DatasourceConfig contains configuration for the audited database.
type DatasourceConfig struct {
	// Driver selects the backend.
	// Options: "sqlite3", "sqlite", "pgx", "postgres"
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// DSN is the driver-specific connection string.
	DSN string `yaml:"dsn"`

	// QueryTimeout bounds every check query. Zero disables the deadline.
	// Default: 30s
	QueryTimeout time.Duration `yaml:"query_timeout"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int `yaml:"max_open_conns"`

	// ConnMaxLifetime is the maximum lifetime of a pooled connection.
	// Default: 30m
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// HistoryConfig contains configuration for the run history store.
type HistoryConfig struct {
	// Enabled controls whether runs are persisted.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend specifies the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`

	// DefaultLimit is the number of records returned when a query sets none.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/history.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// JournalMode is the SQLite journal mode.
	// Options: "wal", "delete"
	// Default: "wal"
	JournalMode string `yaml:"journal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to keep runs.
	// Default: 90
	Days int `yaml:"days"`

	// MaxRuns is the maximum number of runs to keep. 0 means unlimited.
	// Default: 0
	MaxRuns int64 `yaml:"max_runs"`

	// PruneSchedule is a cron expression for scheduling pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// ScheduleConfig contains configuration for periodic audit runs.
type ScheduleConfig struct {
	// Cron is a cron expression (standard five fields, or descriptors such
	// as "@every 5m"). Empty disables scheduled runs.
	Cron string `yaml:"cron"`
}

// RemediationConfig contains configuration for applying fixes.
type RemediationConfig struct {
	// Enabled allows fixes of multi outcomes to be executed.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Timeout bounds each fix statement.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "auditor"
	Namespace string `yaml:"namespace"`

	// DurationBuckets defines histogram buckets for check duration (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the collector connection.
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// ServiceName is the service name in traces.
	// Default: "auditor"
	ServiceName string `yaml:"service_name"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Runs triggered over HTTP must finish within it.
	// Default: 5m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

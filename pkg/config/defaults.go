package config

import "time"

// Default values for configuration fields.
const (
	// Rules defaults
	DefaultRulesPath        = "./checks.yaml"
	DefaultRulesMaxFileSize = int64(1048576) // 1MB
	DefaultRulesDebounce    = 100 * time.Millisecond

	// Datasource defaults
	DefaultDatasourceDriver          = "sqlite"
	DefaultDatasourceQueryTimeout    = 30 * time.Second
	DefaultDatasourceMaxOpenConns    = 4
	DefaultDatasourceConnMaxLifetime = 30 * time.Minute

	// History defaults
	DefaultHistoryBackend            = "sqlite"
	DefaultHistorySQLitePath         = "data/history.db"
	DefaultHistorySQLiteMaxOpenConns = 10
	DefaultHistorySQLiteMaxIdleConns = 5
	DefaultHistorySQLiteJournalMode  = "wal"
	DefaultHistorySQLiteBusyTimeout  = 5 * time.Second
	DefaultHistoryRetentionDays      = 90
	DefaultHistoryRetentionSchedule  = "0 3 * * *"
	DefaultHistoryDefaultLimit       = 100

	// Remediation defaults
	DefaultRemediationTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "text"
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "auditor"
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 1.0
	DefaultTracingTimeout      = 10 * time.Second
	DefaultTracingServiceName  = "auditor"

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultShutdownTimeout = 30 * time.Second
)

// DefaultDurationBuckets are the check duration histogram buckets in seconds.
var DefaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Rules defaults
	if cfg.Rules.Path == "" {
		cfg.Rules.Path = DefaultRulesPath
	}
	if cfg.Rules.MaxFileSize == 0 {
		cfg.Rules.MaxFileSize = DefaultRulesMaxFileSize
	}
	if cfg.Rules.Debounce == 0 {
		cfg.Rules.Debounce = DefaultRulesDebounce
	}

	// Datasource defaults
	if cfg.Datasource.Driver == "" {
		cfg.Datasource.Driver = DefaultDatasourceDriver
	}
	if cfg.Datasource.QueryTimeout == 0 {
		cfg.Datasource.QueryTimeout = DefaultDatasourceQueryTimeout
	}
	if cfg.Datasource.MaxOpenConns == 0 {
		cfg.Datasource.MaxOpenConns = DefaultDatasourceMaxOpenConns
	}
	if cfg.Datasource.ConnMaxLifetime == 0 {
		cfg.Datasource.ConnMaxLifetime = DefaultDatasourceConnMaxLifetime
	}

	applyHistoryDefaults(&cfg.History)

	// Remediation defaults
	if cfg.Remediation.Timeout == 0 {
		cfg.Remediation.Timeout = DefaultRemediationTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// applyHistoryDefaults applies default values to history configuration.
func applyHistoryDefaults(h *HistoryConfig) {
	if h.Backend == "" {
		h.Backend = DefaultHistoryBackend
	}
	if h.SQLite.Path == "" {
		h.SQLite.Path = DefaultHistorySQLitePath
	}
	if h.SQLite.MaxOpenConns == 0 {
		h.SQLite.MaxOpenConns = DefaultHistorySQLiteMaxOpenConns
	}
	if h.SQLite.MaxIdleConns == 0 {
		h.SQLite.MaxIdleConns = DefaultHistorySQLiteMaxIdleConns
	}
	if h.SQLite.JournalMode == "" {
		h.SQLite.JournalMode = DefaultHistorySQLiteJournalMode
	}
	if h.SQLite.BusyTimeout == 0 {
		h.SQLite.BusyTimeout = DefaultHistorySQLiteBusyTimeout
	}
	if h.Retention.Days == 0 {
		h.Retention.Days = DefaultHistoryRetentionDays
	}
	if h.Retention.PruneSchedule == "" {
		h.Retention.PruneSchedule = DefaultHistoryRetentionSchedule
	}
	if h.DefaultLimit == 0 {
		h.DefaultLimit = DefaultHistoryDefaultLimit
	}
}

// Default returns a configuration with every default applied. It is used
// when no configuration file is given.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "AUDITOR_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Parse decodes YAML configuration and applies defaults. It does not validate.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention AUDITOR_SECTION_FIELD (e.g., AUDITOR_DATASOURCE_DSN).
// Environment variables always take precedence over file-based configuration.
//
// When path is empty the defaults are used as the base configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		var err error
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed numeric, boolean or duration values are reported as a ValidationError.
func applyEnvOverrides(cfg *Config) error {
	e := &envReader{}

	// Rules overrides
	e.setString("RULES_PATH", &cfg.Rules.Path)
	e.setBool("RULES_WATCH", &cfg.Rules.Watch)
	e.setInt64("RULES_MAX_FILE_SIZE", &cfg.Rules.MaxFileSize)
	e.setDuration("RULES_DEBOUNCE", &cfg.Rules.Debounce)

	// Datasource overrides
	e.setString("DATASOURCE_DRIVER", &cfg.Datasource.Driver)
	e.setString("DATASOURCE_DSN", &cfg.Datasource.DSN)
	e.setDuration("DATASOURCE_QUERY_TIMEOUT", &cfg.Datasource.QueryTimeout)
	e.setInt("DATASOURCE_MAX_OPEN_CONNS", &cfg.Datasource.MaxOpenConns)

	// History overrides
	e.setBool("HISTORY_ENABLED", &cfg.History.Enabled)
	e.setString("HISTORY_BACKEND", &cfg.History.Backend)
	e.setString("HISTORY_SQLITE_PATH", &cfg.History.SQLite.Path)
	e.setString("HISTORY_SQLITE_JOURNAL_MODE", &cfg.History.SQLite.JournalMode)
	e.setInt("HISTORY_RETENTION_DAYS", &cfg.History.Retention.Days)
	e.setInt64("HISTORY_RETENTION_MAX_RUNS", &cfg.History.Retention.MaxRuns)
	e.setString("HISTORY_RETENTION_PRUNE_SCHEDULE", &cfg.History.Retention.PruneSchedule)

	// Schedule and remediation overrides
	e.setString("SCHEDULE_CRON", &cfg.Schedule.Cron)
	e.setBool("REMEDIATION_ENABLED", &cfg.Remediation.Enabled)
	e.setDuration("REMEDIATION_TIMEOUT", &cfg.Remediation.Timeout)

	// Telemetry overrides
	e.setString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	e.setString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	e.setBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	e.setString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	e.setBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	e.setString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	e.setFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)

	// Server overrides
	e.setString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	e.setDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	e.setDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)

	if len(e.errs) > 0 {
		return ValidationError{Errors: e.errs}
	}
	return nil
}

// envReader looks up AUDITOR_* variables and collects conversion errors.
type envReader struct {
	errs []FieldError
}

func (e *envReader) lookup(key string) (string, bool) {
	val, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(val) == "" {
		return "", false
	}
	return strings.TrimSpace(val), true
}

func (e *envReader) fail(key, kind, val string) {
	e.errs = append(e.errs, FieldError{
		Field:   EnvPrefix + key,
		Message: fmt.Sprintf("invalid %s %q", kind, val),
	})
}

func (e *envReader) setString(key string, dst *string) {
	if val, ok := e.lookup(key); ok {
		*dst = val
	}
}

func (e *envReader) setBool(key string, dst *bool) {
	val, ok := e.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		e.fail(key, "boolean", val)
		return
	}
	*dst = b
}

func (e *envReader) setInt(key string, dst *int) {
	val, ok := e.lookup(key)
	if !ok {
		return
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		e.fail(key, "integer", val)
		return
	}
	*dst = i
}

func (e *envReader) setInt64(key string, dst *int64) {
	val, ok := e.lookup(key)
	if !ok {
		return
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		e.fail(key, "integer", val)
		return
	}
	*dst = i
}

func (e *envReader) setFloat(key string, dst *float64) {
	val, ok := e.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		e.fail(key, "number", val)
		return
	}
	*dst = f
}

func (e *envReader) setDuration(key string, dst *time.Duration) {
	val, ok := e.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		e.fail(key, "duration", val)
		return
	}
	*dst = d
}

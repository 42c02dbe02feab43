// Package config provides configuration management for the auditor.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("auditor.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("auditor.yaml")
//
// Passing an empty path to LoadConfigWithEnvOverrides starts from defaults.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention AUDITOR_SECTION_FIELD:
//
//   - AUDITOR_RULES_PATH overrides rules.path
//   - AUDITOR_DATASOURCE_DSN overrides datasource.dsn
//   - AUDITOR_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Example Configuration
//
//	rules:
//	  path: ./checks
//	  watch: true
//	  vars:
//	    schema: public
//
//	datasource:
//	  driver: pgx
//	  dsn: postgres://auditor@localhost:5432/shop
//	  query_timeout: 30s
//
//	history:
//	  enabled: true
//	  backend: sqlite
//	  sqlite:
//	    path: data/history.db
//	  retention:
//	    days: 30
//
//	schedule:
//	  cron: "*/15 * * * *"
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
//	  metrics:
//	    enabled: true
package config

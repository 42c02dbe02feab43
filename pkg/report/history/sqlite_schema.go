package history

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the run history tables. Timestamps are stored as Unix
// nanoseconds in UTC so that range filters compare numerically.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL,
    n_total INTEGER NOT NULL,
    n_multi INTEGER NOT NULL,
    n_none INTEGER NOT NULL,
    n_queryerror INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS outcomes (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    check_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    code TEXT NOT NULL,
    message TEXT NOT NULL,
    row_count INTEGER NOT NULL,
    fix TEXT,
    query_text TEXT NOT NULL,
    error TEXT,
    duration_ns INTEGER NOT NULL,
    PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_outcomes_check_id ON outcomes(check_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_kind ON outcomes(kind);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion returns the latest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

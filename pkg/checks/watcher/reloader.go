package watcher

import (
	"log/slog"
	"time"

	"mercator-hq/auditor/pkg/checks"
)

// RuleLoader loads definitions from a path.
type RuleLoader interface {
	Load(path string) ([]*checks.Definition, error)
}

// Target receives a freshly loaded rule set.
type Target interface {
	Replace(defs []*checks.Definition)
}

// Recorder records reload results.
type Recorder interface {
	RecordReload(success bool, loaded int)
}

// Reloader re-reads the rule documents and swaps them into a Target. A
// reload that fails leaves the previous rule set in place.
type Reloader struct {
	path     string
	loader   RuleLoader
	target   Target
	recorder Recorder
	logger   *slog.Logger
}

// NewReloader creates a reloader for the rules at path.
func NewReloader(path string, loader RuleLoader, target Target, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{
		path:   path,
		loader: loader,
		target: target,
		logger: logger.With("component", "checks.reloader"),
	}
}

// SetRecorder registers a recorder for reload results.
func (r *Reloader) SetRecorder(rec Recorder) {
	r.recorder = rec
}

// Reload loads the rules and installs them. It has the signature expected
// by Watcher.Watch.
func (r *Reloader) Reload() error {
	start := time.Now()

	defs, err := r.loader.Load(r.path)
	if err != nil {
		if r.recorder != nil {
			r.recorder.RecordReload(false, 0)
		}
		return err
	}

	r.target.Replace(defs)
	if r.recorder != nil {
		r.recorder.RecordReload(true, len(defs))
	}

	r.logger.Info("rules reloaded",
		"path", r.path,
		"checks", len(defs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

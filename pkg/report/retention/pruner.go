package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/auditor/pkg/config"
	"mercator-hq/auditor/pkg/report/history"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to keep runs.
	// 0 keeps runs forever.
	RetentionDays int

	// MaxRuns is the maximum number of runs to keep. 0 means unlimited.
	MaxRuns int64

	// PruneSchedule is a cron expression for scheduled pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string
}

// FromConfig maps the history retention section to a pruner Config.
func FromConfig(cfg config.RetentionConfig) *Config {
	return &Config{
		RetentionDays: cfg.Days,
		MaxRuns:       cfg.MaxRuns,
		PruneSchedule: cfg.PruneSchedule,
	}
}

// Recorder receives the number of runs removed by each prune.
type Recorder interface {
	RecordPrune(deleted int64)
}

// Pruner enforces retention on the run history.
type Pruner struct {
	store    history.Store
	config   *Config
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
}

// NewPruner creates a pruner over store. A nil config keeps everything.
func NewPruner(store history.Store, cfg *Config, logger *slog.Logger) *Pruner {
	if cfg == nil {
		cfg = &Config{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:  store,
		config: cfg,
		logger: logger.With("component", "report.retention"),
		now:    time.Now,
	}
}

// SetRecorder registers a recorder for prune counts.
func (p *Pruner) SetRecorder(r Recorder) {
	p.recorder = r
}

// Prune deletes runs older than the retention period, then the oldest runs
// beyond MaxRuns. It returns the number of runs deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
	}

	if p.config.MaxRuns > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
	}

	if p.recorder != nil {
		p.recorder.RecordPrune(total)
	}

	if total == 0 {
		p.logger.Debug("no runs pruned",
			"retention_days", p.config.RetentionDays,
			"max_runs", p.config.MaxRuns,
		)
	} else {
		p.logger.Info("history pruning completed",
			"deleted_runs", total,
			"retention_days", p.config.RetentionDays,
			"max_runs", p.config.MaxRuns,
		)
	}
	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
	p.logger.Debug("pruning by age", "cutoff_time", cutoff)

	return p.store.Delete(ctx, &history.Query{EndTime: &cutoff})
}

func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.store.Count(ctx, &history.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	if count <= p.config.MaxRuns {
		return 0, nil
	}

	excess, err := p.store.Runs(ctx, &history.Query{
		Offset: int(p.config.MaxRuns),
		Limit:  int(count - p.config.MaxRuns),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list runs: %w", err)
	}

	p.logger.Info("run count exceeds limit, pruning oldest",
		"current_count", count,
		"max_runs", p.config.MaxRuns,
		"to_delete", len(excess),
	)

	var deleted int64
	for _, r := range excess {
		n, err := p.store.Delete(ctx, &history.Query{RunID: r.ID})
		if err != nil {
			return deleted, fmt.Errorf("delete run %s: %w", r.ID, err)
		}
		deleted += n
	}
	return deleted, nil
}

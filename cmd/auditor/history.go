package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/report"
	"mercator-hq/auditor/pkg/report/history"
	"mercator-hq/auditor/pkg/report/retention"
)

var historyFlags struct {
	since   string
	until   string
	checkID string
	kind    string
	limit   int
	offset  int
	format  string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query stored audit runs",
	Long: `Query runs persisted in the history store (history.enabled must be set).

Subcommands:
  runs      - List runs, newest first
  show      - Print one run with its outcomes
  outcomes  - List outcomes filtered by check or kind
  prune     - Apply the retention policy now

Examples:
  auditor history runs --since 2026-01-01T00:00:00Z --limit 20
  auditor history show 1f0c6a52-6d0e-4c4f-9b7e-0c3f2b8c7d11 --format json
  auditor history outcomes --check negative-totals --kind multi`,
}

var historyRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs",
	Args:  cobra.NoArgs,
	RunE:  listRuns,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  showRun,
}

var historyOutcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "List stored outcomes",
	Args:  cobra.NoArgs,
	RunE:  listOutcomes,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete runs beyond the retention policy",
	Args:  cobra.NoArgs,
	RunE:  pruneHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyRunsCmd, historyShowCmd, historyOutcomesCmd, historyPruneCmd)

	for _, c := range []*cobra.Command{historyRunsCmd, historyOutcomesCmd} {
		c.Flags().StringVar(&historyFlags.since, "since", "", "only runs started at or after this time (RFC3339)")
		c.Flags().StringVar(&historyFlags.until, "until", "", "only runs started at or before this time (RFC3339)")
		c.Flags().IntVar(&historyFlags.limit, "limit", history.DefaultLimit, "max results")
		c.Flags().IntVar(&historyFlags.offset, "offset", 0, "pagination offset")
	}
	historyOutcomesCmd.Flags().StringVar(&historyFlags.checkID, "check", "", "filter by check ID")
	historyOutcomesCmd.Flags().StringVar(&historyFlags.kind, "kind", "", "filter by kind: multi, none, queryerror")

	for _, c := range []*cobra.Command{historyRunsCmd, historyShowCmd, historyOutcomesCmd} {
		c.Flags().StringVarP(&historyFlags.format, "format", "f", "text", "output format: text, json, csv")
	}
}

// withHistory opens the configured history store for fn.
func withHistory(fn func(ctx context.Context, store history.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return cli.NewConfigError("history.enabled", "history is disabled")
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	store, err := openHistory(&cfg.History, logger)
	if err != nil {
		return cli.NewCommandError("history", err)
	}
	defer store.Close()

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	if err := fn(ctx, store); err != nil {
		return cli.NewCommandError("history", err)
	}
	return nil
}

// historyQuery builds a store query from the command flags.
func historyQuery() (*history.Query, error) {
	q := &history.Query{
		CheckID: historyFlags.checkID,
		Kind:    checks.Kind(historyFlags.kind),
		Limit:   historyFlags.limit,
		Offset:  historyFlags.offset,
	}
	switch q.Kind {
	case "", checks.KindMulti, checks.KindNone, checks.KindQueryError:
	default:
		return nil, cli.NewConfigError("--kind", fmt.Sprintf("unknown kind %q", q.Kind))
	}
	if q.Limit < 0 {
		return nil, cli.NewConfigError("--limit", fmt.Sprintf("must be >= 0, got %d", q.Limit))
	}
	if q.Offset < 0 {
		return nil, cli.NewConfigError("--offset", fmt.Sprintf("must be >= 0, got %d", q.Offset))
	}

	var err error
	if q.StartTime, err = parseTimeFlag("--since", historyFlags.since); err != nil {
		return nil, err
	}
	if q.EndTime, err = parseTimeFlag("--until", historyFlags.until); err != nil {
		return nil, err
	}
	return q, nil
}

func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, cli.NewConfigError(name, fmt.Sprintf("invalid time %q: %v", value, err))
	}
	return &t, nil
}

// runsTable lists run headers.
type runsTable []*history.RunRecord

func (t runsTable) Headers() []string {
	return []string{"run_id", "started_at", "duration", "checks", "multi", "none", "queryerror"}
}

func (t runsTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Format(time.RFC3339),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			strconv.Itoa(r.Summary.Total),
			strconv.Itoa(r.Summary.Multi),
			strconv.Itoa(r.Summary.None),
			strconv.Itoa(r.Summary.QueryError),
		})
	}
	return rows
}

// entriesTable lists stored outcomes.
type entriesTable []*history.Entry

func (t entriesTable) Headers() []string {
	return []string{"run_id", "started_at", "check_id", "kind", "code", "count", "message"}
}

func (t entriesTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		rows = append(rows, []string{
			e.RunID,
			e.StartedAt.Format(time.RFC3339),
			e.Outcome.CheckID,
			string(e.Outcome.Kind),
			e.Outcome.Code,
			strconv.Itoa(e.Outcome.Count),
			e.Outcome.Message,
		})
	}
	return rows
}

func listRuns(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(historyFlags.format)
	if err != nil {
		return cli.NewConfigError("--format", err.Error())
	}
	q, err := historyQuery()
	if err != nil {
		return err
	}
	return withHistory(func(ctx context.Context, store history.Store) error {
		runs, err := store.Runs(ctx, q)
		if err != nil {
			return err
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), runsTable(runs))
	})
}

func listOutcomes(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(historyFlags.format)
	if err != nil {
		return cli.NewConfigError("--format", err.Error())
	}
	q, err := historyQuery()
	if err != nil {
		return err
	}
	return withHistory(func(ctx context.Context, store history.Store) error {
		entries, err := store.Query(ctx, q)
		if err != nil {
			return err
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), entriesTable(entries))
	})
}

func showRun(cmd *cobra.Command, args []string) error {
	exporter, err := report.NewExporter(historyFlags.format)
	if err != nil {
		return cli.NewConfigError("--format", err.Error())
	}
	return withHistory(func(ctx context.Context, store history.Store) error {
		run, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return exporter.Export(ctx, run, cmd.OutOrStdout())
	})
}

func pruneHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return withHistory(func(ctx context.Context, store history.Store) error {
		pruner := retention.NewPruner(store, retention.FromConfig(cfg.History.Retention), nil)
		deleted, err := pruner.Prune(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %d runs deleted\n", deleted)
		return nil
	})
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/checks/remedy"
	"mercator-hq/auditor/pkg/cli"
	"mercator-hq/auditor/pkg/report"
)

// auditFlags are shared by the run and check commands.
type auditFlags struct {
	autoFix        bool
	format         string
	output         string
	dryRun         bool
	failOnFindings bool
}

func (f *auditFlags) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.autoFix, "auto-fix", false, "apply the fix of every triggered check (also enabled by remediation.enabled)")
	cmd.Flags().StringVarP(&f.format, "format", "f", report.FormatText, "report format: text, json, csv")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "report file (default: stdout)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "evaluate against a scripted backend that returns no rows")
	cmd.Flags().BoolVar(&f.failOnFindings, "fail-on-findings", false, "exit with status 2 when any check triggers or fails")
}

var runFlags auditFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate every check once",
	Long: `Evaluate every loaded check in order and write a report.

Checks run one at a time; a failing query is reported as "queryerror" and the
remaining checks still run.

Examples:
  # Run with a configuration file
  auditor run --config auditor.yaml

  # JSON report for CI, failing the job on findings
  auditor run --format json --output report.json --fail-on-findings

  # Apply fixes of triggered checks
  auditor run --auto-fix

  # Check rules and templates without querying the database
  auditor run --dry-run`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return audit(cmd, "run", &runFlags, func(ctx context.Context, a *app) (*checks.Run, error) {
			return a.engine.RunAll(ctx, a.registry.List())
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runFlags.bind(runCmd)
}

// audit assembles the stack, performs one run through do, writes the report
// and applies fixes when enabled.
func audit(cmd *cobra.Command, name string, flags *auditFlags, do func(context.Context, *app) (*checks.Run, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	exporter, err := report.NewExporter(flags.format)
	if err != nil {
		return cli.NewConfigError("--format", err.Error())
	}

	out := cmd.OutOrStdout()
	if flags.output != "" {
		f, err := os.Create(flags.output)
		if err != nil {
			return cli.NewCommandError(name, fmt.Errorf("create report file: %w", err))
		}
		defer f.Close()
		out = f
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg, logger, appOptions{
		dryRun: flags.dryRun,
		sinks:  []report.Sink{report.NewWriterSink(out, exporter)},
	})
	if err != nil {
		return cli.NewCommandError(name, err)
	}
	defer a.Close()

	// A run returned with an error was evaluated but not fully reported.
	run, err := do(ctx, a)
	if err != nil {
		return cli.NewCommandError(name, err)
	}

	if flags.autoFix || cfg.Remediation.Enabled {
		results, err := a.applyFixes(ctx, run)
		printFixes(cmd.ErrOrStderr(), results)
		if err != nil {
			return cli.NewCommandError(name, err)
		}
	}

	if flags.failOnFindings && run.HasFindings() {
		sum := run.Summary()
		return &cli.ExitError{
			Code:   cli.ExitFindings,
			Reason: fmt.Sprintf("%d triggered, %d failed", sum.Multi, sum.QueryError),
		}
	}
	return nil
}

func printFixes(w io.Writer, results []remedy.FixResult) {
	for _, res := range results {
		switch res.Status() {
		case remedy.StatusApplied:
			fmt.Fprintf(w, "✓ fix %s applied (%d rows)\n", res.CheckID, res.RowsAffected)
		case remedy.StatusSkipped:
			fmt.Fprintf(w, "- fix %s skipped: %s\n", res.CheckID, res.Fix)
		default:
			fmt.Fprintf(w, "✗ fix %s failed: %v\n", res.CheckID, res.Err)
		}
	}
}

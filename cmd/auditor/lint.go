package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/checks"
	"mercator-hq/auditor/pkg/checks/engine"
	"mercator-hq/auditor/pkg/cli"
)

var lintFlags struct {
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint [path...]",
	Short: "Validate rule documents",
	Long: `Load rule documents and print the resulting checks without executing them.

Lint reports malformed documents, entries missing a query or both result
branches, duplicate IDs, and query templates referencing undefined
variables. Paths default to rules.path from the configuration.

Examples:
  # Lint the configured rules
  auditor lint

  # Lint specific files or directories
  auditor lint checks/ extra.yaml

  # JSON output for CI/CD
  auditor lint --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)
	lintCmd.Flags().StringVarP(&lintFlags.format, "format", "f", "text", "output format: text, json, csv")
}

// lintTable lists loaded checks.
type lintTable struct {
	Checks []*checks.Definition `json:"checks"`
	Errors []string             `json:"errors,omitempty"`
}

func (t *lintTable) Headers() []string {
	return []string{"id", "multi", "none", "fix", "source"}
}

func (t *lintTable) Rows() [][]string {
	rows := make([][]string, 0, len(t.Checks))
	for _, def := range t.Checks {
		fix := "-"
		if def.Fix != "" {
			fix = "yes"
		}
		rows = append(rows, []string{def.ID, branchLabel(def.Multi), branchLabel(def.None), fix, def.Source})
	}
	return rows
}

func branchLabel(b checks.Branch) string {
	if b.IsZero() {
		return "-"
	}
	return b.Code
}

func lintRules(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(lintFlags.format)
	if err != nil {
		return cli.NewConfigError("--format", err.Error())
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{cfg.Rules.Path}
	}

	l := newRuleLoader(cfg)
	table := &lintTable{}
	seen := make(map[string]string)
	for _, path := range paths {
		defs, err := l.Load(path)
		if err != nil {
			table.Errors = append(table.Errors, err.Error())
			continue
		}
		for _, def := range defs {
			if prev, ok := seen[def.ID]; ok {
				table.Errors = append(table.Errors, fmt.Sprintf("%s: duplicate check id %q (first defined in %s)", def.Source, def.ID, prev))
			}
			seen[def.ID] = def.Source
			if _, err := engine.Render(def, cfg.Rules.Vars); err != nil {
				table.Errors = append(table.Errors, fmt.Sprintf("%s: check %q: invalid query template: %v", def.Source, def.ID, err))
			}
		}
		table.Checks = append(table.Checks, defs...)
	}

	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), table); err != nil {
		return cli.NewCommandError("lint", err)
	}

	if len(table.Errors) > 0 {
		if format == cli.FormatText {
			for _, msg := range table.Errors {
				fmt.Fprintln(cmd.ErrOrStderr(), "✗", msg)
			}
		}
		return cli.NewCommandError("lint", fmt.Errorf("%d problem(s) found:\n  %s", len(table.Errors), strings.Join(table.Errors, "\n  ")))
	}

	if format == cli.FormatText {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ %d checks valid\n", len(table.Checks))
	}
	return nil
}

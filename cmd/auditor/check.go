package main

import (
	"context"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/checks"
)

var checkFlags auditFlags

var checkCmd = &cobra.Command{
	Use:   "check <id>",
	Short: "Evaluate one check",
	Long: `Evaluate the check with the given ID and write a report.

Examples:
  auditor check negative-totals
  auditor check negative-totals --format json --fail-on-findings`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return audit(cmd, "check", &checkFlags, func(ctx context.Context, a *app) (*checks.Run, error) {
			return a.engine.RunByID(ctx, a.registry, args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkFlags.bind(checkCmd)
}

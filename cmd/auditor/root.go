package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/auditor/pkg/cli"
)

var (
	// Global flags
	cfgFile   string
	rulesPath string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "auditor",
	Short: "Auditor - declarative data-integrity checks",
	Long: `Auditor evaluates declarative data-integrity checks against a database.

A check pairs a query selecting offending rows with a code and message for
each result: "multi" when rows were found, "none" when the query returned no
rows. Queries that cannot be executed are reported as "queryerror" and never
stop the remaining checks.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	code := cli.ExitCode(err)
	if code == cli.ExitFailure {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return code
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVarP(&rulesPath, "rules", "r", "", "rule file or directory (overrides rules.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

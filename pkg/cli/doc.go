/*
Package cli provides helpers shared by the auditor commands.

Output Formatting:

Listing commands (lint, history) render a Table as text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, rows); err != nil {
		return err
	}

Exit Codes:

Commands return *ExitError to request a non-zero exit status without an
error message, for example ExitFindings when --fail-on-findings is set and a
run reported multi or queryerror outcomes.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli

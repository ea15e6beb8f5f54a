/*
Package cli provides command-line helpers shared by the orproxy commands.

Output Formatting:

Commands that print results accept --output text|json|csv:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, result); err != nil {
		return err
	}

Results implementing Tabular render as aligned columns in text mode and as
rows in CSV mode. Anything else prints with %v in text mode; CSV rejects it.

Errors and Exit Codes:

Configuration failures are wrapped with WrapConfigError and map to exit
code 2 through ExitCode. Every other failure exits with 1.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
	return srv.Start(ctx)

A second signal while shutting down exits immediately.
*/
package cli

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/orproxy/pkg/cli"
	"mercator-hq/orproxy/pkg/config"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	envFiles   []string
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "orproxy",
		Short: "orproxy - provider-pinning reverse proxy for OpenRouter",
		Long: `orproxy is a reverse HTTP proxy in front of the OpenRouter API.

It forwards OpenAI-compatible requests unchanged except for two rewrites:
  - /api/v1/chat/completions and /api/v1/embeddings get provider.order set
    from the first routing rule whose pattern matches the model
  - /v1/{provider}/chat/completions pins the named provider and qualifies
    an unqualified model as provider/model

Every other path is forwarded as-is. Event streams are relayed as they arrive.

Configuration comes from a YAML file, ORPROXY_* environment variables and
command-line flags, in increasing order of precedence.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", fmt.Sprintf("config file path (default %q, optional)", config.DefaultConfigPath))
	flags.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")
	flags.StringVarP(&opts.output, "output", "o", "text", "output format for results: text, json, csv")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newRoutesCmd(opts),
		newValidateCmd(opts),
		newVersionCmd(opts),
	)

	return rootCmd
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

// loadConfig loads the configuration the way every command sees it. An
// explicitly named config file must exist; the default one is optional.
func loadConfig(cmd *cobra.Command, opts *globalOptions, overrides config.Overrides) (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigPath:  opts.configPath,
		RequireFile: cmd.Flags().Changed("config"),
		EnvFiles:    opts.envFiles,
		Overrides:   overrides,
	})
	if err != nil {
		return nil, cli.WrapConfigError(err)
	}
	return cfg, nil
}

// printResult writes data to the command's stdout in the --output format.
func printResult(cmd *cobra.Command, opts *globalOptions, data any) error {
	format, err := cli.ParseOutputFormat(opts.output)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}

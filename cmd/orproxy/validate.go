package main

import (
	"github.com/spf13/cobra"

	"mercator-hq/orproxy/pkg/cli"
	"mercator-hq/orproxy/pkg/config"
)

// validateResult summarises a configuration that passed validation.
type validateResult struct {
	Valid         bool   `json:"valid"`
	ListenAddress string `json:"listen_address"`
	UpstreamURL   string `json:"upstream_url"`
	Rules         int    `json:"rules"`
	TLS           bool   `json:"tls"`
}

func (r validateResult) String() string {
	return "configuration valid"
}

func newValidateCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Load the configuration file, .env files and ORPROXY_* environment
variables, then validate the result without starting the server.

Every invalid field is reported, including routing rules that do not
parse. The command exits with status 2 when the configuration is invalid.

Examples:
  orproxy validate
  orproxy validate --config /etc/orproxy/orproxy.yaml
  orproxy validate -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, global, config.Overrides{})
			if err != nil {
				return err
			}
			table, err := cfg.RoutingTable()
			if err != nil {
				return cli.WrapConfigError(err)
			}

			return printResult(cmd, global, validateResult{
				Valid:         true,
				ListenAddress: cfg.Proxy.ListenAddress,
				UpstreamURL:   cfg.Upstream.BaseURL,
				Rules:         table.Len(),
				TLS:           cfg.Security.TLS.Enabled,
			})
		},
	}
}

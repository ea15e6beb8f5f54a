package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/orproxy/pkg/cli"
	"mercator-hq/orproxy/pkg/config"
	"mercator-hq/orproxy/pkg/routing"
)

// ruleView is one routing rule as printed by "routes".
type ruleView struct {
	Index     int      `json:"index"`
	Pattern   string   `json:"pattern"`
	Kind      string   `json:"kind"`
	Providers []string `json:"providers"`
}

// routeTable is the printable routing table.
type routeTable struct {
	Rules []ruleView `json:"rules"`
}

func newRouteTable(t *routing.Table) routeTable {
	rules := t.Rules()
	out := routeTable{Rules: make([]ruleView, 0, len(rules))}
	for i, r := range rules {
		out.Rules = append(out.Rules, ruleView{
			Index:     i + 1,
			Pattern:   r.Pattern.String(),
			Kind:      r.Pattern.Kind().String(),
			Providers: r.Providers,
		})
	}
	return out
}

func (r routeTable) Header() []string {
	return []string{"#", "PATTERN", "KIND", "PROVIDERS"}
}

func (r routeTable) Rows() [][]string {
	rows := make([][]string, 0, len(r.Rules))
	for _, v := range r.Rules {
		rows = append(rows, []string{strconv.Itoa(v.Index), v.Pattern, v.Kind, strings.Join(v.Providers, ",")})
	}
	return rows
}

// routeMatch is the answer to "routes --model".
type routeMatch struct {
	Model     string   `json:"model"`
	Matched   bool     `json:"matched"`
	Rule      int      `json:"rule,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
	Providers []string `json:"providers,omitempty"`
}

func matchModel(t *routing.Table, model string) routeMatch {
	m := routeMatch{Model: model}
	for i, r := range t.Rules() {
		if r.Pattern.Match(model) {
			m.Matched = true
			m.Rule = i + 1
			m.Pattern = r.Pattern.String()
			m.Providers = r.Providers
			break
		}
	}
	return m
}

func (m routeMatch) Header() []string {
	return []string{"MODEL", "RULE", "PATTERN", "PROVIDERS"}
}

func (m routeMatch) Rows() [][]string {
	if !m.Matched {
		return [][]string{{m.Model, "-", "-", "no match"}}
	}
	return [][]string{{m.Model, strconv.Itoa(m.Rule), m.Pattern, strings.Join(m.Providers, ",")}}
}

func newRoutesCmd(global *globalOptions) *cobra.Command {
	var (
		model  string
		routes []string
	)

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the model routing table",
		Long: `Print the routing table built from the configuration, in declaration order.
The first rule whose pattern matches a model wins.

With --model, print which rule a model name hits and the provider order
that would be injected, or "no match".

Examples:
  # Show the configured rules
  orproxy routes

  # Try rules without editing the config file
  orproxy routes --route 'gpt-*=openai' --model gpt-4o

  # Machine-readable output
  orproxy routes -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, global, config.Overrides{Routes: routes})
			if err != nil {
				return err
			}
			table, err := cfg.RoutingTable()
			if err != nil {
				return cli.WrapConfigError(err)
			}

			if cmd.Flags().Changed("model") {
				return printResult(cmd, global, matchModel(table, model))
			}
			return printRoutes(cmd, global, table)
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "model name to resolve against the table")
	cmd.Flags().StringArrayVar(&routes, "route", nil, "routing rule pattern=provider1,provider2 (repeatable, replaces configured rules)")

	return cmd
}

// printRoutes prints the routing table, or a notice in text mode when it is
// empty.
func printRoutes(cmd *cobra.Command, global *globalOptions, table *routing.Table) error {
	format, err := cli.ParseOutputFormat(global.output)
	if err != nil {
		return err
	}
	if table.Len() == 0 && format == cli.FormatText {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "no model routing rules configured")
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), newRouteTable(table))
}

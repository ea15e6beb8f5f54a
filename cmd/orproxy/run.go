package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/orproxy/pkg/cli"
	"mercator-hq/orproxy/pkg/config"
	"mercator-hq/orproxy/pkg/proxy/handlers"
	"mercator-hq/orproxy/pkg/proxy/transform"
	"mercator-hq/orproxy/pkg/proxy/upstream"
	"mercator-hq/orproxy/pkg/routing"
	tlsx "mercator-hq/orproxy/pkg/security/tls"
	"mercator-hq/orproxy/pkg/server"
	"mercator-hq/orproxy/pkg/telemetry/health"
	"mercator-hq/orproxy/pkg/telemetry/logging"
	"mercator-hq/orproxy/pkg/telemetry/metrics"
	"mercator-hq/orproxy/pkg/telemetry/tracing"
)

const tracerShutdownTimeout = 5 * time.Second

type runOptions struct {
	listen    string
	ip        string
	port      int
	baseURL   string
	routes    []string
	mapping   string
	tlsCert   string
	tlsKey    string
	https     bool
	logLevel  string
	logFormat string
	dryRun    bool
}

// overrides converts the flags that were set into config overrides.
func (o *runOptions) overrides(cmd *cobra.Command) config.Overrides {
	routes := append([]string(nil), o.routes...)
	routes = append(routes, config.SplitRules(o.mapping)...)

	ov := config.Overrides{
		ListenAddress: o.listen,
		Host:          o.ip,
		Port:          o.port,
		BaseURL:       o.baseURL,
		Routes:        routes,
		TLSCertFile:   o.tlsCert,
		TLSKeyFile:    o.tlsKey,
		LogLevel:      o.logLevel,
		LogFormat:     o.logFormat,
	}
	if cmd.Flags().Changed("https") {
		https := o.https
		ov.HTTPS = &https
	}
	return ov
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the proxy server",
		Long: `Start the proxy server with the specified configuration.

The server listens on the configured address and forwards requests to the
upstream base URL, pinning providers according to the routing rules.

Examples:
  # Start with defaults
  orproxy run

  # Listen on localhost:8080 and route by model pattern
  orproxy run --ip 127.0.0.1 --port 8080 --route 'gpt-*=openai' --route '*=deepinfra'

  # Serve HTTPS, reloading the certificate when the files change
  orproxy run --https --tls-cert /etc/orproxy/cert.pem --tls-key /etc/orproxy/key.pem

  # Validate config and print the routing table without starting
  orproxy run --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd, global, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.listen, "listen", "l", "", "listen address host:port")
	flags.StringVar(&opts.ip, "ip", "", "listen host, combined with the configured or --port value")
	flags.IntVar(&opts.port, "port", 0, "listen port")
	flags.StringVar(&opts.baseURL, "base-url", "", "upstream API base URL")
	flags.StringArrayVar(&opts.routes, "route", nil, "routing rule pattern=provider1,provider2 (repeatable, replaces configured rules)")
	flags.StringVar(&opts.tlsCert, "tls-cert", "", "TLS certificate file (PEM)")
	flags.StringVar(&opts.tlsKey, "tls-key", "", "TLS private key file (PEM)")
	flags.BoolVar(&opts.https, "https", false, "serve HTTPS")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "override log format (json, text)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "validate config and print the routing table without starting the server")

	// Older flag names kept for existing deployment scripts.
	flags.StringVar(&opts.tlsCert, "cert-path", "", "alias of --tls-cert")
	flags.StringVar(&opts.tlsKey, "key-path", "", "alias of --tls-key")
	flags.StringVar(&opts.baseURL, "openrouter-base-url", "", "alias of --base-url")
	flags.StringVar(&opts.mapping, "model-provider-mapping", "", "';'-separated routing rules")
	for _, name := range []string{"cert-path", "key-path", "openrouter-base-url", "model-provider-mapping"} {
		_ = flags.MarkHidden(name)
	}

	return cmd
}

func runServer(cmd *cobra.Command, global *globalOptions, opts *runOptions) error {
	cfg, err := loadConfig(cmd, global, opts.overrides(cmd))
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Telemetry.Logging, cmd.ErrOrStderr())
	if err != nil {
		return cli.WrapConfigError(err)
	}
	slog.SetDefault(logger)

	table, err := cfg.RoutingTable()
	if err != nil {
		return cli.WrapConfigError(err)
	}

	if opts.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "configuration valid")
		return printRoutes(cmd, global, table)
	}

	logStartup(logger, cfg, table)

	srv, cleanup, err := buildServer(cfg, table, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer cleanup()

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	logger.Info("server stopped")
	return nil
}

// buildServer assembles the proxy from a validated configuration. The
// cleanup function flushes pending spans and must run after the server
// stops.
func buildServer(cfg *config.Config, table *routing.Table, logger *slog.Logger) (*server.Server, func(), error) {
	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), tracerShutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

	up := cfg.Upstream
	fwd, err := upstream.New(upstream.Config{
		BaseURL:               up.BaseURL,
		ResponseHeaderTimeout: up.ResponseHeaderTimeout,
		DialTimeout:           up.DialTimeout,
		TLSHandshakeTimeout:   up.TLSHandshakeTimeout,
		IdleConnTimeout:       up.IdleConnTimeout,
		MaxIdleConns:          up.MaxIdleConns,
		MaxIdleConnsPerHost:   up.MaxIdleConnsPerHost,
		StreamBufferSize:      up.StreamBufferSize,
	},
		upstream.WithObserver(collector),
		upstream.WithTracer(tracer),
		upstream.WithLogger(logger),
	)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to create upstream forwarder: %w", err)
	}

	proxyHandler, err := handlers.NewProxy(handlers.Config{
		Transformer:  transform.New(table),
		Forwarder:    fwd,
		Metrics:      collector,
		Logger:       logger,
		MaxBodyBytes: cfg.Proxy.MaxBodyBytes,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("routing", health.RoutingCheck(table))

	var reloader *tlsx.CertificateReloader
	if cfg.Security.TLS.Enabled {
		reloader = tlsx.NewCertificateReloader(cfg.Security.TLS, tlsx.WithLogger(logger))
		checker.RegisterCheck("tls", health.CertificateCheck(reloader))
	}

	srv, err := server.New(cfg, server.Deps{
		Proxy:    proxyHandler,
		Health:   checker,
		Version:  health.NewVersionInfo(Version, GitCommit, BuildDate),
		Metrics:  collector,
		Tracer:   tracer,
		Reloader: reloader,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return srv, cleanup, nil
}

func logStartup(logger *slog.Logger, cfg *config.Config, table *routing.Table) {
	logger.Info("orproxy starting",
		"version", Version,
		"listen_address", cfg.Proxy.ListenAddress,
		"tls_enabled", cfg.Security.TLS.Enabled,
		"upstream", cfg.Upstream.BaseURL,
		"metrics_enabled", cfg.Telemetry.Metrics.Enabled,
		"tracing_enabled", cfg.Telemetry.Tracing.Enabled,
	)

	if table.Len() == 0 {
		logger.Info("no model routing rules configured")
		return
	}
	for i, r := range table.Rules() {
		logger.Info("model routing rule",
			"index", i+1,
			"pattern", r.Pattern.String(),
			"providers", strings.Join(r.Providers, ","),
		)
	}
}

// Package server provides the HTTP(S) server that fronts the proxy handlers.
//
// The server mounts the proxy routes, health probes and the metrics
// endpoint on one mux, wraps them in the middleware chain and manages the
// listener lifecycle.
//
// # Basic Usage
//
//	srv, err := server.New(cfg, server.Deps{
//	    Proxy:   proxyHandler,
//	    Health:  checker,
//	    Version: health.NewVersionInfo(version, commit, buildDate),
//	    Metrics: collector,
//	    Tracer:  tracer,
//	})
//	if err != nil {
//	    return err
//	}
//
//	ctx, stop := cli.SetupSignalHandler(context.Background())
//	defer stop()
//	return srv.Start(ctx) // blocks until ctx is done or the listener fails
//
// # Middleware Chain
//
// Requests pass through, outermost first:
//
//	Recovery -> RequestID -> Logging -> CORS -> Tracing -> mux
//
// There is no timeout middleware: proxied event streams may run for as long
// as the upstream keeps sending. proxy.write_timeout defaults to zero for
// the same reason.
//
// # TLS
//
// With security.tls.enabled the listener serves HTTPS. Certificates come
// from the CertificateReloader on every handshake, so renewed files are
// picked up without a restart.
//
// # Graceful Shutdown
//
// When the context passed to Start is cancelled the server stops accepting
// connections and waits up to proxy.shutdown_timeout for in-flight
// requests to finish.
package server

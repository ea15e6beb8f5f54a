package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/orproxy/pkg/config"
	"mercator-hq/orproxy/pkg/proxy/handlers"
	"mercator-hq/orproxy/pkg/proxy/middleware"
	tlsx "mercator-hq/orproxy/pkg/security/tls"
	"mercator-hq/orproxy/pkg/telemetry/health"
	"mercator-hq/orproxy/pkg/telemetry/metrics"
	"mercator-hq/orproxy/pkg/telemetry/tracing"
)

// Deps are the components the server mounts. Proxy is required; the rest
// are optional.
type Deps struct {
	Proxy *handlers.Proxy

	Health  *health.Checker
	Version health.VersionInfo

	Metrics *metrics.Collector
	Tracer  *tracing.Tracer

	// Reloader serves the certificate when security.tls.enabled is set.
	Reloader *tlsx.CertificateReloader
}

// Server is the HTTP(S) proxy server.
type Server struct {
	config     *config.Config
	deps       Deps
	handler    http.Handler
	httpServer *http.Server

	mu           sync.RWMutex
	isRunning    bool
	addr         net.Addr
	ready        chan struct{}
	readyOnce    sync.Once
	shutdownOnce sync.Once
}

// New creates a server and builds its handler chain. Nothing listens
// until Start.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("server: config is required")
	}
	if deps.Proxy == nil {
		return nil, errors.New("server: proxy handler is required")
	}
	if cfg.Security.TLS.Enabled && deps.Reloader == nil {
		return nil, errors.New("server: TLS is enabled but no certificate reloader was provided")
	}

	s := &Server{
		config: cfg,
		deps:   deps,
		ready:  make(chan struct{}),
	}
	s.handler = s.setupRoutes()
	return s, nil
}

// Start listens on the configured address and serves until ctx is done or
// the server fails. On ctx cancellation it shuts down gracefully and
// returns the shutdown error, if any.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	proxyCfg := &s.config.Proxy
	tlsCfg := &s.config.Security.TLS

	s.httpServer = &http.Server{
		Addr:           proxyCfg.ListenAddress,
		Handler:        s.handler,
		ReadTimeout:    proxyCfg.ReadTimeout,
		WriteTimeout:   proxyCfg.WriteTimeout,
		IdleTimeout:    proxyCfg.IdleTimeout,
		MaxHeaderBytes: proxyCfg.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn),
	}

	if tlsCfg.Enabled {
		if err := s.deps.Reloader.Start(ctx); err != nil {
			s.markStopped()
			return err
		}
		serverTLS, err := tlsx.NewServerConfig(tlsCfg, s.deps.Reloader)
		if err != nil {
			s.markStopped()
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = serverTLS
	}

	ln, err := net.Listen("tcp", proxyCfg.ListenAddress)
	if err != nil {
		s.markStopped()
		return fmt.Errorf("failed to listen on %s: %w", proxyCfg.ListenAddress, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	scheme := "http"
	if tlsCfg.Enabled {
		scheme = "https"
	}
	slog.Info("starting proxy server",
		"address", ln.Addr().String(),
		"url", fmt.Sprintf("%s://%s", scheme, ln.Addr().String()),
		"tls_enabled", tlsCfg.Enabled,
	)

	errChan := make(chan error, 1)
	go func() {
		var err error
		if tlsCfg.Enabled {
			err = s.httpServer.ServeTLS(ln, "", "")
		} else {
			err = s.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()
	s.readyOnce.Do(func() { close(s.ready) })

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.WithoutCancel(ctx))
	case err, ok := <-errChan:
		s.markStopped()
		if ok {
			return err
		}
		return nil
	}
}

// Shutdown gracefully shuts down the server, waiting up to
// proxy.shutdown_timeout for in-flight requests, streams included.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if !s.IsRunning() {
			return
		}

		timeout := s.config.Proxy.ShutdownTimeout
		slog.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}
		if s.deps.Reloader != nil {
			s.deps.Reloader.Stop()
		}

		s.markStopped()
		slog.Info("proxy server stopped")
	})

	return shutdownErr
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the full middleware chain and routes.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) markStopped() {
	s.mu.Lock()
	s.isRunning = false
	s.mu.Unlock()
}

// setupRoutes configures HTTP routes and the middleware chain. No timeout
// middleware wraps the proxy routes: it would buffer event streams.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	telemetry := &s.config.Telemetry
	if telemetry.Health.Enabled && s.deps.Health != nil {
		s.deps.Health.Register(mux, telemetry.Health, s.deps.Version)
	}
	if s.deps.Metrics.Enabled() {
		mux.Handle("GET "+telemetry.Metrics.Path, s.deps.Metrics.Handler())
	}
	s.deps.Proxy.Register(mux)

	var handler http.Handler = mux

	// Tracing sits inside CORS so the span sees the matched route.
	if s.deps.Tracer != nil {
		handler = tracing.HTTPMiddleware(s.deps.Tracer)(handler)
	}

	handler = middleware.CORSMiddleware(&s.config.Proxy.CORS)(handler)
	handler = middleware.LoggingMiddleware(handler)
	// RequestID wraps Logging so the access log carries the same ID.
	handler = middleware.RequestIDMiddleware(handler)

	// Recovery middleware (outermost)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

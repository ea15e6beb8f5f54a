// Package telemetry groups the observability of the proxy.
//
// # Components
//
//   - logging: slog construction with bearer token redaction
//   - metrics: Prometheus collector and the /metrics handler
//   - tracing: OpenTelemetry tracer and W3C trace context propagation
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// Metrics and tracing are optional. A disabled collector records nothing and
// a disabled tracer hands out no-op spans, so callers never check.
package telemetry

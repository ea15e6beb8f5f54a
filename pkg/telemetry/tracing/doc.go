// Package tracing provides OpenTelemetry tracing for the proxy.
//
// Tracing is disabled by default. A disabled Tracer returns noop spans, but
// the W3C propagator is still installed, so a traceparent sent by the client
// is forwarded upstream unchanged in trace ID.
//
// # Spans
//
//   - server span per inbound request (HTTPMiddleware), renamed to the mux
//     pattern and annotated with the routing decision
//   - client span per upstream call, started by the forwarder; its context
//     is injected into the outbound request as traceparent
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	handler = tracing.HTTPMiddleware(tracer)(handler)
//
// # Configuration
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio        # always | never | ratio
//	    sample_ratio: 0.1
//	    endpoint: localhost:4317
//	    insecure: true
package tracing

package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Propagator returns the global text map propagator (W3C trace context
// and baggage once New has run).
func Propagator() propagation.TextMapPropagator {
	return otel.GetTextMapPropagator()
}

// Extract returns ctx with the trace context found in headers.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return Propagator().Extract(ctx, propagation.HeaderCarrier(headers))
}

// Inject writes traceparent/tracestate for ctx into headers. The
// forwarder calls it after copying client headers, so the proxy's span
// replaces any traceparent the client sent.
func Inject(ctx context.Context, headers http.Header) {
	Propagator().Inject(ctx, propagation.HeaderCarrier(headers))
}

// TraceIDHeader exposes the trace ID on responses.
const TraceIDHeader = "X-Trace-ID"

// HTTPMiddleware extracts incoming trace context and starts a server span
// per request named after the mux pattern once routing is known.
func HTTPMiddleware(t *Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := Extract(r.Context(), r.Header)
			ctx, span := t.Start(ctx, "HTTP "+r.Method, serverSpanOptions(r)...)
			defer span.End()

			if sc := span.SpanContext(); sc.IsValid() {
				w.Header().Set(TraceIDHeader, sc.TraceID().String())
			}

			r = r.WithContext(ctx)
			next.ServeHTTP(w, r)

			if r.Pattern != "" {
				span.SetName(r.Pattern)
			}
		})
	}
}

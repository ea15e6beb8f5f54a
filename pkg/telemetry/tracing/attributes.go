package tracing

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Custom attribute keys use the "orproxy.*" namespace.
const (
	AttrRouteMode      = "orproxy.route.mode"
	AttrProvider       = "orproxy.route.provider"
	AttrModel          = "orproxy.model"
	AttrProviders      = "orproxy.providers"
	AttrMatched        = "orproxy.route.matched"
	AttrModelRewritten = "orproxy.model.rewritten"
	AttrEndpoint       = "orproxy.endpoint"
	AttrStreamChunks   = "orproxy.stream.chunks"
	AttrStreamBytes    = "orproxy.stream.bytes"
	AttrErrorType      = "orproxy.error.type"

	AttrHTTPMethod     = "http.request.method"
	AttrHTTPStatusCode = "http.response.status_code"
	AttrURLPath        = "url.path"
	AttrServerAddress  = "server.address"
)

func serverSpanOptions(r *http.Request) []trace.SpanStartOption {
	return []trace.SpanStartOption{
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(AttrHTTPMethod, r.Method),
			attribute.String(AttrURLPath, r.URL.Path),
		),
	}
}

// RoutingDecision is the subset of a body transformer result recorded on spans.
type RoutingDecision struct {
	Mode           string
	Provider       string
	Model          string
	Providers      []string
	Matched        bool
	ModelRewritten bool
}

// SetRoutingAttributes records how the request body was routed.
func SetRoutingAttributes(span trace.Span, d RoutingDecision) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRouteMode, d.Mode),
		attribute.Bool(AttrMatched, d.Matched),
		attribute.Bool(AttrModelRewritten, d.ModelRewritten),
	}
	if d.Provider != "" {
		attrs = append(attrs, attribute.String(AttrProvider, d.Provider))
	}
	if d.Model != "" {
		attrs = append(attrs, attribute.String(AttrModel, d.Model))
	}
	if len(d.Providers) > 0 {
		attrs = append(attrs, attribute.String(AttrProviders, strings.Join(d.Providers, ",")))
	}
	span.SetAttributes(attrs...)
}

// SetStreamAttributes records relayed stream totals.
func SetStreamAttributes(span trace.Span, chunks int, bytes int64) {
	span.SetAttributes(
		attribute.Int(AttrStreamChunks, chunks),
		attribute.Int64(AttrStreamBytes, bytes),
	)
}

// SetHTTPStatus records the response status; 5xx marks the span failed.
func SetHTTPStatus(span trace.Span, status int) {
	span.SetAttributes(attribute.Int(AttrHTTPStatusCode, status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

// SetError marks the span as failed and records the error.
func SetError(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	if errorType != "" {
		span.SetAttributes(attribute.String(AttrErrorType, errorType))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

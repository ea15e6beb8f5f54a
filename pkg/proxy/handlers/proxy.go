package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/orproxy/pkg/proxy"
	"mercator-hq/orproxy/pkg/proxy/middleware"
	"mercator-hq/orproxy/pkg/proxy/transform"
	"mercator-hq/orproxy/pkg/proxy/types"
	"mercator-hq/orproxy/pkg/proxy/upstream"
	"mercator-hq/orproxy/pkg/telemetry/metrics"
	"mercator-hq/orproxy/pkg/telemetry/tracing"
)

// Endpoints whose bodies may carry a routing hint.
const (
	EndpointChatCompletions = "chat/completions"
	EndpointEmbeddings      = "embeddings"
	EndpointModels          = "models"
)

// Forwarder is the upstream leg used by Proxy. *upstream.Forwarder implements it.
type Forwarder interface {
	Forward(ctx context.Context, req upstream.Request) (upstream.Response, error)
	Relay(w http.ResponseWriter, resp upstream.Response) (upstream.RelayStats, error)
}

// Proxy runs the per-request pipeline: credential, body, transform,
// forward, relay. It holds no per-request state and is safe for
// concurrent use.
type Proxy struct {
	transformer  *transform.Transformer
	forwarder    Forwarder
	metrics      *metrics.Collector
	logger       *slog.Logger
	maxBodyBytes int64
}

// Config wires a Proxy.
type Config struct {
	Transformer *transform.Transformer
	Forwarder   Forwarder

	// Metrics may be nil.
	Metrics *metrics.Collector

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// MaxBodyBytes limits the inbound body. Zero uses proxy.MaxRequestBodySize.
	MaxBodyBytes int64
}

// NewProxy creates the proxy handler set.
func NewProxy(cfg Config) (*Proxy, error) {
	if cfg.Transformer == nil {
		return nil, errors.New("handlers: transformer is required")
	}
	if cfg.Forwarder == nil {
		return nil, errors.New("handlers: forwarder is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Proxy{
		transformer:  cfg.Transformer,
		forwarder:    cfg.Forwarder,
		metrics:      cfg.Metrics,
		logger:       logger,
		maxBodyBytes: cfg.MaxBodyBytes,
	}, nil
}

// route is the resolved target of one inbound request. endpoint is the
// decoded path used for routing decisions and logs; target is the escaped
// path sent upstream.
type route struct {
	endpoint string
	target   string
	rc       transform.RouteContext
}

// Table proxies a fixed endpoint and resolves providers from the routing table.
func (p *Proxy) Table(endpoint string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.serve(w, r, route{
			endpoint: endpoint,
			target:   endpoint,
			rc: transform.RouteContext{
				Rewrite: rewritable(endpoint),
				Mode:    transform.ModeTable,
			},
		})
	})
}

// Explicit proxies /v1/{provider}/{path...}. A first segment that names a
// well-known endpoint is not a provider; such requests are passed through.
func (p *Proxy) Explicit() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provider := r.PathValue("provider")
		rest := r.PathValue("path")

		if isReservedSegment(provider) {
			p.serve(w, r, passthrough(joinPath(provider, rest), escapedSuffix(r, 1)))
			return
		}

		p.serve(w, r, route{
			endpoint: rest,
			target:   escapedSuffix(r, 2),
			rc: transform.RouteContext{
				Rewrite:  rewritable(rest),
				Mode:     transform.ModeExplicit,
				Provider: provider,
			},
		})
	})
}

// Passthrough proxies {prefix}/{path...} without touching the body. prefix
// is the number of leading segments the pattern consumes.
func (p *Proxy) Passthrough(prefix int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.serve(w, r, passthrough(r.PathValue("path"), escapedSuffix(r, prefix)))
	})
}

// NotFound answers unrouted paths with an error envelope.
func (p *Proxy) NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := &proxy.RequestError{Message: "Not found: " + r.URL.Path, Status: http.StatusNotFound}
		p.fail(w, r, err)
	})
}

func passthrough(path, target string) route {
	return route{
		endpoint: path,
		target:   target,
		rc:       transform.RouteContext{Mode: transform.ModePassthrough},
	}
}

func (p *Proxy) serve(w http.ResponseWriter, r *http.Request, rt route) {
	ctx := r.Context()
	start := time.Now()
	requestID := middleware.GetRequestID(ctx)
	span := trace.SpanFromContext(ctx)

	status := http.StatusOK
	defer func() {
		p.metrics.RecordRequest(r.Pattern, status, time.Since(start))
	}()

	token, err := proxy.ExtractBearerToken(r.Header)
	if err != nil {
		status = p.fail(w, r, err)
		return
	}

	body, err := proxy.ReadBody(w, r, p.maxBodyBytes)
	if err != nil {
		status = p.fail(w, r, err)
		return
	}

	res, err := p.transformer.Transform(body, rt.rc)
	if err != nil {
		status = p.fail(w, r, err)
		return
	}
	p.recordDecision(r, rt, res)
	tracing.SetRoutingAttributes(span, tracing.RoutingDecision{
		Mode:           rt.rc.Mode.String(),
		Provider:       rt.rc.Provider,
		Model:          res.Model,
		Providers:      res.Providers,
		Matched:        res.Matched,
		ModelRewritten: res.ModelRewritten,
	})

	resp, err := p.forwarder.Forward(ctx, upstream.Request{
		Method:   r.Method,
		Path:     rt.target,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header,
		Body:     res.Body,
		Token:    token,
	})
	if err != nil {
		status = p.fail(w, r, err)
		return
	}

	stats, err := p.forwarder.Relay(w, resp)
	status = stats.Status
	if stats.Streamed {
		tracing.SetStreamAttributes(span, stats.Chunks, stats.Bytes)
	}
	tracing.SetHTTPStatus(span, status)

	if err != nil {
		var proxyErr *proxy.ProxyError
		if errors.As(err, &proxyErr) && ctx.Err() == nil {
			// The status line is already out; the only signal left is a
			// truncated response.
			p.metrics.RecordError(types.ErrorTypeProxy)
			tracing.SetError(span, err, types.ErrorTypeProxy)
			p.logger.ErrorContext(ctx, "upstream stream aborted",
				"request_id", requestID,
				"endpoint", rt.endpoint,
				"chunks", stats.Chunks,
				"bytes", stats.Bytes,
				"error", err,
			)
			panic(http.ErrAbortHandler)
		}
		p.logger.DebugContext(ctx, "client went away during relay",
			"request_id", requestID,
			"endpoint", rt.endpoint,
			"bytes", stats.Bytes,
			"error", err,
		)
		return
	}

	p.logger.DebugContext(ctx, "request proxied",
		"request_id", requestID,
		"endpoint", rt.endpoint,
		"mode", rt.rc.Mode.String(),
		"status", status,
		"streamed", stats.Streamed,
		"bytes", stats.Bytes,
		"latency_ms", time.Since(start).Milliseconds(),
	)
}

// fail writes the error envelope for err and returns the status written.
func (p *Proxy) fail(w http.ResponseWriter, r *http.Request, err error) int {
	ctx := r.Context()
	errResp := proxy.WriteError(w, err)
	errType := errResp.Error.Type
	status := errResp.Error.HTTPStatusCode()

	p.metrics.RecordError(errType)
	tracing.SetError(trace.SpanFromContext(ctx), err, errType)

	attrs := []any{
		"request_id", middleware.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error_type", errType,
		"error", err,
	}
	switch {
	case upstream.IsCanceled(err):
		p.logger.InfoContext(ctx, "request canceled by client", attrs...)
	case status >= http.StatusInternalServerError:
		p.logger.ErrorContext(ctx, "request failed", attrs...)
	default:
		p.logger.WarnContext(ctx, "request rejected", attrs...)
	}
	return status
}

func (p *Proxy) recordDecision(r *http.Request, rt route, res transform.Result) {
	result := metrics.DecisionPassthrough
	switch {
	case !rt.rc.Rewrite || rt.rc.Mode == transform.ModePassthrough:
	case rt.rc.Mode == transform.ModeExplicit:
		result = metrics.DecisionExplicit
	case res.Matched:
		result = metrics.DecisionMatched
	default:
		result = metrics.DecisionUnmatched
	}
	p.metrics.RecordRoutingDecision(rt.rc.Mode.String(), result)

	if result == metrics.DecisionPassthrough {
		return
	}
	p.logger.DebugContext(r.Context(), "routing decision",
		"request_id", middleware.GetRequestID(r.Context()),
		"mode", rt.rc.Mode.String(),
		"result", result,
		"model", res.Model,
		"providers", res.Providers,
		"model_rewritten", res.ModelRewritten,
	)
}

// rewritable reports whether bodies sent to endpoint carry a model to route.
func rewritable(endpoint string) bool {
	endpoint = strings.Trim(endpoint, "/")
	return endpoint == EndpointChatCompletions || endpoint == EndpointEmbeddings
}

// Reserved first segments under /v1/ are endpoint roots, never providers.
var reservedSegments = map[string]bool{
	"chat":        true,
	"completions": true,
	"embeddings":  true,
	"models":      true,
}

func isReservedSegment(s string) bool {
	return reservedSegments[s]
}

// escapedSuffix returns the escaped request path without its first skip
// segments. Percent-encoded bytes such as %3F or %2F stay encoded, so they
// reach the upstream as path data.
func escapedSuffix(r *http.Request, skip int) string {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.EscapedPath(), "/"), "/", skip+1)
	if len(parts) <= skip {
		return ""
	}
	return parts[skip]
}

func joinPath(first, rest string) string {
	if rest == "" {
		return first
	}
	return first + "/" + rest
}

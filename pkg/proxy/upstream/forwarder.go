// Package upstream sends transformed requests to the upstream inference API
// and relays its responses back to the caller.
//
// A Forwarder owns one pooled *http.Client shared by every request. Each
// call to Forward makes exactly one attempt: transport failures are
// returned as *proxy.ProxyError and never retried. Completions responses
// declared as text/event-stream come back as *Streamed and are relayed
// chunk by chunk; everything else is read in full into *Buffered.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/orproxy/pkg/proxy"
	"mercator-hq/orproxy/pkg/telemetry/tracing"
)

// Request is one outbound call.
type Request struct {
	// Method is the inbound HTTP method, reused as-is.
	Method string

	// Path is the endpoint path relative to the base URL, e.g. "chat/completions".
	// It is in escaped form and is appended to the base URL without decoding.
	Path string

	// RawQuery is the inbound query string without '?'. Empty means none.
	RawQuery string

	// Header holds the inbound headers. It is not modified.
	Header http.Header

	// Body is the (possibly transformed) request body. Empty sends no body.
	Body []byte

	// Token is re-issued as "Authorization: Bearer <Token>".
	Token string
}

// Config holds forwarder settings.
type Config struct {
	// BaseURL is the upstream API root, e.g. https://openrouter.ai/api/v1.
	BaseURL string

	// ResponseHeaderTimeout bounds the wait for upstream response headers.
	// Zero means no limit. Stream bodies are never bounded.
	ResponseHeaderTimeout time.Duration

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// TLSHandshakeTimeout bounds the upstream TLS handshake.
	TLSHandshakeTimeout time.Duration

	// IdleConnTimeout closes pooled connections idle for this long.
	IdleConnTimeout time.Duration

	// MaxIdleConns and MaxIdleConnsPerHost size the connection pool.
	MaxIdleConns        int
	MaxIdleConnsPerHost int

	// StreamBufferSize is the read size used when relaying event streams.
	StreamBufferSize int
}

// Observer receives upstream call outcomes. The metrics collector implements it.
type Observer interface {
	ObserveUpstream(endpoint, outcome string, duration time.Duration)
	ObserveStream(endpoint string, chunks int, bytes int64)
}

// Tracer starts spans. Both *tracing.Tracer and any OpenTelemetry
// trace.Tracer satisfy it.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
}

// Outcome labels reported to the Observer.
const (
	OutcomeOK         = "ok"
	OutcomeError      = "error"
	OutcomeReadError  = "read_error"
	OutcomeStream     = "stream"
	defaultBufferSize = 32 * 1024
)

// Forwarder sends requests to the upstream API. It is safe for concurrent use.
type Forwarder struct {
	baseURL    string
	client     *http.Client
	observer   Observer
	tracer     Tracer
	logger     *slog.Logger
	bufferSize int
}

// Option customizes a Forwarder.
type Option func(*Forwarder)

// WithClient replaces the pooled client, mainly for tests.
func WithClient(c *http.Client) Option {
	return func(f *Forwarder) { f.client = c }
}

// WithObserver reports call outcomes to o.
func WithObserver(o Observer) Option {
	return func(f *Forwarder) {
		if o != nil {
			f.observer = o
		}
	}
}

// WithTracer records a client span per upstream call.
func WithTracer(t Tracer) Option {
	return func(f *Forwarder) {
		if t != nil {
			f.tracer = t
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(f *Forwarder) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a forwarder for cfg.BaseURL.
func New(cfg Config, opts ...Option) (*Forwarder, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream base URL %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid upstream base URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid upstream base URL %q: missing host", cfg.BaseURL)
	}

	f := &Forwarder{
		baseURL:    base,
		client:     newClient(cfg),
		observer:   nopObserver{},
		tracer:     noop.NewTracerProvider().Tracer(""),
		logger:     slog.Default(),
		bufferSize: cfg.StreamBufferSize,
	}
	if f.bufferSize <= 0 {
		f.bufferSize = defaultBufferSize
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// newClient builds the shared pooled client. There is no overall client
// timeout because it would cut event streams off; the inbound request
// context bounds the call instead.
func newClient(cfg Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = cfg.MaxIdleConns
	transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	transport.IdleConnTimeout = cfg.IdleConnTimeout
	transport.ResponseHeaderTimeout = cfg.ResponseHeaderTimeout
	transport.ForceAttemptHTTP2 = true
	// Encoded bodies are relayed byte-exact with their Content-Encoding.
	transport.DisableCompression = true
	if cfg.TLSHandshakeTimeout > 0 {
		transport.TLSHandshakeTimeout = cfg.TLSHandshakeTimeout
	}
	if cfg.DialTimeout > 0 {
		transport.DialContext = dialer(cfg.DialTimeout)
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func dialer(timeout time.Duration) func(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	return d.DialContext
}

// BaseURL returns the normalized upstream base URL.
func (f *Forwarder) BaseURL() string {
	return f.baseURL
}

// URL returns the upstream URL for path and rawQuery.
func (f *Forwarder) URL(path, rawQuery string) string {
	target := f.baseURL + "/" + strings.TrimLeft(path, "/")
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// Forward sends req upstream. The call is bound to ctx, so cancelling the
// inbound request cancels the upstream call and any stream in progress.
func (f *Forwarder) Forward(ctx context.Context, req Request) (Response, error) {
	target := f.URL(req.Path, req.RawQuery)

	ctx, span := f.tracer.Start(ctx, "upstream "+req.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", f.baseURL+"/"+strings.TrimLeft(req.Path, "/")),
			attribute.Int("http.request.body.size", len(req.Body)),
		),
	)
	defer span.End()

	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	out, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &proxy.RequestError{Message: "Failed to build upstream request", Err: err}
	}
	copyRequestHeaders(out.Header, req.Header)
	out.Header.Set(proxy.AuthorizationHeader, proxy.BearerPrefix+req.Token)
	tracing.Inject(ctx, out.Header)

	f.logger.DebugContext(ctx, "forwarding request upstream",
		"method", req.Method,
		"url", target,
		"body_bytes", len(req.Body),
	)

	start := time.Now()
	resp, err := f.client.Do(out)
	if err != nil {
		f.observer.ObserveUpstream(req.Path, OutcomeError, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "upstream request failed")
		return nil, &proxy.ProxyError{Message: "Failed to reach upstream API", Err: err}
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	header := relayHeader(resp.Header)
	if isEventStream(req.Path, resp.Header.Get("Content-Type")) {
		f.observer.ObserveUpstream(req.Path, OutcomeStream, time.Since(start))
		return &Streamed{
			Status:   resp.StatusCode,
			Header:   header,
			Body:     resp.Body,
			Endpoint: req.Path,
		}, nil
	}

	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		f.observer.ObserveUpstream(req.Path, OutcomeReadError, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "reading upstream response failed")
		return nil, &proxy.ProxyError{Message: "Error reading API response", Err: err}
	}
	f.observer.ObserveUpstream(req.Path, OutcomeOK, time.Since(start))

	return &Buffered{
		Status: resp.StatusCode,
		Header: header,
		Body:   data,
	}, nil
}

// Excluded from the outbound copy. Content-Length is recomputed by the
// transport since the body may have been rewritten.
var skippedRequestHeaders = map[string]bool{
	"Host":           true,
	"Authorization":  true,
	"Content-Length": true,
}

func copyRequestHeaders(dst, src http.Header) {
	for name, values := range src {
		if skippedRequestHeaders[http.CanonicalHeaderKey(name)] {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

// IsCanceled reports whether err stems from the caller going away rather
// than an upstream fault.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

type nopObserver struct{}

func (nopObserver) ObserveUpstream(string, string, time.Duration) {}
func (nopObserver) ObserveStream(string, int, int64)              {}

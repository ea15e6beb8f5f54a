package upstream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/orproxy/internal/upstreamtest"
	"mercator-hq/orproxy/pkg/proxy"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	chunks   int
	bytes    int64
}

func (o *recordingObserver) ObserveUpstream(_ string, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) ObserveStream(_ string, chunks int, bytes int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.chunks += chunks
	o.bytes += bytes
}

func newForwarder(t *testing.T, baseURL string, opts ...Option) *Forwarder {
	t.Helper()
	f, err := New(Config{
		BaseURL:               baseURL,
		ResponseHeaderTimeout: 5 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       30 * time.Second,
	}, opts...)
	require.NoError(t, err)
	return f
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "openrouter.ai/api/v1", "ftp://example.com", "http://"} {
		t.Run(raw, func(t *testing.T) {
			_, err := New(Config{BaseURL: raw})
			assert.Error(t, err)
		})
	}
}

func TestForwarderURL(t *testing.T) {
	f := newForwarder(t, "https://openrouter.ai/api/v1/")

	assert.Equal(t, "https://openrouter.ai/api/v1", f.BaseURL())
	assert.Equal(t, "https://openrouter.ai/api/v1/chat/completions", f.URL("chat/completions", ""))
	assert.Equal(t, "https://openrouter.ai/api/v1/models?supported_parameters=tools", f.URL("/models", "supported_parameters=tools"))
}

func TestForwardRequestShape(t *testing.T) {
	upstream := upstreamtest.NewServer()
	defer upstream.Close()
	upstream.SetResponse("/api/v1/chat/completions", upstreamtest.Response{
		StatusCode: http.StatusOK,
		Body:       `{"id":"gen-1"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	})

	f := newForwarder(t, upstream.URL()+"/api/v1")

	inbound := http.Header{}
	inbound.Set("Authorization", "Bearer client-key")
	inbound.Set("Host", "proxy.local")
	inbound.Set("Content-Length", "9999")
	inbound.Set("Content-Type", "application/json")
	inbound.Set("HTTP-Referer", "https://app.example")
	inbound.Add("X-Title", "one")
	inbound.Add("X-Title", "two")

	body := []byte(`{"model":"openai/gpt-4"}`)
	resp, err := f.Forward(context.Background(), Request{
		Method:   http.MethodPost,
		Path:     "chat/completions",
		RawQuery: "debug=1",
		Header:   inbound,
		Body:     body,
		Token:    "forwarded-key",
	})
	require.NoError(t, err)
	require.IsType(t, &Buffered{}, resp)

	got, ok := upstream.LastRequest()
	require.True(t, ok)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/api/v1/chat/completions", got.Path)
	assert.Equal(t, "debug=1", got.RawQuery)
	assert.Equal(t, body, got.Body)
	assert.Equal(t, []string{"Bearer forwarded-key"}, got.Header.Values("Authorization"))
	assert.Equal(t, "https://app.example", got.Header.Get("HTTP-Referer"))
	assert.Equal(t, []string{"one", "two"}, got.Header.Values("X-Title"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))

	// Inbound header map is left alone.
	assert.Equal(t, "Bearer client-key", inbound.Get("Authorization"))
}

func TestForwardEmptyBodySendsNoBody(t *testing.T) {
	upstream := upstreamtest.NewServer()
	defer upstream.Close()
	upstream.SetResponse("/models", upstreamtest.Response{Body: `{"data":[]}`})

	f := newForwarder(t, upstream.URL())
	resp, err := f.Forward(context.Background(), Request{Method: http.MethodGet, Path: "models", Header: http.Header{}, Token: ""})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	got, _ := upstream.LastRequest()
	assert.Empty(t, got.Body)
	// Trailing whitespace is trimmed on the wire.
	assert.Equal(t, "Bearer", strings.TrimSpace(got.Header.Get("Authorization")))
}

func TestForwardBufferedPreservesStatusAndHeaders(t *testing.T) {
	upstream := upstreamtest.NewServer()
	defer upstream.Close()
	upstream.SetResponse("/chat/completions", upstreamtest.Response{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error":{"message":"rate limited","code":429}}`,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"X-RateLimit":   "0",
			"Connection":    "close",
			"Cache-Control": "no-store",
		},
	})

	f := newForwarder(t, upstream.URL())
	resp, err := f.Forward(context.Background(), Request{Method: http.MethodPost, Path: "chat/completions", Header: http.Header{}, Body: []byte(`{}`)})
	require.NoError(t, err)

	buffered, ok := resp.(*Buffered)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, buffered.Status)
	assert.JSONEq(t, `{"error":{"message":"rate limited","code":429}}`, string(buffered.Body))
	assert.Equal(t, "0", buffered.Header.Get("X-RateLimit"))
	assert.Empty(t, buffered.Header.Get("Connection"))

	w := httptest.NewRecorder()
	stats, err := f.Relay(w, resp)
	require.NoError(t, err)
	assert.False(t, stats.Streamed)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, string(buffered.Body), w.Body.String())
}

func TestForwardEventStreamOnlyOnCompletions(t *testing.T) {
	upstream := upstreamtest.NewServer()
	defer upstream.Close()
	sse := upstreamtest.Response{StreamChunks: []string{`{"x":1}`}}
	upstream.SetResponse("/chat/completions", sse)
	upstream.SetResponse("/embeddings", sse)

	f := newForwarder(t, upstream.URL())

	resp, err := f.Forward(context.Background(), Request{Method: http.MethodPost, Path: "chat/completions", Header: http.Header{}})
	require.NoError(t, err)
	streamed, ok := resp.(*Streamed)
	require.True(t, ok)
	_ = streamed.Body.Close()

	resp, err = f.Forward(context.Background(), Request{Method: http.MethodPost, Path: "embeddings", Header: http.Header{}})
	require.NoError(t, err)
	buffered, ok := resp.(*Buffered)
	require.True(t, ok)
	assert.Equal(t, upstreamtest.SSE(`{"x":1}`), string(buffered.Body))
}

func TestForwardTransportFailure(t *testing.T) {
	upstream := upstreamtest.NewServer()
	url := upstream.URL()
	upstream.Close()

	obs := &recordingObserver{}
	f := newForwarder(t, url, WithObserver(obs))

	resp, err := f.Forward(context.Background(), Request{Method: http.MethodPost, Path: "chat/completions", Header: http.Header{}, Body: []byte(`{}`)})
	assert.Nil(t, resp)

	var proxyErr *proxy.ProxyError
	require.ErrorAs(t, err, &proxyErr)
	assert.Equal(t, "proxy_error", proxy.HandleError(err).Error.Type)
	assert.Equal(t, []string{OutcomeError}, obs.outcomes)
}

func TestForwardHonorsCancellation(t *testing.T) {
	upstream := upstreamtest.NewServer()
	defer upstream.Close()
	upstream.SetResponse("/chat/completions", upstreamtest.Response{Delay: 5 * time.Second, Body: `{}`})

	f := newForwarder(t, upstream.URL())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := f.Forward(ctx, Request{Method: http.MethodPost, Path: "chat/completions", Header: http.Header{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRelayStreamsChunksIncrementally(t *testing.T) {
	gate := make(chan struct{})
	upstream := upstreamtest.NewServer()
	defer upstream.Close()
	upstream.SetResponse("/chat/completions", upstreamtest.Response{
		StreamChunks: []string{"one", "two", "three"},
		Gate:         gate,
		Headers:      map[string]string{"Content-Type": "text/event-stream; charset=utf-8"},
	})

	obs := &recordingObserver{}
	f := newForwarder(t, upstream.URL(), WithObserver(obs))

	relayDone := make(chan RelayStats, 1)
	front := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := f.Forward(r.Context(), Request{Method: r.Method, Path: "chat/completions", Header: r.Header, Body: []byte(`{"stream":true}`)})
		if err != nil {
			proxy.WriteError(w, err)
			return
		}
		stats, _ := f.Relay(w, resp)
		relayDone <- stats
	}))
	defer front.Close()

	resp, err := http.Post(front.URL, "application/json", strings.NewReader(`{"stream":true}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
	assert.Empty(t, resp.Header.Get("Connection"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		t.Helper()
		type result struct {
			line string
			err  error
		}
		ch := make(chan result, 1)
		go func() {
			line, err := reader.ReadString('\n')
			if err == nil {
				_, err = reader.ReadString('\n')
			}
			ch <- result{line, err}
		}()
		select {
		case r := <-ch:
			require.NoError(t, r.err)
			return r.line
		case <-time.After(3 * time.Second):
			t.Fatal("event was not relayed before the next chunk was produced")
			return ""
		}
	}

	// Each chunk must arrive while the upstream is still blocked on the gate.
	assert.Equal(t, "data: one\n", readEvent())
	gate <- struct{}{}
	assert.Equal(t, "data: two\n", readEvent())
	gate <- struct{}{}
	assert.Equal(t, "data: three\n", readEvent())
	assert.Equal(t, "data: [DONE]\n", readEvent())

	rest, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Empty(t, rest)

	select {
	case stats := <-relayDone:
		assert.True(t, stats.Streamed)
		assert.GreaterOrEqual(t, stats.Chunks, 1)
		assert.Equal(t, int64(len(upstreamtest.SSE("one", "two", "three"))), stats.Bytes)
	case <-time.After(3 * time.Second):
		t.Fatal("relay did not finish")
	}
}

type failingReader struct {
	data []byte
	done bool
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.done {
		r.done = true
		return copy(p, r.data), nil
	}
	if r.err != nil {
		return 0, r.err
	}
	return 0, errors.New("connection reset by peer")
}

func (r *failingReader) Close() error { return nil }

func TestRelayStreamReadErrorTruncates(t *testing.T) {
	f := newForwarder(t, "http://upstream.invalid")
	w := httptest.NewRecorder()

	stats, err := f.Relay(w, &Streamed{
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": {"text/event-stream"}},
		Body:     &failingReader{data: []byte("data: partial\n\n")},
		Endpoint: "chat/completions",
	})

	var proxyErr *proxy.ProxyError
	require.ErrorAs(t, err, &proxyErr)
	assert.Equal(t, "data: partial\n\n", w.Body.String())
	assert.Equal(t, 1, stats.Chunks)
	assert.True(t, w.Flushed)
}

func TestRelayStreamClientCancelIsIOError(t *testing.T) {
	f := newForwarder(t, "http://upstream.invalid")
	w := httptest.NewRecorder()

	stats, err := f.Relay(w, &Streamed{
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": {"text/event-stream"}},
		Body:     &failingReader{data: []byte("data: partial\n\n"), err: fmt.Errorf("read body: %w", context.Canceled)},
		Endpoint: "chat/completions",
	})

	var ioErr *proxy.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "read stream", ioErr.Op)
	assert.True(t, IsCanceled(err))

	var proxyErr *proxy.ProxyError
	assert.False(t, errors.As(err, &proxyErr), "client cancellation is not an upstream fault")
	assert.Equal(t, 1, stats.Chunks)
}

func TestRelayHeaderStripsHopByHop(t *testing.T) {
	h := http.Header{
		"Transfer-Encoding": {"chunked"},
		"Connection":        {"keep-alive"},
		"Content-Type":      {"application/json"},
		"X-Request-Id":      {"abc"},
	}
	out := relayHeader(h)

	assert.Empty(t, out.Values("Transfer-Encoding"))
	assert.Empty(t, out.Values("Connection"))
	assert.Equal(t, "application/json", out.Get("Content-Type"))
	assert.Equal(t, "abc", out.Get("X-Request-Id"))
	assert.Equal(t, "chunked", h.Get("Transfer-Encoding"), "input must not be modified")

	assert.NotNil(t, relayHeader(nil))
}

func TestIsEventStream(t *testing.T) {
	tests := []struct {
		path, contentType string
		want              bool
	}{
		{"chat/completions", "text/event-stream", true},
		{"chat/completions", "text/event-stream; charset=utf-8", true},
		{"chat/completions", "Text/Event-Stream", true},
		{"chat/completions", "application/json", false},
		{"embeddings", "text/event-stream", false},
		{"models", "text/event-stream", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isEventStream(tt.path, tt.contentType), "%s %s", tt.path, tt.contentType)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestWithClientReplacesTransport(t *testing.T) {
	var gotURL string
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		return &http.Response{
			StatusCode: http.StatusTeapot,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{}`)),
			Request:    r,
		}, nil
	})}

	f := newForwarder(t, "https://openrouter.example/api/v1", WithClient(client))
	resp, err := f.Forward(context.Background(), Request{Method: http.MethodGet, Path: "models", Token: "sk"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	_, err = f.Relay(rec, resp)
	require.NoError(t, err)
	assert.Equal(t, "https://openrouter.example/api/v1/models", gotURL)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

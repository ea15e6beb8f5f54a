package upstream

import (
	"io"
	"net/http"
	"strings"
)

// Response is an upstream response ready to be relayed. It is either
// *Buffered or *Streamed; no other implementations exist.
type Response interface {
	// StatusCode returns the upstream status.
	StatusCode() int
	// Headers returns the upstream headers minus hop-by-hop headers.
	Headers() http.Header

	sealed()
}

// Buffered is an upstream response whose body was read in full.
type Buffered struct {
	Status int
	Header http.Header
	Body   []byte
}

// StatusCode implements Response.
func (b *Buffered) StatusCode() int { return b.Status }

// Headers implements Response.
func (b *Buffered) Headers() http.Header { return b.Header }

func (*Buffered) sealed() {}

// Streamed is an upstream event stream. Body is single-pass and must be
// consumed at most once and then closed; Relay does both.
type Streamed struct {
	Status int
	Header http.Header
	Body   io.ReadCloser

	// Endpoint labels stream metrics.
	Endpoint string
}

// StatusCode implements Response.
func (s *Streamed) StatusCode() int { return s.Status }

// Headers implements Response.
func (s *Streamed) Headers() http.Header { return s.Header }

func (*Streamed) sealed() {}

// hopByHopResponseHeaders are never copied from the upstream leg.
var hopByHopResponseHeaders = []string{"Transfer-Encoding", "Connection"}

// relayHeader clones h without hop-by-hop headers.
func relayHeader(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for _, name := range hopByHopResponseHeaders {
		out.Del(name)
	}
	return out
}

// isEventStream reports whether a response on path must be streamed.
// Only completions endpoints are streamed, and only when the upstream
// declares an event stream.
func isEventStream(path, contentType string) bool {
	return strings.Contains(path, "chat/completions") &&
		strings.Contains(strings.ToLower(contentType), "text/event-stream")
}

package upstream

import (
	"errors"
	"io"
	"net/http"

	"mercator-hq/orproxy/pkg/proxy"
)

// RelayStats describes what was written to the client.
type RelayStats struct {
	Status   int
	Streamed bool
	Chunks   int
	Bytes    int64
}

// Relay writes resp to w. It is the only place upstream headers reach the
// client. Buffered bodies are written in one piece. Streamed bodies are
// copied read by read with a flush after every chunk, then closed.
//
// Once the status line is out an error can no longer be reported as an
// envelope. A *proxy.ProxyError means the upstream stream broke and the
// response is truncated; a *proxy.IOError means the client went away.
func (f *Forwarder) Relay(w http.ResponseWriter, resp Response) (RelayStats, error) {
	stats := RelayStats{Status: resp.StatusCode()}

	dst := w.Header()
	for name, values := range resp.Headers() {
		dst[name] = append([]string(nil), values...)
	}

	switch r := resp.(type) {
	case *Buffered:
		w.WriteHeader(r.Status)
		n, err := w.Write(r.Body)
		stats.Bytes = int64(n)
		if err != nil {
			return stats, &proxy.IOError{Op: "write response", Err: err}
		}
		return stats, nil

	case *Streamed:
		stats.Streamed = true
		defer r.Body.Close()

		w.WriteHeader(r.Status)
		rc := http.NewResponseController(w)
		_ = rc.Flush()

		err := f.stream(w, rc, r.Body, &stats)
		f.observer.ObserveStream(r.Endpoint, stats.Chunks, stats.Bytes)
		return stats, err
	}

	return stats, &proxy.ServerError{Message: "unknown upstream response variant"}
}

func (f *Forwarder) stream(w io.Writer, rc *http.ResponseController, body io.Reader, stats *RelayStats) error {
	buf := make([]byte, f.bufferSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return &proxy.IOError{Op: "write stream", Err: werr}
			}
			if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
				return &proxy.IOError{Op: "flush stream", Err: ferr}
			}
			stats.Chunks++
			stats.Bytes += int64(n)
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			if IsCanceled(rerr) {
				return &proxy.IOError{Op: "read stream", Err: rerr}
			}
			return &proxy.ProxyError{Message: "upstream stream aborted", Err: rerr}
		}
	}
}

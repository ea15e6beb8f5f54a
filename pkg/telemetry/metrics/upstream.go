package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/orproxy/pkg/config"
)

// UpstreamMetrics tracks calls to the upstream API.
//
// Metrics:
//   - orproxy_upstream_requests_total: calls by endpoint and outcome
//   - orproxy_upstream_duration_seconds: time until response headers (or failure)
//   - orproxy_stream_chunks_total: chunks relayed on event streams
//   - orproxy_stream_bytes_total: bytes relayed on event streams
type UpstreamMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	chunks   *prometheus.CounterVec
	bytes    *prometheus.CounterVec
}

// NewUpstreamMetrics creates and registers upstream metrics with the provided registry.
func NewUpstreamMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *UpstreamMetrics {
	um := &UpstreamMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of upstream calls by outcome",
			},
			[]string{"endpoint", "outcome"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_duration_seconds",
				Help:      "Upstream call latency in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"endpoint"},
		),

		chunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "stream_chunks_total",
				Help:      "Total number of chunks relayed on event streams",
			},
			[]string{"endpoint"},
		),

		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "stream_bytes_total",
				Help:      "Total number of bytes relayed on event streams",
			},
			[]string{"endpoint"},
		),
	}

	registry.MustRegister(
		um.requests,
		um.duration,
		um.chunks,
		um.bytes,
	)

	return um
}

// RecordCall records one upstream call.
func (um *UpstreamMetrics) RecordCall(endpoint, outcome string, duration time.Duration) {
	um.requests.WithLabelValues(endpoint, outcome).Inc()
	um.duration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordStream adds a finished stream's totals.
func (um *UpstreamMetrics) RecordStream(endpoint string, chunks int, bytes int64) {
	if chunks > 0 {
		um.chunks.WithLabelValues(endpoint).Add(float64(chunks))
	}
	if bytes > 0 {
		um.bytes.WithLabelValues(endpoint).Add(float64(bytes))
	}
}

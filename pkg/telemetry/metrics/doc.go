// Package metrics provides Prometheus metrics collection for the proxy.
//
// # Metrics
//
//   - orproxy_requests_total{route,status}
//   - orproxy_request_duration_seconds{route}
//   - orproxy_upstream_requests_total{endpoint,outcome}
//   - orproxy_upstream_duration_seconds{endpoint}
//   - orproxy_stream_chunks_total{endpoint}
//   - orproxy_stream_bytes_total{endpoint}
//   - orproxy_routing_decisions_total{mode,result}
//   - orproxy_errors_total{type}
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	fwd, _ := upstream.New(upstreamCfg, upstream.WithObserver(collector))
//	mux.Handle("GET /metrics", collector.Handler())
//
// # Cardinality Management
//
// Passthrough routes forward arbitrary paths, so endpoint and route labels
// are capped at 1000 distinct values each. Later values are folded into
// the "other" label.
package metrics

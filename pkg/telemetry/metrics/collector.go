package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/orproxy/pkg/config"
)

// OtherLabel replaces label values once the cardinality limit is reached.
const OtherLabel = "other"

// defaultMaxCardinality bounds the distinct route and endpoint labels.
// Passthrough endpoints carry caller-chosen paths.
const defaultMaxCardinality = 1000

// Collector owns every Prometheus metric the proxy exports. It satisfies
// upstream.Observer so the forwarder can report call outcomes directly.
//
// A disabled collector (cfg.Enabled false) accepts every call and records
// nothing, so callers never need to nil-check.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics  *RequestMetrics
	upstreamMetrics *UpstreamMetrics
	routingMetrics  *RoutingMetrics

	routes    *CardinalityLimiter
	endpoints *CardinalityLimiter
}

// NewCollector creates a collector registered on registry. If registry is
// nil a fresh one is created; the process-wide default registry is never
// touched, which keeps tests independent.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true, Namespace: "orproxy"}
//	collector := metrics.NewCollector(cfg, nil)
//	mux.Handle("/metrics", collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := *cfg
	if c.Namespace == "" {
		c.Namespace = config.DefaultMetricsNamespace
	}
	if len(c.RequestDurationBuckets) == 0 {
		c.RequestDurationBuckets = config.DefaultRequestDurationBuckets
	}

	collector := &Collector{
		config:    &c,
		registry:  registry,
		routes:    NewCardinalityLimiter(defaultMaxCardinality),
		endpoints: NewCardinalityLimiter(defaultMaxCardinality),
	}

	if c.Enabled {
		collector.requestMetrics = NewRequestMetrics(&c, registry)
		collector.upstreamMetrics = NewUpstreamMetrics(&c, registry)
		collector.routingMetrics = NewRoutingMetrics(&c, registry)
	}

	return collector
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordRequest records a completed inbound request.
//
// Parameters:
//   - route: registered route pattern, e.g. "/api/v1/chat/completions"
//   - status: HTTP status written to the client
//   - duration: time from first byte read to last byte written
func (c *Collector) RecordRequest(route string, status int, duration time.Duration) {
	if !c.Enabled() {
		return
	}
	c.requestMetrics.RecordRequest(c.routeLabel(route), status, duration)
}

// RecordError counts an error envelope by its type ("auth_error", ...).
func (c *Collector) RecordError(errorType string) {
	if !c.Enabled() {
		return
	}
	c.requestMetrics.RecordError(errorType)
}

// RecordRoutingDecision counts a body transformer decision.
//
// Parameters:
//   - mode: "passthrough", "explicit" or "table"
//   - result: "matched", "unmatched", "explicit" or "passthrough"
func (c *Collector) RecordRoutingDecision(mode, result string) {
	if !c.Enabled() {
		return
	}
	c.routingMetrics.RecordDecision(mode, result)
}

// ObserveUpstream records one upstream call.
func (c *Collector) ObserveUpstream(endpoint, outcome string, duration time.Duration) {
	if !c.Enabled() {
		return
	}
	c.upstreamMetrics.RecordCall(c.endpointLabel(endpoint), outcome, duration)
}

// ObserveStream records the size of a relayed event stream.
func (c *Collector) ObserveStream(endpoint string, chunks int, bytes int64) {
	if !c.Enabled() {
		return
	}
	c.upstreamMetrics.RecordStream(c.endpointLabel(endpoint), chunks, bytes)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) routeLabel(route string) string {
	if !c.routes.Allow(route) {
		return OtherLabel
	}
	return route
}

func (c *Collector) endpointLabel(endpoint string) string {
	if !c.endpoints.Allow(endpoint) {
		return OtherLabel
	}
	return endpoint
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label. Values already seen
// are always allowed; new values are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[value]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}

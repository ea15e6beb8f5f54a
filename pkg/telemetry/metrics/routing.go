package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/orproxy/pkg/config"
)

// Routing decision results.
const (
	DecisionMatched     = "matched"
	DecisionUnmatched   = "unmatched"
	DecisionExplicit    = "explicit"
	DecisionPassthrough = "passthrough"
)

// RoutingMetrics tracks body transformer decisions.
//
// Metrics:
//   - orproxy_routing_decisions_total: decisions by mode and result
type RoutingMetrics struct {
	decisions *prometheus.CounterVec
}

// NewRoutingMetrics creates and registers routing metrics with the provided registry.
func NewRoutingMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RoutingMetrics {
	rm := &RoutingMetrics{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "routing_decisions_total",
				Help:      "Total number of routing decisions by mode and result",
			},
			[]string{"mode", "result"},
		),
	}

	registry.MustRegister(rm.decisions)

	return rm
}

// RecordDecision increments the decision counter.
func (rm *RoutingMetrics) RecordDecision(mode, result string) {
	rm.decisions.WithLabelValues(mode, result).Inc()
}

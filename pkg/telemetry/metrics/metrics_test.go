package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/orproxy/pkg/config"
	"mercator-hq/orproxy/pkg/proxy/upstream"
)

var _ upstream.Observer = (*Collector)(nil)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:                true,
		Namespace:              "test",
		RequestDurationBuckets: []float64{0.1, 0.5, 1.0, 5.0},
	}
}

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector == nil {
		t.Fatal("Expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}
	if !collector.Enabled() {
		t.Error("Expected enabled collector")
	}
}

func TestCollector_DefaultsDoNotMutateConfig(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	collector := NewCollector(cfg, nil)

	if cfg.Namespace != "" {
		t.Errorf("caller config mutated: namespace=%q", cfg.Namespace)
	}
	collector.RecordError("auth_error")
	if got := testutil.ToFloat64(collector.requestMetrics.errorsTotal.WithLabelValues("auth_error")); got != 1 {
		t.Errorf("errors_total = %v", got)
	}
	if n, err := testutil.GatherAndCount(collector.Registry(), "orproxy_errors_total"); err != nil || n != 1 {
		t.Errorf("expected orproxy_ namespace, count=%d err=%v", n, err)
	}
}

func TestCollector_RecordRequest(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordRequest("/api/v1/chat/completions", 200, 1200*time.Millisecond)
	collector.RecordRequest("/api/v1/chat/completions", 200, 100*time.Millisecond)
	collector.RecordRequest("/api/v1/chat/completions", 401, time.Millisecond)

	rm := collector.requestMetrics
	if got := testutil.ToFloat64(rm.requestsTotal.WithLabelValues("/api/v1/chat/completions", "200")); got != 2 {
		t.Errorf("requests_total{200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(rm.requestsTotal.WithLabelValues("/api/v1/chat/completions", "401")); got != 1 {
		t.Errorf("requests_total{401} = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(rm.requestDuration); n != 1 {
		t.Errorf("request_duration_seconds series = %d, want 1", n)
	}
}

func TestCollector_ObserveUpstream(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.ObserveUpstream("chat/completions", upstream.OutcomeOK, 300*time.Millisecond)
	collector.ObserveUpstream("chat/completions", upstream.OutcomeError, 10*time.Millisecond)
	collector.ObserveUpstream("models", upstream.OutcomeOK, 10*time.Millisecond)

	um := collector.upstreamMetrics
	if got := testutil.ToFloat64(um.requests.WithLabelValues("chat/completions", "ok")); got != 1 {
		t.Errorf("upstream ok = %v", got)
	}
	if got := testutil.ToFloat64(um.requests.WithLabelValues("chat/completions", "error")); got != 1 {
		t.Errorf("upstream error = %v", got)
	}
	if n := testutil.CollectAndCount(um.duration); n != 2 {
		t.Errorf("upstream_duration_seconds series = %d, want 2", n)
	}
}

func TestCollector_ObserveStream(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.ObserveStream("chat/completions", 3, 120)
	collector.ObserveStream("chat/completions", 2, 80)
	collector.ObserveStream("chat/completions", 0, 0)

	um := collector.upstreamMetrics
	if got := testutil.ToFloat64(um.chunks.WithLabelValues("chat/completions")); got != 5 {
		t.Errorf("stream_chunks_total = %v, want 5", got)
	}
	if got := testutil.ToFloat64(um.bytes.WithLabelValues("chat/completions")); got != 200 {
		t.Errorf("stream_bytes_total = %v, want 200", got)
	}
}

func TestCollector_RecordRoutingDecision(t *testing.T) {
	collector := NewCollector(testConfig(), nil)

	collector.RecordRoutingDecision("table", DecisionMatched)
	collector.RecordRoutingDecision("table", DecisionMatched)
	collector.RecordRoutingDecision("table", DecisionUnmatched)
	collector.RecordRoutingDecision("explicit", DecisionExplicit)

	expected := `
# HELP test_routing_decisions_total Total number of routing decisions by mode and result
# TYPE test_routing_decisions_total counter
test_routing_decisions_total{mode="explicit",result="explicit"} 1
test_routing_decisions_total{mode="table",result="matched"} 2
test_routing_decisions_total{mode="table",result="unmatched"} 1
`
	if err := testutil.GatherAndCompare(collector.Registry(), strings.NewReader(expected), "test_routing_decisions_total"); err != nil {
		t.Error(err)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, nil)

	collector.RecordRequest("/", 200, time.Millisecond)
	collector.RecordError("proxy_error")
	collector.RecordRoutingDecision("table", DecisionMatched)
	collector.ObserveUpstream("models", "ok", time.Millisecond)
	collector.ObserveStream("chat/completions", 1, 1)

	families, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) != 0 {
		t.Errorf("disabled collector registered %d metric families", len(families))
	}
}

func TestCollector_NilIsDisabled(t *testing.T) {
	var collector *Collector
	if collector.Enabled() {
		t.Error("nil collector must report disabled")
	}
	collector.RecordError("io_error")
}

func TestCollector_EndpointCardinality(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.endpoints = NewCardinalityLimiter(2)

	collector.ObserveUpstream("a", "ok", time.Millisecond)
	collector.ObserveUpstream("b", "ok", time.Millisecond)
	collector.ObserveUpstream("c", "ok", time.Millisecond)
	collector.ObserveUpstream("a", "ok", time.Millisecond)

	um := collector.upstreamMetrics
	if got := testutil.ToFloat64(um.requests.WithLabelValues("a", "ok")); got != 2 {
		t.Errorf("a = %v, want 2", got)
	}
	if got := testutil.ToFloat64(um.requests.WithLabelValues(OtherLabel, "ok")); got != 1 {
		t.Errorf("other = %v, want 1", got)
	}
}

func TestCardinalityLimiter(t *testing.T) {
	limiter := NewCardinalityLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow(fmt.Sprintf("label%d", i)) {
			t.Errorf("label %d should be allowed", i)
		}
	}
	if limiter.Allow("label3") {
		t.Error("label beyond limit should be rejected")
	}
	if !limiter.Allow("label0") {
		t.Error("existing label should still be allowed")
	}
	if limiter.Count() != 3 {
		t.Errorf("Count() = %d, want 3", limiter.Count())
	}
}

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	collector.RecordRequest("/api/v1/models", 200, 5*time.Millisecond)

	server := httptest.NewServer(collector.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `test_requests_total{route="/api/v1/models",status="200"} 1`) {
		t.Errorf("metrics output missing request counter:\n%s", body)
	}
	if !strings.Contains(string(body), "promhttp_metric_handler_requests_total") {
		t.Errorf("metrics output missing scrape counter:\n%s", body)
	}
}

func BenchmarkCollector_RecordRequest(b *testing.B) {
	collector := NewCollector(testConfig(), nil)
	b.ReportAllocs()
	for b.Loop() {
		collector.RecordRequest("/api/v1/chat/completions", 200, time.Second)
	}
}

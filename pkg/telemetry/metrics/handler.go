package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the collector's registry in the Prometheus exposition
// format, or OpenMetrics when the scraper asks for it. Mount it at
// telemetry.metrics.path. Scrapes themselves are counted in
// promhttp_metric_handler_requests_total.
//
// Collection errors are reported in the response rather than failing the
// scrape, so one broken collector cannot hide the request counters.
func (c *Collector) Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(c.registry, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
		Registry:          c.registry,
	}))
}

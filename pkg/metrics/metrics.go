// Package metrics exposes the Prometheus metrics registered by the pager,
// client, cache and ratelimit packages.
// All metrics are defined in their respective packages to keep them modular
// and avoid circular dependencies.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry Handler serves.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Pager Metrics (pkg/pagination):
//   - pager_page_fetches_total{result} (Counter): Page fetches by result (ok, error)
//   - pager_page_fetch_duration_seconds (Histogram): Page fetch latency
//   - pager_cache_lookups_total{result} (Counter): Position lookups (hit, miss)
//   - pager_page_evictions_total (Counter): Pages evicted from the window
//   - pager_item_refreshes_total{result} (Counter): Single item refreshes
//   - pager_background_errors_total (Counter): Failed background page loads
//
// Request Metrics (pkg/client):
//   - mediaserver_requests_total{endpoint, status} (Counter)
//   - mediaserver_request_duration_seconds{endpoint} (Histogram)
//   - mediaserver_errors_total{class} (Counter)
//   - mediaserver_retries_total{error_class} (Counter)
//   - mediaserver_retry_backoff_seconds{error_class} (Histogram)
//   - mediaserver_retry_exhausted_total{error_class} (Counter)
//
// Cache Metrics (pkg/cache):
//   - response_cache_hits_total{layer="redis"} (Counter)
//   - response_cache_misses_total (Counter)
//   - response_cache_stored_bytes_total{layer="redis"} (Counter)
//   - response_cache_not_modified_total (Counter)
//   - response_cache_errors_total{operation} (Counter)
//
// Backpressure Metrics (pkg/ratelimit):
//   - backpressure_responses_total{status} (Counter)
//   - backpressure_blocks_total (Counter)
//   - backpressure_throttles_total (Counter)
//
// Example Prometheus Queries:
//
//   # Page window hit rate
//   sum(rate(pager_cache_lookups_total{result="hit"}[5m])) /
//   sum(rate(pager_cache_lookups_total[5m]))
//
//   # P95 page latency
//   histogram_quantile(0.95, rate(pager_page_fetch_duration_seconds_bucket[5m]))
//
//   # Server pushing back
//   rate(backpressure_responses_total[5m]) > 0

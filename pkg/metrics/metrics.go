// Package metrics provides the Prometheus registry and exposition handler for
// the artwork catalog. All metrics are defined in their respective packages
// (client, cache, ratelimit, selection, pagination, session) and registered
// via promauto on the default registerer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package's promauto metrics land in.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source Handler exposes.
var Gatherer = prometheus.DefaultGatherer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Selection Metrics (pkg/selection):
//   - catalog_selection_reconciles_total (Counter): Page reconciliations applied
//   - catalog_selection_replacements_total (Counter): Whole-selection replacements (bulk, clear)
//
// Bulk Selection Metrics (pkg/pagination):
//   - catalog_bulk_selections_total{outcome} (Counter): Bulk walks by outcome
//     (completed, exhausted, cancelled, failed, rejected)
//   - catalog_bulk_pages_fetched_total (Counter): Pages fetched by bulk walks
//   - catalog_bulk_duration_seconds (Histogram): Bulk walk duration
//
// Session Metrics (internal/session):
//   - catalog_sessions_active (Gauge): Open browsing sessions
//
// Rate Limit Metrics (pkg/ratelimit):
//   - catalog_rate_limit_remaining (Gauge): Requests remaining in the API's rate limit window
//   - catalog_rate_limit_blocks_total (Counter): Requests blocked on an exhausted quota
//   - catalog_rate_limit_throttles_total (Counter): Requests throttled on a low quota
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total (Counter): Fresh cache hits
//   - catalog_cache_misses_total (Counter): Cache misses, including stale entries
//   - catalog_cache_bytes_written_total (Counter): Bytes written to Redis
//   - catalog_cache_not_modified_total (Counter): 304 Not Modified responses
//   - catalog_cache_conditional_requests_total (Counter): Conditional requests sent
//   - catalog_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - catalog_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - catalog_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - catalog_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - catalog_retries_total{error_class} (Counter): Retry attempts by error class
//   - catalog_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - catalog_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(catalog_cache_hits_total[5m])) /
//   (sum(rate(catalog_cache_hits_total[5m])) + sum(rate(catalog_cache_misses_total[5m])))
//
//   # Quota Status
//   catalog_rate_limit_remaining < 20
//
//   # Bulk walks that did not complete
//   sum by (outcome) (rate(catalog_bulk_selections_total{outcome!="completed"}[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catalog_request_duration_seconds_bucket[5m]))

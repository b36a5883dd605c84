// Package metrics provides the centralized Prometheus registry anchor.
// All metrics are defined in their respective packages (cache, task,
// httpapi) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer. All metrics are
// automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - taskforge_cache_hits_total (Counter): Cache hits
//   - taskforge_cache_misses_total (Counter): Cache misses
//   - taskforge_cache_errors_total{operation} (Counter): Cache backend errors by operation
//   - taskforge_cache_deleted_keys_total (Counter): Keys removed by invalidation
//
// Invalidation Metrics (pkg/task):
//   - taskforge_invalidations_total{strategy} (Counter): Invalidation runs by strategy
//     (index, pattern, enumeration)
//
// HTTP Metrics (internal/httpapi):
//   - taskforge_http_requests_total{method, route, status} (Counter): Requests by route and status
//   - taskforge_http_request_duration_seconds{method, route} (Histogram): Request duration
//   - taskforge_auth_rate_limit_blocks_total (Counter): Auth requests rejected by the limiter
//   - taskforge_auth_rate_limit_errors_total (Counter): Limiter backend failures (fail-open)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(taskforge_cache_hits_total[5m])) /
//   (sum(rate(taskforge_cache_hits_total[5m])) + sum(rate(taskforge_cache_misses_total[5m])))
//
//   # Cache Degradation
//   rate(taskforge_cache_errors_total[5m]) > 0
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(taskforge_http_request_duration_seconds_bucket[5m]))
//
//   # Invalidation Strategy Mix
//   sum by (strategy) (rate(taskforge_invalidations_total[5m]))

package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the HTTP edge.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskforge_http_requests_total",
		Help: "Total number of HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskforge_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	authRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskforge_auth_rate_limit_blocks_total",
		Help: "Total number of auth requests rejected by the rate limiter",
	})

	authRateLimitErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskforge_auth_rate_limit_errors_total",
		Help: "Total number of rate limiter backend failures (requests allowed through)",
	})
)

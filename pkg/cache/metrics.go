package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskforge_cache_hits_total",
		Help: "Total number of task cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskforge_cache_misses_total",
		Help: "Total number of task cache misses",
	})

	// cacheErrors counts swallowed backend failures. The operation label
	// is one of "get", "set", "delete", "scan", "index".
	cacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskforge_cache_errors_total",
		Help: "Total number of degraded cache operations by operation",
	}, []string{"operation"})

	cacheDeletedKeys = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskforge_cache_deleted_keys_total",
		Help: "Total number of cache keys removed by invalidation",
	})
)

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// StoredBytes tracks bytes written to the cache by layer
	StoredBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_stored_bytes_total",
			Help: "Total bytes written to the response cache",
		},
		[]string{"layer"},
	)

	// NotModified tracks successful revalidations (304 Not Modified)
	NotModified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_not_modified_total",
			Help: "Total number of 304 Not Modified revalidations",
		},
	)

	// Invalidated tracks entries removed by scope invalidation
	Invalidated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_invalidated_total",
			Help: "Total number of cache entries removed by scope invalidation",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // get, set, delete, invalidate
	)
)

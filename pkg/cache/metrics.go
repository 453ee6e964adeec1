package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_hits_total",
		Help: "Total number of response cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_misses_total",
		Help: "Total number of response cache misses",
	})

	CacheBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_bytes_written_total",
		Help: "Total bytes written to the response cache",
	})

	// NotModifiedResponses counts 304 answers to conditional requests.
	NotModifiedResponses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_not_modified_total",
		Help: "Total number of 304 Not Modified responses",
	})

	ConditionalRequestsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_conditional_requests_total",
		Help: "Total number of conditional requests sent",
	})

	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_errors_total",
		Help: "Total number of cache operation errors",
	}, []string{"operation"}) // get, set, delete
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"path", "method", "status"})

	IndexBuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "index_builds_total",
		Help: "Total number of index build attempts",
	}, []string{"trigger", "status"})

	IndexBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "index_build_seconds",
		Help:    "Time taken to load the store and build an index generation",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"trigger"})

	IndexSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "index_size",
		Help: "Number of vectors in the currently published index generation",
	})

	IndexGeneration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "index_generation",
		Help: "Monotonic counter of the published index generation",
	})

	IndexVectorsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "index_vectors_dropped_total",
		Help: "Vectors excluded from builds (malformed or dimension mismatch)",
	}, []string{"reason"})

	RagQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rag_queries_total",
		Help: "Total number of RAG queries",
	}, []string{"status"})

	RagQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rag_query_seconds",
		Help:    "End-to-end RAG query latency (embed + search + shaping)",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"status"})

	EmbeddingCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embedding_cache_hits_total",
		Help: "Query-embedding LRU cache hits",
	})

	EmbeddingCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "embedding_cache_misses_total",
		Help: "Query-embedding LRU cache misses",
	})
)

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search and provider Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradefind",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"mode", "outcome"}, // mode: plain/rag/semantic; outcome: ok/error
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradefind",
			Name:      "search_cache_total",
			Help:      "Search result cache hits and misses",
		},
		[]string{"namespace", "result"}, // result: "hit" / "miss"
	)

	RAGFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradefind",
			Name:      "rag_fallbacks_total",
			Help:      "RAG pipeline degradations by reason",
		},
		[]string{"reason"}, // "no_semantic_hits" / "semantic_error"
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradefind",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradefind",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradefind",
			Name:      "generation_requests_total",
			Help:      "Total number of answer generation requests",
		},
		[]string{"model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradefind",
			Name:      "generation_request_duration_seconds",
			Help:      "Answer generation request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(RAGFallbacksTotal)
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	searchMetricsRegistered = true
}

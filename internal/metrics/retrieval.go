package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval, resolver and indexing Prometheus metrics.
var (
	RetrievalChannelDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qadex",
			Name:      "retrieval_channel_duration_seconds",
			Help:      "Duration of a single retrieval channel in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"channel"}, // "text" / "vector"
	)

	RetrievalChannelHits = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qadex",
			Name:      "retrieval_channel_hits",
			Help:      "Number of hits returned by a retrieval channel",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"channel"},
	)

	RetrievalErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qadex",
			Name:      "retrieval_errors_total",
			Help:      "Total retrieval channel failures",
		},
		[]string{"channel"},
	)

	ResolverOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qadex",
			Name:      "resolver_outcomes_total",
			Help:      "Entity resolution outcomes",
		},
		[]string{"outcome"}, // "exact" / "embedding" / "miss"
	)

	IndexedDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qadex",
			Name:      "indexed_documents_total",
			Help:      "Total documents processed by the indexer",
		},
		[]string{"status"}, // "ok" / "failed"
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval, resolver and indexing metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(RetrievalChannelDuration)
	prometheus.MustRegister(RetrievalChannelHits)
	prometheus.MustRegister(RetrievalErrorsTotal)
	prometheus.MustRegister(ResolverOutcomesTotal)
	prometheus.MustRegister(IndexedDocumentsTotal)
	retrievalMetricsRegistered = true
}

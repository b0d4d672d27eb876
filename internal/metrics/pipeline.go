package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search and ingestion pipeline metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total candidate searches by outcome",
		},
		[]string{"outcome"}, // ok, degraded, invalid, error
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_stage_duration_seconds",
			Help:      "Search pipeline stage duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"}, // retrieve, rerank
	)

	RetrievedCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_retrieved_candidates",
			Help:      "Number of candidates returned by similarity search",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 25, 50},
		},
	)

	RerankOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerank_outcomes_total",
			Help:      "Re-ranking outcomes",
		},
		[]string{"outcome"}, // parsed, repaired, fallback, skipped, error
	)

	IngestRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "Ingested candidate records by status",
		},
		[]string{"status"}, // ok, failed, skipped
	)
)

func pipelineCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		SearchRequestsTotal,
		SearchDuration,
		RetrievedCandidates,
		RerankOutcomesTotal,
		IngestRecordsTotal,
	}
}

var registerOnce sync.Once

// Register registers the HTTP, model, pipeline and budget collectors
// with the default registry. Safe to call more than once; main calls it at startup.
func Register() {
	registerOnce.Do(func() {
		all := httpCollectors()
		all = append(all, embeddingCollectors()...)
		all = append(all, generationCollectors()...)
		all = append(all, pipelineCollectors()...)
		all = append(all, budgetCollectors()...)
		prometheus.MustRegister(all...)
	})
}

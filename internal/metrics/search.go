package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mapsearch",
			Name:      "search_requests_total",
			Help:      "Total number of tiered search requests",
		},
		[]string{"kind", "status"}, // kind: "list" / "points"
	)

	SearchResultCount = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mapsearch",
			Name:      "search_result_count",
			Help:      "Merged results per page",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		},
		[]string{"kind"},
	)

	CatalogRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mapsearch",
			Name:      "catalog_requests_total",
			Help:      "Total number of external catalog requests",
		},
		[]string{"endpoint", "status"},
	)

	CatalogRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mapsearch",
			Name:      "catalog_request_duration_seconds",
			Help:      "External catalog request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	ViewportWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mapsearch",
			Name:      "viewport_writes_total",
			Help:      "Debounced viewport persistence writes",
		},
		[]string{"status"},
	)

	StaleResultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mapsearch",
			Name:      "stale_results_total",
			Help:      "Search pages superseded by a newer request version",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SearchRequestsTotal,
		SearchResultCount,
		CatalogRequestsTotal,
		CatalogRequestDuration,
		ViewportWritesTotal,
		StaleResultsTotal,
	)
}

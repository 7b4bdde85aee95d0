package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingsearch_http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listingsearch_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	searchStageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listingsearch_search_stage_duration_seconds",
			Help:    "Duration of each search pipeline stage.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)
	searchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingsearch_search_failures_total",
			Help: "Search pipeline failures by error kind.",
		},
		[]string{"kind"},
	)
	searchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "listingsearch_search_results",
			Help:    "Number of listings returned per successful search.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		searchStageDurationSeconds,
		searchFailuresTotal,
		searchResults,
	)
}

// ObserveStage records how long a pipeline stage took.
func ObserveStage(stage string, started time.Time) {
	searchStageDurationSeconds.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// RecordSearchFailure counts a failed search by error kind.
func RecordSearchFailure(kind string) {
	searchFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordSearchResults records the result count of a successful search.
func RecordSearchResults(count int) {
	searchResults.Observe(float64(count))
}

// Package metrics exposes Prometheus collectors for the insights service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_runs_total",
			Help: "Total number of pipeline runs, labeled by outcome.",
		},
		[]string{"status"},
	)

	runDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "insights_run_duration_seconds",
			Help:    "Histogram of end-to-end pipeline run latencies.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 45},
		},
	)

	resourcesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_resources_total",
			Help: "Planned resources processed, labeled by category and outcome.",
		},
		[]string{"category", "outcome"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insights_http_requests_total",
			Help: "API requests served, labeled by method and status code.",
		},
		[]string{"method", "code"},
	)
)

// RecordRun counts one completed pipeline run.
func RecordRun(status string, duration time.Duration) {
	runsTotal.WithLabelValues(status).Inc()
	runDurationSeconds.Observe(duration.Seconds())
}

// RecordResource counts one processed resource outcome.
func RecordResource(category, outcome string) {
	resourcesTotal.WithLabelValues(category, outcome).Inc()
}

// RecordHTTPRequest counts one served API request.
func RecordHTTPRequest(method, code string) {
	httpRequestsTotal.WithLabelValues(method, code).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

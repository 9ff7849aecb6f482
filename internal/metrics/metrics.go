// Package metrics registers the Prometheus instruments exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "upkeep_http_requests_total",
		Help: "HTTP requests by route pattern and status code.",
	}, []string{"pattern", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upkeep_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern.",
		Buckets: prometheus.DefBuckets,
	}, []string{"pattern"})

	CompletionsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upkeep_completions_recorded_total",
		Help: "Errand completions recorded.",
	})

	RemindersSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "upkeep_reminders_sent_total",
		Help: "Push reminders delivered.",
	})
)

// Handler serves the Prometheus exposition endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesSent counts stored messages by type.
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hitoq",
			Name:      "messages_sent_total",
			Help:      "Total messages stored, by message type",
		},
		[]string{"type"},
	)

	// HeartsToggled counts heart toggles by outcome (added, removed).
	HeartsToggled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hitoq",
			Name:      "hearts_toggled_total",
			Help:      "Total heart toggles, by result",
		},
		[]string{"result"},
	)

	// RequestsTotal counts HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hitoq",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration observes HTTP latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hitoq",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	// DigestsPosted counts digest deliveries by platform and outcome.
	DigestsPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hitoq",
			Name:      "digests_posted_total",
			Help:      "Total digest posts, by platform and status",
		},
		[]string{"platform", "status"},
	)
)

// Heart toggle results.
const (
	HeartAdded   = "added"
	HeartRemoved = "removed"
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

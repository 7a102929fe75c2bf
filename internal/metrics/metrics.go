// Package metrics holds the prometheus collectors of the directory.  The
// collectors are package level so components can record without plumbing;
// Register must be called once at startup to expose them.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "showdir"

var (
	// SearchRequests counts catalog searches by view and outcome (ok, error).
	SearchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Catalog searches by view and outcome",
		},
		[]string{"view", "outcome"},
	)

	// GeocodeRequests counts geocoder lookups by outcome
	// (resolved, not_found, error, cache_hit).
	GeocodeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoder lookups by outcome",
		},
		[]string{"outcome"},
	)

	// NotificationsSent counts notification sends by outcome
	// (sent, failed, skipped).
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification sends by outcome",
		},
		[]string{"outcome"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)
)

var registerOnce sync.Once

// Register exposes every collector on reg.  Calling it twice is a no-op.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(SearchRequests, GeocodeRequests, NotificationsSent, httpRequestDuration)
	})
}

// Package metrics declares the Prometheus collectors shared by the server,
// the fan-out worker and the device runtime.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PushesSent counts fan-out sends by topic kind (category, general) and status.
	PushesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "govjobs",
		Name:      "pushes_sent_total",
		Help:      "Push messages sent to topics.",
	}, []string{"kind", "status"})

	// DuplicatePushes counts foreground pushes dropped by the dedup window.
	DuplicatePushes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "govjobs",
		Name:      "duplicate_pushes_dropped_total",
		Help:      "Foreground pushes dropped as duplicates.",
	})

	// ReportingDropped counts reporting events dropped because a queue was full or a sink failed.
	ReportingDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "govjobs",
		Name:      "reporting_events_dropped_total",
		Help:      "Reporting events that never reached their sink.",
	}, []string{"sink", "reason"})

	// HTTPRequests counts API requests by method, route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "govjobs",
		Name:      "http_requests_total",
		Help:      "HTTP requests handled by the API server.",
	}, []string{"method", "route", "status"})
)

// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

// Metrics groups the application collectors.
type Metrics struct {
	CheckIns     *prometheus.CounterVec
	Checkouts    *prometheus.CounterVec
	EventsFailed prometheus.Counter
	HTTPDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. Tests pass a fresh
// prometheus.NewRegistry(); the server passes prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CheckIns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sukha",
			Name:      "stay_checkins_total",
			Help:      "Check-in attempts by outcome.",
		}, []string{"outcome"}),
		Checkouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sukha",
			Name:      "stay_checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		EventsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "sukha",
			Name:      "stay_events_failed_total",
			Help:      "Stay events that could not be published.",
		}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sukha",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ChecksTotal counts completed checks by status (up, down) and trigger
	// (scheduled, manual, adhoc).
	ChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewatch_checks_total",
			Help: "Total number of completed site checks",
		},
		[]string{"status", "trigger"},
	)

	// CheckLatency observes probe latency in seconds.
	CheckLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sitewatch_check_latency_seconds",
			Help:    "Site check latency in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
		},
	)

	// ArmedTargets is the number of targets with an active recurring timer.
	ArmedTargets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sitewatch_armed_targets",
			Help: "Number of targets with an active check timer",
		},
	)

	// RequestDuration is HTTP request duration in seconds by method, route and status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sitewatch_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// PersistFailures counts snapshot writes that failed.
	PersistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitewatch_persist_failures_total",
			Help: "Total number of failed snapshot writes",
		},
	)
)

var initOnce sync.Once

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(ChecksTotal, CheckLatency, ArmedTargets, RequestDuration, PersistFailures)
	})
}

// RecordCheck records one completed check.
func RecordCheck(status, trigger string, latencyMS float64) {
	ChecksTotal.WithLabelValues(status, trigger).Inc()
	CheckLatency.Observe(latencyMS / 1000)
}

// RecordRequest records one served HTTP request. route should be the router
// pattern, not the raw path, to keep cardinality bounded.
func RecordRequest(method, route string, statusCode int, durationSeconds float64) {
	if route == "" {
		route = "unmatched"
	}
	RequestDuration.WithLabelValues(method, route, strconv.Itoa(statusCode)).Observe(durationSeconds)
}

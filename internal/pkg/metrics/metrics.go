// Package metrics provides Prometheus metrics collection and exposure.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by middleware and services.
type Recorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordKeySetRefresh(outcome string)
	RecordAuthFailure(reason string)
	RecordCommitConflict()
	RecordCompletion(provider, outcome string)
}

// Refresh and completion outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeThrottled = "throttled"
)

// Collector records metrics into a Prometheus registry.
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	keySetRefreshes *prometheus.CounterVec
	authFailures    *prometheus.CounterVec
	commitConflicts prometheus.Counter
	completions     *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "study_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "study_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		keySetRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "study_jwks_refresh_total",
			Help: "Signing key set fetches by outcome.",
		}, []string{"outcome"}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "study_auth_failures_total",
			Help: "Rejected requests by verification failure reason.",
		}, []string{"reason"}),
		commitConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "study_session_commit_conflicts_total",
			Help: "Session appends that lost a version race and were retried.",
		}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "study_completion_requests_total",
			Help: "Completion provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.keySetRefreshes,
		c.authFailures,
		c.commitConflicts,
		c.completions,
	)

	return c
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordKeySetRefresh records a key set fetch.
func (c *Collector) RecordKeySetRefresh(outcome string) {
	c.keySetRefreshes.WithLabelValues(outcome).Inc()
}

// RecordAuthFailure records a rejected credential.
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFailures.WithLabelValues(reason).Inc()
}

// RecordCommitConflict records a lost compare-and-swap on a session.
func (c *Collector) RecordCommitConflict() {
	c.commitConflicts.Inc()
}

// RecordCompletion records a completion provider call.
func (c *Collector) RecordCompletion(provider, outcome string) {
	c.completions.WithLabelValues(provider, outcome).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordKeySetRefresh(string)                          {}
func (Nop) RecordAuthFailure(string)                            {}
func (Nop) RecordCommitConflict()                               {}
func (Nop) RecordCompletion(string, string)                     {}

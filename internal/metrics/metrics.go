// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sercha_social"

// Label names
const (
	LabelMethod    = "method"
	LabelPath      = "path"
	LabelStatus    = "status"
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
	LabelStep      = "step"
)

// Post outcomes recorded by the worker
const (
	OutcomePosted        = "posted"
	OutcomeFailed        = "failed"
	OutcomeReconnect     = "reconnect_required"
	OutcomeNoCredential  = "no_credential"
	OutcomeClaimConflict = "claim_conflict"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being served",
		},
	)
)

// Provider API Metrics
var (
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Provider API attempts by operation and status code",
		},
		[]string{LabelOperation, LabelStatus},
	)

	ProviderRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Provider API retries by operation",
		},
		[]string{LabelOperation},
	)

	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refreshes_total",
			Help:      "Access token refresh attempts by outcome",
		},
		[]string{LabelOutcome},
	)
)

// Queue Metrics
var (
	PostsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_processed_total",
			Help:      "Claimed posts processed by outcome",
		},
		[]string{LabelOutcome},
	)

	PostsScheduledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_scheduled_total",
			Help:      "Posts accepted into the queue",
		},
	)

	WorkerRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_run_duration_seconds",
			Help:      "Duration of a full worker run",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	HousekeepingErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "housekeeping_errors_total",
			Help:      "Swallowed errors in best-effort worker steps",
		},
		[]string{LabelStep},
	)
)

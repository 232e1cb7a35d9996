// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// UpstreamBuckets covers a fast Judge0 round trip up to a slow LLM answer.
var UpstreamBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}

var (
	// HTTPRequestsTotal counts requests served by this server.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compiler_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration records handler latency.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compiler_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: UpstreamBuckets,
		},
		[]string{"method", "route"},
	)

	// UpstreamRequestsTotal counts outbound calls by service and outcome
	// (ok, transport_error, http_error, decode_error, remote_error, breaker_open).
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compiler_upstream_requests_total",
			Help: "Outbound calls to the execution and chat services",
		},
		[]string{"service", "outcome"},
	)

	// UpstreamLatency records outbound call latency.
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compiler_upstream_latency_seconds",
			Help:    "Outbound call latency",
			Buckets: UpstreamBuckets,
		},
		[]string{"service"},
	)

	// FlowsInFlight is the number of busy flags currently held, per flow.
	FlowsInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "compiler_flows_in_flight",
			Help: "Flows currently running (run) or thinking (ask)",
		},
		[]string{"flow"},
	)

	// FlowRejectedTotal counts triggers refused because the flow was already busy.
	FlowRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compiler_flow_rejected_total",
			Help: "Triggers rejected while the flow was in flight",
		},
		[]string{"flow"},
	)

	// ActiveSessions is the number of page sessions held in memory.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "compiler_sessions_active",
			Help: "Page sessions held in memory",
		},
	)
)

// Service label values.
const (
	ServiceJudge0    = "judge0"
	ServiceAssistant = "assistant"
)

// Outcome label values.
const (
	OutcomeOK             = "ok"
	OutcomeTransportError = "transport_error"
	OutcomeHTTPError      = "http_error"
	OutcomeDecodeError    = "decode_error"
	OutcomeRemoteError    = "remote_error"
	OutcomeBreakerOpen    = "breaker_open"
	OutcomeCanceled       = "canceled"
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		UpstreamLatency,
		FlowsInFlight,
		FlowRejectedTotal,
		ActiveSessions,
	)
}

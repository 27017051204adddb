package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequests counts backend API calls by endpoint and outcome.
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_upstream_requests_total",
		Help: "Backend API requests by endpoint and status.",
	}, []string{"endpoint", "status"})

	// UpstreamDuration observes backend API latency.
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_upstream_request_duration_seconds",
		Help:    "Backend API request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	// GateDecisions counts access gate outcomes.
	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_gate_decisions_total",
		Help: "Access gate decisions by action.",
	}, []string{"action"})

	// SessionsExpired counts sessions cleared after the backend rejected their token.
	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_sessions_expired_total",
		Help: "Sessions cleared after an authentication failure.",
	})

	// LoginAttempts counts portal logins by result.
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_login_attempts_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	// LiveSessions tracks session stores held in memory.
	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portal_live_sessions",
		Help: "Session stores currently held by this process.",
	})
)

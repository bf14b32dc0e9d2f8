package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentfails",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by route and status",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "agentfails",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route"})

	// Chain RPC
	RPCCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentfails",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Total chain RPC calls by method and outcome",
	}, []string{"method", "status"})

	RPCRateLimitWaits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "agentfails",
		Subsystem: "rpc",
		Name:      "rate_limit_waits_total",
		Help:      "Chain RPC calls delayed by the local rate limiter",
	})

	// Payment policy
	PolicyDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentfails",
		Subsystem: "policy",
		Name:      "decisions_total",
		Help:      "Access policy outcomes per action",
	}, []string{"action", "outcome"})

	PaymentVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentfails",
		Subsystem: "payment",
		Name:      "verifications_total",
		Help:      "On-chain payment verification results",
	}, []string{"action", "status"})

	// Merch
	FulfillmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "agentfails",
		Subsystem: "merch",
		Name:      "fulfillments_total",
		Help:      "Checkout fulfillment attempts by outcome",
	}, []string{"outcome"})
)

// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ClaimAttempts counts claim and change-link attempts by operation and outcome kind.
	ClaimAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundcard_claim_attempts_total",
			Help: "Claim and change-link attempts by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	// CardLocks counts lockouts triggered by repeated setup code failures.
	CardLocks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soundcard_card_locks_total",
			Help: "Cards locked after too many failed setup code attempts.",
		},
	)

	// OrdersCreated counts orders by pipeline outcome.
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundcard_orders_total",
			Help: "Order setup requests by outcome.",
		},
		[]string{"outcome"},
	)

	// CardsMinted counts cards persisted by the order pipeline.
	CardsMinted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soundcard_cards_minted_total",
			Help: "Cards minted by the order pipeline.",
		},
	)

	// TokenCollisions counts token draws rejected by the unique index.
	TokenCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "soundcard_token_collisions_total",
			Help: "Token draws that collided with an existing card.",
		},
	)

	// HTTPRequests counts HTTP requests by method, route, and status.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundcard_http_requests_total",
			Help: "HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPDuration observes HTTP request latency by method and route.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "soundcard_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// RateLimited counts requests rejected by the per-client rate limiter.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "soundcard_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		},
		[]string{"path"},
	)
)

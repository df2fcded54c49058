// Package metrics holds the domain counters for ledger, reconciliation and polling
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "smm"

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests partitioned by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latencies in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "HTTP requests currently being served, long-lived event streams included",
		},
	)

	// LedgerMutations counts balance changes by kind (credit|debit), field and outcome
	LedgerMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "mutations_total",
			Help:      "Balance mutations partitioned by kind, field and outcome",
		},
		[]string{"kind", "field", "outcome"},
	)

	WebhookOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "outcomes_total",
			Help:      "Crypto webhook deliveries partitioned by outcome",
		},
		[]string{"outcome"},
	)

	DepositReviews = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deposits",
			Name:      "reviews_total",
			Help:      "Admin deposit reviews partitioned by decision and outcome",
		},
		[]string{"decision", "outcome"},
	)

	PollerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "runs_total",
			Help:      "Reconciliation poll cycles partitioned by poller and outcome",
		},
		[]string{"poller", "outcome"},
	)

	PollerRefunds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "refunds_total",
			Help:      "Refunds applied by the reconciliation pollers",
		},
		[]string{"poller", "status"},
	)

	PollerOrderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "order_failures_total",
			Help:      "Orders whose reconciliation was rolled back",
		},
		[]string{"poller"},
	)

	// ExchangeRateLookups counts where a rate table was served from
	ExchangeRateLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fx",
			Name:      "lookups_total",
			Help:      "Exchange rate table lookups partitioned by source",
		},
		[]string{"source"},
	)
)

// Outcome label values
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeNoop  = "noop"
)

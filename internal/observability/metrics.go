package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lending"

// Metrics holds the Prometheus collectors of the lending engine
type Metrics struct {
	// --- HTTP ---
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// --- Settlement reads ---
	SettlementCalls    *prometheus.CounterVec
	SettlementDuration *prometheus.HistogramVec

	// --- Offer book ---
	OffersSubmitted *prometheus.CounterVec
	OffersRevoked   prometheus.Counter
	ReconcileRuns   *prometheus.CounterVec

	// --- Borrowing ---
	Allocations       *prometheus.CounterVec
	AllocationEntries prometheus.Histogram
	HealthChecks      *prometheus.CounterVec

	// --- Events and cache ---
	EventsPublished *prometheus.CounterVec
	DepositCache    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),

		SettlementCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_calls_total",
			Help:      "Settlement contract reads by method and outcome.",
		}, []string{"method", "outcome"}),
		SettlementDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_call_duration_seconds",
			Help:      "Settlement contract read latency by method.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),

		OffersSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_submitted_total",
			Help:      "Offer submissions by result (created, unchanged, rejected).",
		}, []string{"result"}),
		OffersRevoked: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_revoked_total",
			Help:      "Offers marked revoked after their on-chain nonce moved.",
		}),
		ReconcileRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Reconciler passes by outcome.",
		}, []string{"outcome"}),

		Allocations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "allocations_total",
			Help:      "Allocation requests by outcome (filled, partial, empty).",
		}, []string{"outcome"}),
		AllocationEntries: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "allocation_entries",
			Help:      "Number of offers drawn per allocation.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		HealthChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_assessments_total",
			Help:      "Health assessments by outcome (healthy, unhealthy, unavailable).",
		}, []string{"outcome"}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events handed to a sink by type and outcome.",
		}, []string{"type", "outcome"}),
		DepositCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deposit_cache_requests_total",
			Help:      "Deposit cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
	}
}

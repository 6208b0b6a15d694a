package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagen_sessions_generated_total",
		Help: "Total number of synthesized sessions by conversion status",
	}, []string{"status"})

	TransactionsCommittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagen_transactions_committed_total",
		Help: "Total number of committed transactions by origin",
	}, []string{"origin"})

	ConversionsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagen_conversions_dropped_total",
		Help: "Converted sessions reclassified as abandoned",
	}, []string{"reason"})

	ReservationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagen_reservations_failed_total",
		Help: "Total number of failed stock reservations",
	}, []string{"reason"})

	StandaloneAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datagen_standalone_attempts_total",
		Help: "Standalone basket attempts by result",
	}, []string{"result"})

	LedgerReserveLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datagen_ledger_reserve_latency_seconds",
		Help:    "Latency of ledger reservation operations",
		Buckets: prometheus.ExponentialBuckets(1e-7, 4, 12),
	}, []string{"backend"})

	GenerationPhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datagen_phase_duration_seconds",
		Help:    "Wall time of each generation phase",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)

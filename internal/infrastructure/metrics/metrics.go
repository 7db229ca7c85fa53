package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Payment lifecycle metrics
	PaymentsCreated      prometheus.Counter
	PaymentsConfirmed    prometheus.Counter
	PaymentsFailed       prometheus.Counter
	TransactionsAttached prometheus.Counter

	// Reconciliation metrics
	ReconcileDuration prometheus.Histogram
	ChainQueries      *prometheus.CounterVec
	SweepRuns         prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		PaymentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wdpay_payments_created_total",
			Help: "Total number of payments created",
		}),
		PaymentsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wdpay_payments_confirmed_total",
			Help: "Total number of payments confirmed on chain",
		}),
		PaymentsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wdpay_payments_failed_total",
			Help: "Total number of payments rejected by the chain",
		}),
		TransactionsAttached: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wdpay_transactions_attached_total",
			Help: "Total number of transaction hashes attached via webhook",
		}),

		ReconcileDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wdpay_reconcile_duration_seconds",
			Help:    "Duration of chain reconciliation checks",
			Buckets: prometheus.DefBuckets,
		}),
		ChainQueries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wdpay_chain_queries_total",
				Help: "Total chain transaction lookups by outcome",
			},
			[]string{"outcome"},
		),
		SweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wdpay_sweep_runs_total",
			Help: "Total background sweep runs",
		}),
	}
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rocketharbor/wdpay/internal/domain"
	"github.com/rocketharbor/wdpay/internal/infrastructure/metrics"
)

// ReconcileUseCase advances a hashed pending payment by consulting the
// blockchain capability. Outcomes are strictly four-way: confirmed,
// still-pending, definitively rejected, or a transient query failure.
// Collapsing "not yet confirmed" and "query failed" would either cause
// premature failed transitions or silent stalls, so they stay distinct.
type ReconcileUseCase struct {
	repo         PaymentRepository
	chain        ChainClient
	queryTimeout time.Duration
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewReconcileUseCase creates a new ReconcileUseCase.
func NewReconcileUseCase(
	repo PaymentRepository,
	chain ChainClient,
	queryTimeout time.Duration,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ReconcileUseCase {
	if queryTimeout <= 0 {
		queryTimeout = DefaultChainQueryTimeout
	}
	return &ReconcileUseCase{
		repo:         repo,
		chain:        chain,
		queryTimeout: queryTimeout,
		metrics:      m,
		logger:       logger,
	}
}

// Reconcile queries the chain for payment's transaction and persists the
// resulting transition. A transient node failure leaves the record
// untouched and propagates as a retryable error.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	if payment.Terminal() || payment.TxHash == "" {
		return payment, nil
	}

	start := time.Now()

	// The node has no timeout of its own; impose one.
	queryCtx, cancel := context.WithTimeout(ctx, uc.queryTimeout)
	defer cancel()

	status, err := uc.chain.GetTransaction(queryCtx, payment.TxHash)
	if uc.metrics != nil {
		uc.metrics.ReconcileDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.ChainQueries.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("query transaction %s: %w", payment.TxHash, err)
	}

	if uc.metrics != nil {
		uc.metrics.ChainQueries.WithLabelValues(string(status)).Inc()
	}

	switch status {
	case domain.TransactionConfirmed:
		updated, err := uc.repo.MarkConfirmed(ctx, payment.ID, time.Now().UTC())
		if err != nil {
			return nil, err
		}

		if updated.Status == domain.PaymentStatusConfirmed && uc.metrics != nil {
			uc.metrics.PaymentsConfirmed.Inc()
		}

		uc.logger.Info().
			Str("payment_id", payment.ID).
			Str("tx_hash", payment.TxHash).
			Msg("payment confirmed")

		return updated, nil

	case domain.TransactionRejected:
		updated, err := uc.repo.MarkFailed(ctx, payment.ID)
		if err != nil {
			return nil, err
		}

		if updated.Status == domain.PaymentStatusFailed && uc.metrics != nil {
			uc.metrics.PaymentsFailed.Inc()
		}

		uc.logger.Warn().
			Str("payment_id", payment.ID).
			Str("tx_hash", payment.TxHash).
			Msg("payment rejected by chain")

		return updated, nil

	default:
		// Still pending, or the transaction has not propagated yet.
		return payment, nil
	}
}

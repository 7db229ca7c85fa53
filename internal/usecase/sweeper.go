package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/rocketharbor/wdpay/internal/domain"
	"github.com/rocketharbor/wdpay/internal/infrastructure/metrics"
)

// Sweeper periodically reconciles hashed pending payments. It is a
// strictly additive optimization on top of demand-driven reconciliation:
// a payment whose widget stopped polling still resolves eventually.
type Sweeper struct {
	repo       PaymentRepository
	reconciler *ReconcileUseCase
	interval   time.Duration
	batchSize  int
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewSweeper creates a new Sweeper.
func NewSweeper(
	repo PaymentRepository,
	reconciler *ReconcileUseCase,
	interval time.Duration,
	batchSize int,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Sweeper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{
		repo:       repo,
		reconciler: reconciler,
		interval:   interval,
		batchSize:  batchSize,
		metrics:    m,
		logger:     logger,
	}
}

// Run sweeps until ctx is cancelled. When a sweep fails outright the next
// one is delayed with exponential backoff instead of the fixed interval,
// so a down node is not hammered every tick.
func (s *Sweeper) Run(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.interval
	b.MaxInterval = 10 * s.interval
	b.MaxElapsedTime = 0

	wait := s.interval
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := s.Sweep(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("sweep failed")
			wait = b.NextBackOff()
		} else {
			b.Reset()
			wait = s.interval
		}
	}
}

// Sweep reconciles one batch of hashed pending payments.
func (s *Sweeper) Sweep(ctx context.Context) error {
	payments, err := s.repo.ListHashedPending(ctx, s.batchSize)
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.SweepRuns.Inc()
	}

	var firstErr error
	for _, payment := range payments {
		if _, err := s.reconciler.Reconcile(ctx, payment); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			// A transient node failure aborts the batch; the remaining
			// payments would hit the same node.
			if errors.Is(err, domain.ErrChainUnavailable) {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Warn().Err(err).Str("payment_id", payment.ID).Msg("sweep reconcile failed")
		}
	}

	return firstErr
}

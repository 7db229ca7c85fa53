package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Defaults for the polling loop, matching the payment widget behavior.
const (
	DefaultMaxAttempts = 10
	DefaultDelay       = 3 * time.Second
)

var (
	// ErrVerificationTimeout means the attempt budget ran out while the
	// payment was still pending. The payment itself may yet confirm.
	ErrVerificationTimeout = errors.New("payment verification timed out")

	// ErrPaymentRejected means the service marked the payment failed.
	ErrPaymentRejected = errors.New("payment rejected by the network")
)

// StatusClient is the service surface the poller needs.
type StatusClient interface {
	GetStatus(ctx context.Context, paymentID string) (*Payment, error)
	NotifyTransaction(ctx context.Context, reference, txHash string) error
}

// Poller polls a payment until it reaches a terminal state or the
// attempt budget is exhausted.
type Poller struct {
	client      StatusClient
	maxAttempts int
	delay       time.Duration
	logger      zerolog.Logger

	// wait blocks for d or until ctx is done. Overridable in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// Option configures a Poller.
type Option func(*Poller)

// WithMaxAttempts overrides the attempt budget.
func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithDelay overrides the base delay between attempts.
func WithDelay(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.delay = d
		}
	}
}

// WithLogger attaches a logger to the poller.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Poller) {
		p.logger = logger
	}
}

// New creates a Poller with the widget's default budget of 10 attempts
// spaced 3 seconds apart.
func New(client StatusClient, opts ...Option) *Poller {
	p := &Poller{
		client:      client,
		maxAttempts: DefaultMaxAttempts,
		delay:       DefaultDelay,
		logger:      zerolog.Nop(),
		wait:        sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WaitForConfirmation polls the payment status until it is confirmed,
// failed, or the attempt budget runs out.
//
// A clean "still pending" answer costs one attempt and is followed by the
// base delay. A query error also costs one attempt but the next wait is
// scaled by the attempt count, backing off a struggling service. A failed
// payment aborts immediately with ErrPaymentRejected; responses the
// service flags as permanent (bad request, unknown payment) abort too,
// since retrying the same request cannot change the answer.
func (p *Poller) WaitForConfirmation(ctx context.Context, paymentID string) (*Payment, error) {
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		payment, err := p.client.GetStatus(ctx, paymentID)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Permanent() {
				return nil, fmt.Errorf("check payment %s: %w", paymentID, err)
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			p.logger.Warn().Err(err).Str("payment_id", paymentID).Int("attempt", attempt).
				Msg("status check failed, retrying")

			if attempt == p.maxAttempts {
				break
			}
			// Escalate the wait after an errored query.
			if err := p.wait(ctx, p.delay*time.Duration(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		switch payment.Status {
		case StatusConfirmed:
			p.logger.Info().Str("payment_id", paymentID).Str("tx_hash", payment.TxHash).
				Int("attempt", attempt).Msg("payment confirmed")
			return payment, nil
		case StatusFailed:
			return nil, ErrPaymentRejected
		}

		p.logger.Debug().Str("payment_id", paymentID).Int("attempt", attempt).
			Msg("payment still pending")

		if attempt == p.maxAttempts {
			break
		}
		if err := p.wait(ctx, p.delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrVerificationTimeout, p.maxAttempts)
}

// VerifyPayment reports the transaction hash for the payment's reference
// and then waits for the chain to confirm it.
func (p *Poller) VerifyPayment(ctx context.Context, paymentID, reference, txHash string) (*Payment, error) {
	if err := p.client.NotifyTransaction(ctx, reference, txHash); err != nil {
		return nil, fmt.Errorf("notify transaction: %w", err)
	}
	return p.WaitForConfirmation(ctx, paymentID)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

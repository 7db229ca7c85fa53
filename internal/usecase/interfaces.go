package usecase

import (
	"context"
	"time"

	"github.com/rocketharbor/wdpay/internal/domain"
)

// PaymentRepository defines data access for payments. Implementations must
// serialize mutations of a single payment so a reconcile never observes a
// half-written hash and an attach never overwrites a terminal state.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	// AttachTxHash resolves the unique active payment for reference and
	// stores the hash atomically. Returns domain.ErrPaymentNotFound when no
	// active payment matches, domain.ErrAmbiguousReference when more than
	// one does, and domain.ErrTxHashConflict on a differing re-attach.
	AttachTxHash(ctx context.Context, reference, txHash string) (*domain.Payment, error)
	// MarkConfirmed transitions pending -> confirmed. The transition is
	// monotonic: a payment that is already terminal is returned unchanged.
	MarkConfirmed(ctx context.Context, id string, confirmedAt time.Time) (*domain.Payment, error)
	// MarkFailed transitions pending -> failed, monotonic like MarkConfirmed.
	MarkFailed(ctx context.Context, id string) (*domain.Payment, error)
	// ListHashedPending returns pending payments that carry a transaction
	// hash, for the background sweep.
	ListHashedPending(ctx context.Context, limit int) ([]*domain.Payment, error)
}

// ChainClient is the blockchain capability: look up a transaction by hash.
// A transient node failure is reported as an error wrapping
// domain.ErrChainUnavailable, never as a status.
type ChainClient interface {
	GetTransaction(ctx context.Context, txHash string) (domain.TransactionStatus, error)
}

// IDGenerator generates unique payment IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/rocketharbor/wdpay/internal/domain"
)

// PaymentRepository is an in-memory implementation of
// usecase.PaymentRepository. A single mutex serializes all mutations, which
// guarantees attach and reconcile on the same payment never interleave and
// the reference lookup always sees a consistent snapshot of active records.
type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
	// byReference indexes active (non-terminal) payment IDs per reference so
	// ambiguity detection does not scan the whole store.
	byReference map[string]map[string]struct{}
}

// NewPaymentRepository creates a new in-memory PaymentRepository.
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		payments:    make(map[string]*domain.Payment),
		byReference: make(map[string]map[string]struct{}),
	}
}

// Create stores a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payments[payment.ID] = payment.Clone()
	if payment.Reference != "" && !payment.Terminal() {
		r.indexReference(payment.Reference, payment.ID)
	}

	return nil
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}

	return payment.Clone(), nil
}

// AttachTxHash resolves the unique active payment for reference and stores
// the hash. The whole operation runs under the store lock.
func (r *PaymentRepository) AttachTxHash(ctx context.Context, reference, txHash string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byReference[reference]
	if len(ids) == 0 {
		return nil, domain.ErrPaymentNotFound
	}
	if len(ids) > 1 {
		return nil, domain.ErrAmbiguousReference
	}

	var payment *domain.Payment
	for id := range ids {
		payment = r.payments[id]
	}

	if err := payment.AttachTxHash(txHash); err != nil {
		return nil, err
	}

	return payment.Clone(), nil
}

// MarkConfirmed transitions pending -> confirmed. An already terminal
// payment is returned unchanged.
func (r *PaymentRepository) MarkConfirmed(ctx context.Context, id string, confirmedAt time.Time) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}

	payment.MarkConfirmed(confirmedAt)
	r.unindexIfTerminal(payment)

	return payment.Clone(), nil
}

// MarkFailed transitions pending -> failed.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}

	payment.MarkFailed()
	r.unindexIfTerminal(payment)

	return payment.Clone(), nil
}

// ListHashedPending returns pending payments carrying a transaction hash.
func (r *PaymentRepository) ListHashedPending(ctx context.Context, limit int) ([]*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Payment, 0, limit)
	for _, payment := range r.payments {
		if payment.Status == domain.PaymentStatusPending && payment.TxHash != "" {
			result = append(result, payment.Clone())
			if len(result) == limit {
				break
			}
		}
	}

	return result, nil
}

func (r *PaymentRepository) indexReference(reference, id string) {
	ids, ok := r.byReference[reference]
	if !ok {
		ids = make(map[string]struct{})
		r.byReference[reference] = ids
	}
	ids[id] = struct{}{}
}

func (r *PaymentRepository) unindexIfTerminal(payment *domain.Payment) {
	if !payment.Terminal() || payment.Reference == "" {
		return
	}

	ids := r.byReference[payment.Reference]
	delete(ids, payment.ID)
	if len(ids) == 0 {
		delete(r.byReference, payment.Reference)
	}
}

package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketharbor/wdpay/internal/domain"
)

func newPending(id, reference string) *domain.Payment {
	return &domain.Payment{
		ID:        id,
		Amount:    decimal.NewFromInt(10),
		Recipient: "WEBD$recipient",
		Reference: reference,
		Status:    domain.PaymentStatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func TestPaymentRepository_AttachTxHash(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()
	require.NoError(t, repo.Create(ctx, newPending("p-1", "ref-1")))

	payment, err := repo.AttachTxHash(ctx, "ref-1", "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", payment.TxHash)

	// Idempotent re-attach with the identical hash.
	payment, err = repo.AttachTxHash(ctx, "ref-1", "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", payment.TxHash)

	// Different hash is a conflict; original stays intact.
	_, err = repo.AttachTxHash(ctx, "ref-1", "0xdef")
	assert.ErrorIs(t, err, domain.ErrTxHashConflict)

	stored, err := repo.GetByID(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "0xabc", stored.TxHash)
}

func TestPaymentRepository_AttachTxHash_NotFound(t *testing.T) {
	repo := NewPaymentRepository()
	_, err := repo.AttachTxHash(context.Background(), "ref-missing", "0xabc")
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestPaymentRepository_AttachTxHash_AmbiguousReference(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()
	require.NoError(t, repo.Create(ctx, newPending("p-1", "ref-1")))
	require.NoError(t, repo.Create(ctx, newPending("p-2", "ref-1")))

	_, err := repo.AttachTxHash(ctx, "ref-1", "0xabc")
	assert.ErrorIs(t, err, domain.ErrAmbiguousReference)
}

func TestPaymentRepository_ReferenceFreedByTerminalState(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()
	require.NoError(t, repo.Create(ctx, newPending("p-1", "ref-1")))

	_, err := repo.MarkConfirmed(ctx, "p-1", time.Now())
	require.NoError(t, err)

	// p-1 is terminal, so a new payment may reuse the reference without
	// ambiguity and the old record no longer matches the webhook path.
	require.NoError(t, repo.Create(ctx, newPending("p-2", "ref-1")))

	payment, err := repo.AttachTxHash(ctx, "ref-1", "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "p-2", payment.ID)
}

func TestPaymentRepository_MarkConfirmed(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()
	require.NoError(t, repo.Create(ctx, newPending("p-1", "ref-1")))

	now := time.Now()
	payment, err := repo.MarkConfirmed(ctx, "p-1", now)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, payment.Status)
	require.NotNil(t, payment.ConfirmedAt)

	// Monotonic: a second confirm returns the same record.
	again, err := repo.MarkConfirmed(ctx, "p-1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, again.ConfirmedAt.Equal(*payment.ConfirmedAt))

	// And a failed transition is refused silently.
	failed, err := repo.MarkFailed(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, failed.Status)
}

func TestPaymentRepository_ListHashedPending(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()

	hashed := newPending("p-1", "ref-1")
	hashed.TxHash = "0xabc"
	require.NoError(t, repo.Create(ctx, hashed))
	require.NoError(t, repo.Create(ctx, newPending("p-2", "ref-2")))

	payments, err := repo.ListHashedPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "p-1", payments[0].ID)
}

func TestPaymentRepository_ConcurrentAttachAndConfirm(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository()
	require.NoError(t, repo.Create(ctx, newPending("p-1", "ref-1")))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = repo.AttachTxHash(ctx, "ref-1", "0xabc")
		}()
		go func() {
			defer wg.Done()
			_, _ = repo.MarkConfirmed(ctx, "p-1", time.Now())
		}()
	}
	wg.Wait()

	payment, err := repo.GetByID(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusConfirmed, payment.Status)
	require.NotNil(t, payment.ConfirmedAt)
}

package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rocketharbor/wdpay/internal/domain"
	"github.com/rocketharbor/wdpay/internal/infrastructure/metrics"
)

// PaymentUseCase owns the payment ledger: record creation, the webhook
// attach path, and status reads. Every status read of a hashed pending
// payment is also a reconciliation opportunity, which is what lets the
// widget-driven polling loop make progress without any background timer.
type PaymentUseCase struct {
	repo       PaymentRepository
	reconciler *ReconcileUseCase
	idGen      IDGenerator
	cache      Cache
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewPaymentUseCase creates a new PaymentUseCase. cache may be nil.
func NewPaymentUseCase(
	repo PaymentRepository,
	reconciler *ReconcileUseCase,
	idGen IDGenerator,
	cache Cache,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *PaymentUseCase {
	return &PaymentUseCase{
		repo:       repo,
		reconciler: reconciler,
		idGen:      idGen,
		cache:      cache,
		metrics:    m,
		logger:     logger,
	}
}

// CreatePaymentInput represents input for creating a payment.
type CreatePaymentInput struct {
	Amount    decimal.Decimal
	Recipient string
	Reference string
}

// CreatePayment creates a new payment in the pending state.
// Reference uniqueness is not enforced here; it is enforced effectively
// when the webhook resolves the reference.
func (uc *PaymentUseCase) CreatePayment(ctx context.Context, input CreatePaymentInput) (*domain.Payment, error) {
	payment := &domain.Payment{
		ID:        uc.idGen.Generate(),
		Amount:    input.Amount,
		Recipient: input.Recipient,
		Reference: input.Reference,
		Status:    domain.PaymentStatusPending,
		CreatedAt: time.Now().UTC(),
	}

	if err := payment.Validate(); err != nil {
		return nil, err
	}

	if err := uc.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PaymentsCreated.Inc()
	}

	uc.logger.Info().
		Str("payment_id", payment.ID).
		Str("reference", payment.Reference).
		Str("amount", payment.Amount.String()).
		Msg("payment created")

	return payment, nil
}

// AttachTransaction records the transaction hash reported by the node
// webhook against the unique active payment matching reference.
func (uc *PaymentUseCase) AttachTransaction(ctx context.Context, reference, txHash string) (*domain.Payment, error) {
	payment, err := uc.repo.AttachTxHash(ctx, reference, txHash)
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsAttached.Inc()
	}

	uc.logger.Info().
		Str("payment_id", payment.ID).
		Str("tx_hash", txHash).
		Msg("transaction attached")

	return payment, nil
}

// GetStatus returns the current payment record. A pending payment with an
// attached hash is reconciled against the chain before returning, so the
// caller always sees the freshest resolvable state.
func (uc *PaymentUseCase) GetStatus(ctx context.Context, id string) (*domain.Payment, error) {
	if cached := uc.cachedTerminal(ctx, id); cached != nil {
		return cached, nil
	}

	payment, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payment.Terminal() {
		uc.cacheTerminal(ctx, payment)
		return payment, nil
	}

	if payment.TxHash == "" {
		// Nothing to reconcile yet; the webhook has not arrived.
		return payment, nil
	}

	payment, err = uc.reconciler.Reconcile(ctx, payment)
	if err != nil {
		return nil, err
	}

	if payment.Terminal() {
		uc.cacheTerminal(ctx, payment)
	}

	return payment, nil
}

func terminalCacheKey(id string) string {
	return "payment:terminal:" + id
}

func (uc *PaymentUseCase) cachedTerminal(ctx context.Context, id string) *domain.Payment {
	if uc.cache == nil {
		return nil
	}

	raw, err := uc.cache.Get(ctx, terminalCacheKey(id))
	if err != nil || raw == "" {
		return nil
	}

	var payment domain.Payment
	if err := json.Unmarshal([]byte(raw), &payment); err != nil {
		return nil
	}

	return &payment
}

func (uc *PaymentUseCase) cacheTerminal(ctx context.Context, payment *domain.Payment) {
	if uc.cache == nil {
		return
	}

	raw, err := json.Marshal(payment)
	if err != nil {
		return
	}

	if err := uc.cache.Set(ctx, terminalCacheKey(payment.ID), string(raw), TerminalViewTTL); err != nil {
		uc.logger.Warn().Err(err).Str("payment_id", payment.ID).Msg("failed to cache terminal payment")
	}
}

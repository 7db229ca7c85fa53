package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/rocketharbor/wdpay/internal/domain"
	"github.com/rocketharbor/wdpay/internal/usecase"
	"github.com/rocketharbor/wdpay/internal/usecase/mocks"
)

func seedHashedPending(t *testing.T, repo *mocks.MockPaymentRepository) *domain.Payment {
	t.Helper()
	payment := &domain.Payment{
		ID:        "pay-1",
		Amount:    decimal.NewFromInt(10),
		Recipient: "R1",
		Reference: "ref-1",
		Status:    domain.PaymentStatusPending,
		TxHash:    "0xabc",
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), payment); err != nil {
		t.Fatal(err)
	}
	return payment
}

func TestReconcileUseCase_Confirmed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPaymentRepository()
	payment := seedHashedPending(t, repo)

	chain := mocks.NewMockChainClient(ctrl)
	chain.EXPECT().GetTransaction(gomock.Any(), "0xabc").Return(domain.TransactionConfirmed, nil)

	uc := usecase.NewReconcileUseCase(repo, chain, time.Second, nil, zerolog.Nop())

	updated, err := uc.Reconcile(context.Background(), payment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.PaymentStatusConfirmed {
		t.Errorf("expected confirmed, got %s", updated.Status)
	}
	if updated.ConfirmedAt == nil {
		t.Error("expected ConfirmedAt to be stamped")
	}
}

func TestReconcileUseCase_StillPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPaymentRepository()
	payment := seedHashedPending(t, repo)

	chain := mocks.NewMockChainClient(ctrl)
	chain.EXPECT().GetTransaction(gomock.Any(), "0xabc").Return(domain.TransactionPending, nil)

	uc := usecase.NewReconcileUseCase(repo, chain, time.Second, nil, zerolog.Nop())

	updated, err := uc.Reconcile(context.Background(), payment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.PaymentStatusPending {
		t.Errorf("expected pending, got %s", updated.Status)
	}
	if updated.ConfirmedAt != nil {
		t.Error("pending payment must not carry ConfirmedAt")
	}
}

func TestReconcileUseCase_Rejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPaymentRepository()
	payment := seedHashedPending(t, repo)

	chain := mocks.NewMockChainClient(ctrl)
	chain.EXPECT().GetTransaction(gomock.Any(), "0xabc").Return(domain.TransactionRejected, nil)

	uc := usecase.NewReconcileUseCase(repo, chain, time.Second, nil, zerolog.Nop())

	updated, err := uc.Reconcile(context.Background(), payment)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.PaymentStatusFailed {
		t.Errorf("expected failed, got %s", updated.Status)
	}

	// Terminal: a later confirmed report must not resurrect the payment.
	stored, _ := repo.MarkConfirmed(context.Background(), payment.ID, time.Now())
	if stored.Status != domain.PaymentStatusFailed {
		t.Errorf("failed payment must stay failed, got %s", stored.Status)
	}
}

func TestReconcileUseCase_TransientError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPaymentRepository()
	payment := seedHashedPending(t, repo)

	chain := mocks.NewMockChainClient(ctrl)
	chain.EXPECT().GetTransaction(gomock.Any(), "0xabc").
		Return(domain.TransactionStatus(""), domain.ErrChainUnavailable)

	uc := usecase.NewReconcileUseCase(repo, chain, time.Second, nil, zerolog.Nop())

	_, err := uc.Reconcile(context.Background(), payment)
	if !errors.Is(err, domain.ErrChainUnavailable) {
		t.Fatalf("expected ErrChainUnavailable, got %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), payment.ID)
	if stored.Status != domain.PaymentStatusPending {
		t.Errorf("transient failure must not change state, got %s", stored.Status)
	}
}

func TestReconcileUseCase_SkipsUnhashedAndTerminal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPaymentRepository()
	chain := mocks.NewMockChainClient(ctrl) // no expectations

	uc := usecase.NewReconcileUseCase(repo, chain, time.Second, nil, zerolog.Nop())

	unhashed := &domain.Payment{ID: "p-1", Status: domain.PaymentStatusPending}
	if got, err := uc.Reconcile(context.Background(), unhashed); err != nil || got != unhashed {
		t.Errorf("unhashed payment must be returned unchanged, got %v err %v", got, err)
	}

	terminal := &domain.Payment{ID: "p-2", Status: domain.PaymentStatusFailed, TxHash: "0xabc"}
	if got, err := uc.Reconcile(context.Background(), terminal); err != nil || got != terminal {
		t.Errorf("terminal payment must be returned unchanged, got %v err %v", got, err)
	}
}

func TestReconcileUseCase_QueryTimeoutImposed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockPaymentRepository()
	payment := seedHashedPending(t, repo)

	chain := mocks.NewMockChainClient(ctrl)
	chain.EXPECT().GetTransaction(gomock.Any(), "0xabc").DoAndReturn(
		func(ctx context.Context, txHash string) (domain.TransactionStatus, error) {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("expected a deadline on the chain query context")
			}
			return domain.TransactionPending, nil
		})

	uc := usecase.NewReconcileUseCase(repo, chain, 50*time.Millisecond, nil, zerolog.Nop())
	if _, err := uc.Reconcile(context.Background(), payment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

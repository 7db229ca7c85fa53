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

func newLedger(t *testing.T, repo *mocks.MockPaymentRepository, chain usecase.ChainClient) *usecase.PaymentUseCase {
	t.Helper()
	reconciler := usecase.NewReconcileUseCase(repo, chain, time.Second, nil, zerolog.Nop())
	return usecase.NewPaymentUseCase(repo, reconciler, mocks.NewMockIDGenerator(), nil, nil, zerolog.Nop())
}

func TestPaymentUseCase_CreatePayment(t *testing.T) {
	tests := []struct {
		name        string
		input       usecase.CreatePaymentInput
		expectError error
	}{
		{
			name:  "valid payment",
			input: usecase.CreatePaymentInput{Amount: decimal.NewFromInt(10), Recipient: "WEBD$recipient", Reference: "ref-1"},
		},
		{
			name:  "valid without reference",
			input: usecase.CreatePaymentInput{Amount: decimal.NewFromFloat(0.25), Recipient: "WEBD$recipient"},
		},
		{
			name:        "reject zero amount",
			input:       usecase.CreatePaymentInput{Amount: decimal.Zero, Recipient: "WEBD$recipient"},
			expectError: domain.ErrInvalidAmount,
		},
		{
			name:        "reject negative amount",
			input:       usecase.CreatePaymentInput{Amount: decimal.NewFromInt(-5), Recipient: "WEBD$recipient"},
			expectError: domain.ErrInvalidAmount,
		},
		{
			name:        "reject empty recipient",
			input:       usecase.CreatePaymentInput{Amount: decimal.NewFromInt(10)},
			expectError: domain.ErrRecipientRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newLedger(t, mocks.NewMockPaymentRepository(), nil)

			payment, err := uc.CreatePayment(context.Background(), tt.input)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Errorf("expected error %v, got %v", tt.expectError, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if payment.ID == "" {
				t.Error("expected generated id")
			}
			if payment.Status != domain.PaymentStatusPending {
				t.Errorf("expected pending, got %s", payment.Status)
			}
			if payment.TxHash != "" {
				t.Errorf("expected empty tx hash, got %s", payment.TxHash)
			}
		})
	}
}

func TestPaymentUseCase_AttachTransaction(t *testing.T) {
	ctx := context.Background()
	repo := mocks.NewMockPaymentRepository()
	uc := newLedger(t, repo, nil)

	created, err := uc.CreatePayment(ctx, usecase.CreatePaymentInput{
		Amount: decimal.NewFromInt(10), Recipient: "R1", Reference: "ref-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("unknown reference", func(t *testing.T) {
		_, err := uc.AttachTransaction(ctx, "ref-unknown", "0xabc")
		if !errors.Is(err, domain.ErrPaymentNotFound) {
			t.Errorf("expected ErrPaymentNotFound, got %v", err)
		}
	})

	t.Run("attach and idempotent re-attach", func(t *testing.T) {
		payment, err := uc.AttachTransaction(ctx, "ref-1", "0xabc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if payment.ID != created.ID || payment.TxHash != "0xabc" {
			t.Errorf("unexpected payment %+v", payment)
		}

		if _, err := uc.AttachTransaction(ctx, "ref-1", "0xabc"); err != nil {
			t.Errorf("expected idempotent attach, got %v", err)
		}
	})

	t.Run("conflicting hash", func(t *testing.T) {
		_, err := uc.AttachTransaction(ctx, "ref-1", "0xdef")
		if !errors.Is(err, domain.ErrTxHashConflict) {
			t.Errorf("expected ErrTxHashConflict, got %v", err)
		}
	})

	t.Run("ambiguous reference", func(t *testing.T) {
		if _, err := uc.CreatePayment(ctx, usecase.CreatePaymentInput{
			Amount: decimal.NewFromInt(20), Recipient: "R1", Reference: "ref-dup",
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := uc.CreatePayment(ctx, usecase.CreatePaymentInput{
			Amount: decimal.NewFromInt(30), Recipient: "R1", Reference: "ref-dup",
		}); err != nil {
			t.Fatal(err)
		}

		_, err := uc.AttachTransaction(ctx, "ref-dup", "0x111")
		if !errors.Is(err, domain.ErrAmbiguousReference) {
			t.Errorf("expected ErrAmbiguousReference, got %v", err)
		}
	})
}

func TestPaymentUseCase_GetStatus_Unknown(t *testing.T) {
	uc := newLedger(t, mocks.NewMockPaymentRepository(), nil)

	_, err := uc.GetStatus(context.Background(), "missing")
	if !errors.Is(err, domain.ErrPaymentNotFound) {
		t.Errorf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestPaymentUseCase_GetStatus_NoHashNeverReconciles(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := mocks.NewMockPaymentRepository()
	chain := mocks.NewMockChainClient(ctrl) // no expectations: any call fails the test
	uc := newLedger(t, repo, chain)

	created, err := uc.CreatePayment(ctx, usecase.CreatePaymentInput{
		Amount: decimal.NewFromInt(10), Recipient: "R1", Reference: "ref-1",
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		payment, err := uc.GetStatus(ctx, created.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if payment.Status != domain.PaymentStatusPending {
			t.Errorf("expected pending, got %s", payment.Status)
		}
	}
}

func TestPaymentUseCase_GetStatus_ConfirmsExactlyOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := mocks.NewMockPaymentRepository()
	chain := mocks.NewMockChainClient(ctrl)
	uc := newLedger(t, repo, chain)

	created, err := uc.CreatePayment(ctx, usecase.CreatePaymentInput{
		Amount: decimal.NewFromInt(10), Recipient: "R1", Reference: "ref-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uc.AttachTransaction(ctx, "ref-1", "0xabc"); err != nil {
		t.Fatal(err)
	}

	// The chain is consulted exactly once: the follow-up reads hit the
	// terminal record and short-circuit.
	chain.EXPECT().GetTransaction(gomock.Any(), "0xabc").
		Return(domain.TransactionConfirmed, nil).
		Times(1)

	payment, err := uc.GetStatus(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != domain.PaymentStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", payment.Status)
	}
	if payment.ConfirmedAt == nil {
		t.Fatal("expected ConfirmedAt to be set")
	}
	confirmedAt := *payment.ConfirmedAt

	again, err := uc.GetStatus(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.ConfirmedAt.Equal(confirmedAt) {
		t.Error("ConfirmedAt must be set exactly once")
	}
}

func TestPaymentUseCase_GetStatus_TransientErrorLeavesStateUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := mocks.NewMockPaymentRepository()
	chain := mocks.NewMockChainClient(ctrl)
	uc := newLedger(t, repo, chain)

	created, err := uc.CreatePayment(ctx, usecase.CreatePaymentInput{
		Amount: decimal.NewFromInt(10), Recipient: "R1", Reference: "ref-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uc.AttachTransaction(ctx, "ref-1", "0xabc"); err != nil {
		t.Fatal(err)
	}

	chain.EXPECT().GetTransaction(gomock.Any(), "0xabc").
		Return(domain.TransactionStatus(""), domain.ErrChainUnavailable)

	_, err = uc.GetStatus(ctx, created.ID)
	if !errors.Is(err, domain.ErrChainUnavailable) {
		t.Fatalf("expected ErrChainUnavailable, got %v", err)
	}

	stored, err := repo.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.PaymentStatusPending {
		t.Errorf("transient failure must not change state, got %s", stored.Status)
	}
}

func TestPaymentUseCase_GetStatus_TerminalViewCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := mocks.NewMockPaymentRepository()
	chain := mocks.NewMockChainClient(ctrl)
	cache := mocks.NewMockCache()

	reconciler := usecase.NewReconcileUseCase(repo, chain, time.Second, nil, zerolog.Nop())
	uc := usecase.NewPaymentUseCase(repo, reconciler, mocks.NewMockIDGenerator(), cache, nil, zerolog.Nop())

	created, err := uc.CreatePayment(ctx, usecase.CreatePaymentInput{
		Amount: decimal.NewFromInt(10), Recipient: "R1", Reference: "ref-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uc.AttachTransaction(ctx, "ref-1", "0xabc"); err != nil {
		t.Fatal(err)
	}

	chain.EXPECT().GetTransaction(gomock.Any(), "0xabc").
		Return(domain.TransactionConfirmed, nil).
		Times(1)

	if _, err := uc.GetStatus(ctx, created.ID); err != nil {
		t.Fatal(err)
	}

	// Second read is served from the cache: the repository is not consulted.
	repo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Payment, error) {
		t.Error("repository must not be hit for a cached terminal view")
		return nil, domain.ErrPaymentNotFound
	}

	payment, err := uc.GetStatus(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payment.Status != domain.PaymentStatusConfirmed {
		t.Errorf("expected confirmed, got %s", payment.Status)
	}
}

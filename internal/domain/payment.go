package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusConfirmed PaymentStatus = "confirmed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// TransactionStatus is the outcome of a blockchain transaction lookup.
type TransactionStatus string

const (
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionPending   TransactionStatus = "pending"
	TransactionRejected  TransactionStatus = "rejected"
)

// Payment represents a payment request raised by the widget and settled
// by an on-chain transaction.
type Payment struct {
	ID          string
	Amount      decimal.Decimal
	Recipient   string
	Reference   string
	Status      PaymentStatus
	TxHash      string
	CreatedAt   time.Time
	ConfirmedAt *time.Time
}

// Validate checks the creation invariants.
func (p *Payment) Validate() error {
	if p.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}
	if p.Recipient == "" {
		return ErrRecipientRequired
	}
	return ValidateReference(p.Reference)
}

// Terminal reports whether the payment reached a final state.
func (p *Payment) Terminal() bool {
	return p.Status == PaymentStatusConfirmed || p.Status == PaymentStatusFailed
}

// AttachTxHash stores the transaction hash reported by the node webhook.
// The hash is write-once: attaching the same hash again is a no-op,
// attaching a different one is a conflict.
func (p *Payment) AttachTxHash(txHash string) error {
	if err := ValidateTxHash(txHash); err != nil {
		return err
	}
	if p.Terminal() {
		return ErrPaymentTerminal
	}
	if p.TxHash != "" {
		if p.TxHash == txHash {
			return nil
		}
		return ErrTxHashConflict
	}
	p.TxHash = txHash
	return nil
}

// MarkConfirmed transitions pending -> confirmed and stamps ConfirmedAt.
// Terminal states are never left, so re-confirming is a no-op and a
// failed payment stays failed.
func (p *Payment) MarkConfirmed(now time.Time) {
	if p.Terminal() {
		return
	}
	at := now.UTC()
	p.Status = PaymentStatusConfirmed
	p.ConfirmedAt = &at
}

// MarkFailed transitions pending -> failed.
func (p *Payment) MarkFailed() {
	if p.Terminal() {
		return
	}
	p.Status = PaymentStatusFailed
}

// Clone returns a deep copy so callers never alias ledger-owned state.
func (p *Payment) Clone() *Payment {
	cp := *p
	if p.ConfirmedAt != nil {
		at := *p.ConfirmedAt
		cp.ConfirmedAt = &at
	}
	return &cp
}

package dto

import (
	"github.com/shopspring/decimal"

	"github.com/rocketharbor/wdpay/internal/usecase"
)

// CreatePaymentRequest represents a request to create a payment.
type CreatePaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Recipient string          `json:"recipient"`
	Reference string          `json:"reference,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreatePaymentRequest) ToUseCaseInput() usecase.CreatePaymentInput {
	return usecase.CreatePaymentInput{
		Amount:    r.Amount,
		Recipient: r.Recipient,
		Reference: r.Reference,
	}
}

// WebhookRequest is the payload the WebDollar node posts when it observes
// a transaction. Amount and recipient are echoed by the node but only the
// reference and hash drive the attach.
type WebhookRequest struct {
	TxHash    string          `json:"txHash"`
	Reference string          `json:"reference"`
	Recipient string          `json:"recipient,omitempty"`
	Amount    decimal.Decimal `json:"amount,omitempty"`
}

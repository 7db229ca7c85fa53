package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rocketharbor/wdpay/internal/domain"
)

// PaymentResponse is the externally visible projection of a payment.
// The reference is echoed back so the widget can correlate.
type PaymentResponse struct {
	ID          string          `json:"paymentId"`
	Amount      decimal.Decimal `json:"amount"`
	Recipient   string          `json:"recipient"`
	Reference   string          `json:"reference,omitempty"`
	Status      string          `json:"status"`
	TxHash      string          `json:"txHash,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	ConfirmedAt *time.Time      `json:"confirmedAt,omitempty"`
}

// PaymentFromDomain converts a domain payment to a response.
func PaymentFromDomain(p *domain.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:          p.ID,
		Amount:      p.Amount,
		Recipient:   p.Recipient,
		Reference:   p.Reference,
		Status:      string(p.Status),
		TxHash:      p.TxHash,
		CreatedAt:   p.CreatedAt,
		ConfirmedAt: p.ConfirmedAt,
	}
}

// AckResponse acknowledges a webhook delivery.
type AckResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

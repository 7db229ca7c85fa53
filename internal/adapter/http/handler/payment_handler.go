package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketharbor/wdpay/internal/adapter/http/dto"
	"github.com/rocketharbor/wdpay/internal/domain"
	"github.com/rocketharbor/wdpay/internal/usecase"
)

// PaymentService is the ledger surface the HTTP layer depends on.
type PaymentService interface {
	CreatePayment(ctx context.Context, input usecase.CreatePaymentInput) (*domain.Payment, error)
	AttachTransaction(ctx context.Context, reference, txHash string) (*domain.Payment, error)
	GetStatus(ctx context.Context, id string) (*domain.Payment, error)
}

// PaymentHandler handles payment-related HTTP requests.
type PaymentHandler struct {
	payments PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Create creates a new payment request.
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	payment, err := h.payments.CreatePayment(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create payment", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.PaymentFromDomain(payment))
}

// Status returns the current payment state, reconciling against the chain
// when the payment is pending with an attached transaction.
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing payment ID", "")
		return
	}

	payment, err := h.payments.GetStatus(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get payment status", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentFromDomain(payment))
}

// Webhook is called by the WebDollar node when it observes a transaction.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	var req dto.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if _, err := h.payments.AttachTransaction(r.Context(), req.Reference, req.TxHash); err != nil {
		writeError(w, mapDomainError(err), "failed to attach transaction", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AckResponse{Success: true})
}

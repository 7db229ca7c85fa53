package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rocketharbor/wdpay/internal/adapter/http/dto"
	"github.com/rocketharbor/wdpay/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes. Only
// ErrChainUnavailable yields a retryable status; everything else tells the
// caller to fix the request rather than retry it.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrRecipientRequired),
		errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, domain.ErrInvalidTxHash):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAmbiguousReference),
		errors.Is(err, domain.ErrTxHashConflict),
		errors.Is(err, domain.ErrPaymentTerminal):
		return http.StatusConflict
	case errors.Is(err, domain.ErrChainUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

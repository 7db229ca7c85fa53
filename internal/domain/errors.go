package domain

import "errors"

var (
	// Creation errors
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrRecipientRequired = errors.New("recipient is required")

	// Lookup errors
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrAmbiguousReference = errors.New("reference matches more than one active payment")

	// Transition errors
	ErrTxHashConflict  = errors.New("payment already has a different transaction hash")
	ErrPaymentTerminal = errors.New("payment is in a terminal state")

	// ErrChainUnavailable marks a transient node failure; callers may retry.
	ErrChainUnavailable = errors.New("blockchain node unavailable")
)

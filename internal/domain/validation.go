package domain

import (
	"errors"
	"regexp"
	"strings"
)

// Validation errors
var (
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidTxHash    = errors.New("invalid transaction hash")
)

// Validation constants
const (
	MaxReferenceLength = 255
	MaxTxHashLength    = 128
)

var txHashRegex = regexp.MustCompile(`^(0x)?[0-9a-fA-F]+$`)

// ValidateReference validates a client-supplied correlation token.
// An empty reference is allowed at creation time; uniqueness among active
// payments is enforced when the webhook resolves it.
func ValidateReference(reference string) error {
	if len(reference) > MaxReferenceLength {
		return ErrInvalidReference
	}
	if reference != strings.TrimSpace(reference) {
		return ErrInvalidReference
	}
	return nil
}

// ValidateTxHash validates a transaction hash reported by the node.
func ValidateTxHash(txHash string) error {
	if txHash == "" || len(txHash) > MaxTxHashLength {
		return ErrInvalidTxHash
	}
	if !txHashRegex.MatchString(txHash) {
		return ErrInvalidTxHash
	}
	return nil
}

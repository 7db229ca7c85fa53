package usecase

import "time"

const (
	// DefaultChainQueryTimeout bounds a single node lookup so one slow
	// query cannot stall a status call indefinitely.
	DefaultChainQueryTimeout = 10 * time.Second

	// TerminalViewTTL is how long terminal payment views are cached.
	// Terminal states never change, so staleness is not a concern.
	TerminalViewTTL = 24 * time.Hour

	// IdempotencyKeyTTL is how long idempotency keys are cached.
	IdempotencyKeyTTL = 24 * time.Hour
)

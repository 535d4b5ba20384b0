package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrLockHeld     = errors.New("lock already held")
	ErrInvalidRanks = errors.New("invalid leaderboard ranks")

	// ErrAbsentEntity marks a reference with no code on the ledger. It is a
	// terminal non-error state until the entity is reimported: never cached,
	// never retried eagerly.
	ErrAbsentEntity = errors.New("no contract at address")

	// ErrTransientChain marks a malformed, empty, or rejected ledger read.
	// Callers skip the result, leave prior cache untouched, and retry
	// naturally on the next trigger.
	ErrTransientChain = errors.New("transient chain error")
)

package engine

import (
	"errors"

	"launchpad/internal/ledger"
)

var (
	// ErrInvalidInput covers mismatched supplied-vs-stated amounts, zero amounts and
	// arithmetic that leaves the uint256 domain.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientOutput is returned when the output is below the caller's minimum.
	ErrInsufficientOutput = errors.New("insufficient output amount")
	// ErrAlreadyGraduated is returned for any trade against a migrated pool.
	ErrAlreadyGraduated = errors.New("pool already graduated")
	// ErrThresholdExceeded is returned when the pool's currency reserve is already
	// past the graduation threshold before the trade.
	ErrThresholdExceeded = errors.New("graduation threshold exceeded")
	ErrDeadlineExceeded  = errors.New("deadline exceeded")
	ErrPaused            = errors.New("trading paused")
	// ErrUnauthorized is shared with the ledger so callers match either with errors.Is.
	ErrUnauthorized  = ledger.ErrUnauthorized
	ErrReentrantCall = errors.New("reentrant call")
	ErrPoolNotFound  = errors.New("pool not found")
	// ErrMigrationMismatch is returned when the migrator reports a deposit the
	// engine did not fund or no venue pool.
	ErrMigrationMismatch = errors.New("migration result mismatch")
)

var reasons = []struct {
	err    error
	reason string
}{
	{ErrReentrantCall, "reentrant"},
	{ErrPaused, "paused"},
	{ErrDeadlineExceeded, "deadline"},
	{ErrInvalidInput, "invalid_input"},
	{ErrPoolNotFound, "pool_not_found"},
	{ErrAlreadyGraduated, "graduated"},
	{ErrThresholdExceeded, "threshold"},
	{ErrInsufficientOutput, "slippage"},
	{ErrUnauthorized, "unauthorized"},
	{ErrMigrationMismatch, "migration"},
}

// Reason maps an engine error to a short label for metrics and logs.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "other"
}

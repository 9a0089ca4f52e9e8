package engine

import (
	"errors"

	"github.com/okian/roost/internal/adapters/repository"
)

// Engine error kinds. Store-level kinds are re-exported so callers match
// every failure against this one package.
var (
	// ErrInvalidFeeAmount is returned when an entry fee does not equal the
	// configured fee exactly.
	ErrInvalidFeeAmount = errors.New("entry fee amount is invalid")
	// ErrDayNotClosed is returned when claiming a day that is still open.
	ErrDayNotClosed = errors.New("day is not closed yet")
	// ErrNoReward is returned when a record earned nothing claimable.
	ErrNoReward = errors.New("no reward to claim")
	// ErrTransferFailed is returned when the bank rejects a transfer; the
	// claim stays unclaimed and may be retried.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrNotStarted is returned when operations run before Start.
	ErrNotStarted = errors.New("engine not started")

	ErrAlreadyEntered = repository.ErrAlreadyEntered
	ErrNotEntered     = repository.ErrNotEntered
	ErrAlreadyClaimed = repository.ErrAlreadyClaimed
	ErrInvalidLimit   = repository.ErrInvalidLimit
	ErrUnavailable    = repository.ErrUnavailable
)

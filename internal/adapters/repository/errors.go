package repository

import "errors"

// Sentinel kinds for ledger store errors.
var (
	ErrNotEntered      = errors.New("player has no entry for day")
	ErrAlreadyEntered  = errors.New("player already entered for day")
	ErrAlreadyClaimed  = errors.New("reward already claimed")
	ErrClaimNotPending = errors.New("claim is not pending")
	ErrInvalidLimit    = errors.New("invalid leaderboard limit")
	ErrUnavailable     = errors.New("ledger store unavailable")
)

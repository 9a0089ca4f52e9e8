package bank

import "errors"

var (
	// ErrInsufficientFunds is returned when a collect exceeds the payer's
	// balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount is returned for nil or negative transfer amounts.
	ErrInvalidAmount = errors.New("invalid transfer amount")
	// ErrUnavailable is returned when the backing ledger cannot be reached.
	ErrUnavailable = errors.New("bank unavailable")
)

// Package bank moves entry fees and reward payouts between player accounts
// and the house pool. Implementations must be safe for concurrent use; the
// engine calls Collect and Credit from concurrent request paths.
package bank

import (
	"context"
	"math/big"
)

// Receipt identifies a completed transfer. Settled claims carry the receipt
// of the credit that paid them.
type Receipt string

// Bank is the money-movement port.
type Bank interface {
	// Collect withdraws amount from the player's account into the house.
	Collect(ctx context.Context, player string, amount *big.Int) (Receipt, error)
	// Credit deposits amount from the house into the player's account.
	Credit(ctx context.Context, player string, amount *big.Int) (Receipt, error)
	// Balance reports the player's current account balance.
	Balance(ctx context.Context, player string) (*big.Int, error)
}

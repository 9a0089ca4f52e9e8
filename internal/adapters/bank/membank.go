package bank

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/roost/pkg/metrics"
)

// MemoryBank is an in-memory Bank keeping per-player balances plus a house
// account. Collects fail when the payer lacks funds; the house balance may
// go negative so payouts never block on bookkeeping, matching a house that
// is funded out of band.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[string]*big.Int
	house    *big.Int
}

// NewMemoryBank builds an empty in-memory bank.
func NewMemoryBank(opts ...Option) *MemoryBank {
	cfg := newOptions(opts...)
	b := &MemoryBank{
		balances: make(map[string]*big.Int),
		house:    new(big.Int),
	}
	for player, amount := range cfg.seedBalances {
		b.balances[player] = new(big.Int).Set(amount)
	}
	return b
}

// Mint adds funds to a player's account outside any transfer. Intended for
// tests and simulations.
func (b *MemoryBank) Mint(player string, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.credit(player, amount)
}

// Collect implements Bank.
func (b *MemoryBank) Collect(ctx context.Context, player string, amount *big.Int) (Receipt, error) {
	if err := validAmount(amount); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	balance, ok := b.balances[player]
	if !ok || balance.Cmp(amount) < 0 {
		return "", fmt.Errorf("%w: collect %s from %s", ErrInsufficientFunds, amount, player)
	}
	balance.Sub(balance, amount)
	b.house.Add(b.house, amount)
	metrics.RecordBankTransfer("collect")
	return newReceipt(), nil
}

// Credit implements Bank.
func (b *MemoryBank) Credit(ctx context.Context, player string, amount *big.Int) (Receipt, error) {
	if err := validAmount(amount); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.house.Sub(b.house, amount)
	b.credit(player, amount)
	metrics.RecordBankTransfer("credit")
	return newReceipt(), nil
}

// Balance implements Bank.
func (b *MemoryBank) Balance(ctx context.Context, player string) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if balance, ok := b.balances[player]; ok {
		return new(big.Int).Set(balance), nil
	}
	return new(big.Int), nil
}

// HouseBalance reports the house account, positive when collected fees
// exceed payouts.
func (b *MemoryBank) HouseBalance() *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.house)
}

func (b *MemoryBank) credit(player string, amount *big.Int) {
	if balance, ok := b.balances[player]; ok {
		balance.Add(balance, amount)
		return
	}
	b.balances[player] = new(big.Int).Set(amount)
}

func validAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	return nil
}

func newReceipt() Receipt {
	return Receipt(uuid.NewString())
}

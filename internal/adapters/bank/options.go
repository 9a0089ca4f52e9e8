package bank

import "math/big"

type options struct {
	seedBalances map[string]*big.Int
}

// Option configures a MemoryBank.
type Option func(*options)

func newOptions(opts ...Option) *options {
	cfg := &options{}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// WithSeedBalance pre-funds a player account at construction time.
func WithSeedBalance(player string, amount *big.Int) Option {
	return func(o *options) {
		if o.seedBalances == nil {
			o.seedBalances = make(map[string]*big.Int)
		}
		o.seedBalances[player] = new(big.Int).Set(amount)
	}
}

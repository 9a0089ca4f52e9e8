// Package reward implements the payout arithmetic for a day's prize pool.
//
// All amounts are integers in the smallest denomination and every division
// floors, so the same inputs always yield the same reward regardless of
// caller. Both the authoritative claim path and any "projected earnings"
// display must go through Compute; there is no second formula.
package reward

import (
	"math/big"
)

// Reward formula constants.
const (
	// BasisPointsBase is the fixed-point base for multipliers (1.0 == 10000).
	BasisPointsBase = 10_000
	// MultiplierStepBps is the multiplier gain per score point
	// (0.04x == 400 bps per point).
	MultiplierStepBps = 400
	// QualifyPercent is the share of the day's high score a score must reach
	// to earn anything.
	QualifyPercent = 80
	// CapPercent bounds any single payout to this share of the pool.
	CapPercent = 50
	// percentBase is the denominator for the percent constants above.
	percentBase = 100
)

// MultiplierBps returns the speed multiplier for a score in basis points:
// 10000 + 400*score, i.e. 1.0 + score*0.04 without floating point.
func MultiplierBps(score uint64) uint64 {
	return BasisPointsBase + score*MultiplierStepBps
}

// Qualifies reports whether a score reaches the qualification threshold:
// floor(highScore * 80 / 100). A day with no high score qualifies nobody.
func Qualifies(score, highScore uint64) bool {
	if highScore == 0 {
		return false
	}
	return score >= highScore*QualifyPercent/percentBase
}

// Cap returns the maximum payout for a pool: floor(pool * 50 / 100).
func Cap(pool *big.Int) *big.Int {
	capped := new(big.Int).Mul(pool, big.NewInt(CapPercent))
	return capped.Quo(capped, big.NewInt(percentBase))
}

// Compute returns the reward for a score against a day's aggregates.
//
//	base          = floor(score * pool / highScore)
//	withMult      = floor(base * multiplierBps / 10000)
//	reward        = min(withMult, floor(pool * 50 / 100))
//
// Returns zero when the score does not qualify or the pool is empty.
// The returned value is freshly allocated; inputs are never mutated.
func Compute(score, highScore uint64, pool *big.Int, multiplierBps uint64) *big.Int {
	if pool == nil || pool.Sign() <= 0 || !Qualifies(score, highScore) {
		return new(big.Int)
	}

	base := new(big.Int).SetUint64(score)
	base.Mul(base, pool)
	base.Quo(base, new(big.Int).SetUint64(highScore))

	base.Mul(base, new(big.Int).SetUint64(multiplierBps))
	base.Quo(base, big.NewInt(BasisPointsBase))

	if maxPayout := Cap(pool); base.Cmp(maxPayout) > 0 {
		return maxPayout
	}
	return base
}

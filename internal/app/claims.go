package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/okian/roost/internal/domain/model"
	"github.com/okian/roost/internal/domain/reward"
	"github.com/okian/roost/pkg/logger"
	"github.com/okian/roost/pkg/metrics"
)

// ClaimResult reports one settled claim.
type ClaimResult struct {
	Day     uint64
	Amount  *big.Int
	Receipt string
}

// ClaimAllResult reports a sweep over every claimable day. When a day
// failed, FailedDay points at it and the days before it stay settled.
type ClaimAllResult struct {
	Claimed   []ClaimResult
	Total     *big.Int
	FailedDay *uint64
}

// ClaimableRewards lists closed days where the player holds an unclaimed,
// nonzero reward, oldest first. Each amount is final: closed days never
// change.
func (e *Engine) ClaimableRewards(ctx context.Context, player string) ([]model.Claimable, error) {
	currentDay := e.resolver.Day(e.now())
	days, err := e.store.UnclaimedDays(ctx, player, currentDay)
	if err != nil {
		return nil, err
	}

	out := make([]model.Claimable, 0, len(days))
	for _, day := range days {
		amount, err := e.claimableAmount(ctx, day, player)
		if err != nil {
			return nil, err
		}
		if amount.Sign() > 0 {
			out = append(out, model.Claimable{Day: day, Amount: amount})
		}
	}
	return out, nil
}

// ClaimReward pays out the player's reward for one closed day. The claim is
// settled only after the bank credit succeeds; a failed credit leaves the
// day claimable.
func (e *Engine) ClaimReward(ctx context.Context, player string, day uint64) (ClaimResult, error) {
	if day >= e.resolver.Day(e.now()) {
		return ClaimResult{}, fmt.Errorf("%w: day %d", ErrDayNotClosed, day)
	}

	rec, err := e.store.PlayerRecord(ctx, day, player)
	if err != nil {
		return ClaimResult{}, err
	}
	if rec.Claimed() {
		return ClaimResult{}, fmt.Errorf("%w: day %d", ErrAlreadyClaimed, day)
	}
	stats, err := e.store.DayStats(ctx, day)
	if err != nil {
		return ClaimResult{}, err
	}
	amount := reward.Compute(rec.BestScore, stats.HighScore, stats.TotalPool, rec.MultiplierBps)
	if amount.Sign() == 0 {
		return ClaimResult{}, fmt.Errorf("%w: day %d", ErrNoReward, day)
	}

	// Marks the claim pending first so a crash between credit and settle is
	// visible to recovery. ErrAlreadyClaimed surfaces here on repeats.
	if err := e.store.BeginClaim(ctx, day, player); err != nil {
		return ClaimResult{}, err
	}

	start := time.Now()
	receipt, err := e.bank.Credit(ctx, player, amount)
	if err != nil {
		if abortErr := e.store.AbortClaim(ctx, day, player); abortErr != nil {
			e.logger.Error(ctx, "aborting claim after failed credit",
				logger.String("player", player),
				logger.Uint64("day", day),
				logger.Error(abortErr),
			)
		}
		metrics.RecordClaimAborted()
		metrics.RecordErrorByComponent("engine", "claim_credit")
		return ClaimResult{}, fmt.Errorf("%w: crediting reward: %w", ErrTransferFailed, err)
	}

	if err := e.store.SettleClaim(ctx, day, player, amount, string(receipt)); err != nil {
		return ClaimResult{}, err
	}
	metrics.RecordClaimSettled(amount)
	metrics.RecordClaimSettleLatency(float64(time.Since(start).Milliseconds()))

	e.logger.Info(ctx, "reward claimed",
		logger.String("player", player),
		logger.Uint64("day", day),
		logger.String("amount", amount.String()),
	)
	return ClaimResult{Day: day, Amount: amount, Receipt: string(receipt)}, nil
}

// ClaimAllRewards claims every claimable day oldest first, stopping at the
// first failure. Days settled before the failure stay settled; the result
// reports them alongside the failed day and the error.
func (e *Engine) ClaimAllRewards(ctx context.Context, player string) (ClaimAllResult, error) {
	claimables, err := e.ClaimableRewards(ctx, player)
	if err != nil {
		return ClaimAllResult{Total: new(big.Int)}, err
	}

	result := ClaimAllResult{Total: new(big.Int)}
	for _, c := range claimables {
		claimed, err := e.ClaimReward(ctx, player, c.Day)
		if err != nil {
			day := c.Day
			result.FailedDay = &day
			return result, err
		}
		result.Claimed = append(result.Claimed, claimed)
		result.Total.Add(result.Total, claimed.Amount)
	}
	return result, nil
}

// claimableAmount values a player's record against its day's final
// aggregates. Zero when the record does not qualify or was claimed.
func (e *Engine) claimableAmount(ctx context.Context, day uint64, player string) (*big.Int, error) {
	rec, err := e.store.PlayerRecord(ctx, day, player)
	if err != nil {
		return nil, err
	}
	if rec.Claimed() {
		return new(big.Int), nil
	}
	stats, err := e.store.DayStats(ctx, day)
	if err != nil {
		return nil, err
	}
	return reward.Compute(rec.BestScore, stats.HighScore, stats.TotalPool, rec.MultiplierBps), nil
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/okian/roost/internal/adapters/repository"
	"github.com/okian/roost/internal/domain/model"
	"github.com/okian/roost/internal/domain/reward"
	"github.com/okian/roost/pkg/logger"
	"github.com/okian/roost/pkg/metrics"
)

// EnterResult reports a successful paid entry.
type EnterResult struct {
	// Day is the day the entry was recorded on.
	Day uint64
	// Pool is the day's total pool after the fee.
	Pool *big.Int
	// FirstEntry is false for a paid re-entry under the unlimited policy.
	FirstEntry bool
	// TotalPlayers is the day's distinct player count.
	TotalPlayers int
}

// SubmitResult reports the effect of a score submission.
type SubmitResult struct {
	Day           uint64
	Improved      bool
	BestScore     uint64
	MultiplierBps uint64
	NewDayHigh    bool
}

// Enter collects the entry fee and records the player into today's round.
// The fee must equal the configured entry fee exactly. When the player has
// already entered and re-entry is disallowed the collected fee is refunded.
func (e *Engine) Enter(ctx context.Context, player string, fee *big.Int) (EnterResult, error) {
	if fee == nil || fee.Cmp(e.entryFee) != 0 {
		metrics.RecordErrorByComponent("engine", "invalid_fee")
		return EnterResult{}, fmt.Errorf("%w: want %s", ErrInvalidFeeAmount, e.entryFee)
	}

	now := e.now()
	day := e.resolver.Day(now)

	if _, err := e.bank.Collect(ctx, player, fee); err != nil {
		metrics.RecordErrorByComponent("engine", "fee_collect")
		return EnterResult{}, fmt.Errorf("%w: collecting entry fee: %w", ErrTransferFailed, err)
	}

	out, err := e.store.Enter(ctx, day, player, fee, now.Unix(), e.entriesPolicy == EntriesUnlimited)
	if err != nil {
		// The fee was taken but the entry was rejected; give it back.
		if _, refundErr := e.bank.Credit(ctx, player, fee); refundErr != nil {
			e.logger.Error(ctx, "refund after rejected entry failed",
				logger.String("player", player),
				logger.Uint64("day", day),
				logger.Error(refundErr),
			)
		}
		return EnterResult{}, err
	}

	metrics.RecordEntry()
	metrics.UpdatePoolAmount(out.Pool)
	metrics.UpdatePlayersToday(out.TotalPlayers)
	e.logger.Debug(ctx, "entry recorded",
		logger.String("player", player),
		logger.Uint64("day", day),
		logger.String("pool", out.Pool.String()),
	)
	return EnterResult{
		Day:          day,
		Pool:         out.Pool,
		FirstEntry:   out.FirstEntry,
		TotalPlayers: out.TotalPlayers,
	}, nil
}

// SubmitScore records a finished run for today's round. Scores below the
// player's stored best are accepted but change nothing.
func (e *Engine) SubmitScore(ctx context.Context, player string, score uint64) (SubmitResult, error) {
	day := e.resolver.Day(e.now())
	bps := reward.MultiplierBps(score)

	out, err := e.store.RecordScore(ctx, day, player, score, bps)
	if err != nil {
		return SubmitResult{}, err
	}

	metrics.RecordSubmission(out.Improved)
	if out.NewDayHigh {
		metrics.RecordHighScoreUpdate()
		e.logger.Info(ctx, "new daily high score",
			logger.String("player", player),
			logger.Uint64("day", day),
			logger.Uint64("score", score),
		)
	}
	return SubmitResult{
		Day:           day,
		Improved:      out.Improved,
		BestScore:     out.BestScore,
		MultiplierBps: reward.MultiplierBps(out.BestScore),
		NewDayHigh:    out.NewDayHigh,
	}, nil
}

// DayStats returns the aggregate for a day. Untouched days report zeros.
func (e *Engine) DayStats(ctx context.Context, day uint64) (model.DayStats, error) {
	return e.store.DayStats(ctx, day)
}

// CurrentPool returns today's total pool.
func (e *Engine) CurrentPool(ctx context.Context) (*big.Int, error) {
	stats, err := e.store.DayStats(ctx, e.resolver.Day(e.now()))
	if err != nil {
		return nil, err
	}
	return stats.TotalPool, nil
}

// HasEntered reports whether the player holds an entry for the day.
func (e *Engine) HasEntered(ctx context.Context, day uint64, player string) (bool, error) {
	_, err := e.store.PlayerRecord(ctx, day, player)
	if errors.Is(err, repository.ErrNotEntered) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PlayerScore returns the player's stored best score for a day.
func (e *Engine) PlayerScore(ctx context.Context, day uint64, player string) (uint64, error) {
	rec, err := e.store.PlayerRecord(ctx, day, player)
	if err != nil {
		return 0, err
	}
	return rec.BestScore, nil
}

// PlayerRecord returns the player's full ledger row for a day: best score,
// multiplier, entry count and claim state.
func (e *Engine) PlayerRecord(ctx context.Context, day uint64, player string) (model.PlayerDayRecord, error) {
	return e.store.PlayerRecord(ctx, day, player)
}

// PlayerRank returns the player's rank for a day (1 plus the count of
// players with a strictly greater best score) and the day's player count.
func (e *Engine) PlayerRank(ctx context.Context, day uint64, player string) (rank, totalPlayers int, err error) {
	return e.store.Rank(ctx, day, player)
}

// Leaderboard returns up to limit entries for a day, best first, with each
// entry's reward valued against the day's current pool and high score.
func (e *Engine) Leaderboard(ctx context.Context, day uint64, limit int) ([]model.Entry, error) {
	if limit > e.maxLeaderboardLimit {
		limit = e.maxLeaderboardLimit
	}
	entries, err := e.store.Leaderboard(ctx, day, limit)
	if err != nil {
		return nil, err
	}
	stats, err := e.store.DayStats(ctx, day)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Reward = reward.Compute(entries[i].Score, stats.HighScore, stats.TotalPool, entries[i].MultiplierBps)
	}
	return entries, nil
}

// ProjectedReward values the player's current best score against today's
// running pool and high score. The projection moves until the day closes.
func (e *Engine) ProjectedReward(ctx context.Context, player string) (*big.Int, error) {
	day := e.resolver.Day(e.now())
	rec, err := e.store.PlayerRecord(ctx, day, player)
	if err != nil {
		return nil, err
	}
	stats, err := e.store.DayStats(ctx, day)
	if err != nil {
		return nil, err
	}
	return reward.Compute(rec.BestScore, stats.HighScore, stats.TotalPool, rec.MultiplierBps), nil
}

// HallOfFame returns the top lifetime earners, highest first.
func (e *Engine) HallOfFame(ctx context.Context, limit int) ([]model.Earner, error) {
	if limit > e.hallOfFameLimit {
		limit = e.hallOfFameLimit
	}
	return e.store.HallOfFame(ctx, limit)
}

// LifetimeEarnings returns the player's total settled earnings.
func (e *Engine) LifetimeEarnings(ctx context.Context, player string) (*big.Int, error) {
	return e.store.LifetimeEarnings(ctx, player)
}

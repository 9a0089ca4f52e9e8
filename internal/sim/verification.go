package sim

import (
	"context"
	"fmt"
	"math/big"

	engine "github.com/okian/roost/internal/app"
	"github.com/okian/roost/internal/domain/reward"
)

// verifyDay checks a played day's aggregates against the round invariants.
func verifyDay(ctx context.Context, eng *engine.Engine, day uint64, config *Config, stats *Stats) error {
	dayStats, err := eng.DayStats(ctx, day)
	if err != nil {
		return fmt.Errorf("day stats: %w", err)
	}

	// Every fee collected for the day must sit in the pool.
	wantPool := new(big.Int).Mul(config.EntryFee, big.NewInt(int64(config.Players)))
	if !config.ReentryMode && dayStats.TotalPool.Cmp(wantPool) != 0 {
		return fmt.Errorf("pool %s does not equal %d fees (%s)", dayStats.TotalPool, config.Players, wantPool)
	}
	if dayStats.TotalPlayers != config.Players {
		return fmt.Errorf("player count %d, want %d", dayStats.TotalPlayers, config.Players)
	}

	board, err := eng.Leaderboard(ctx, day, config.Players)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}
	if len(board) != config.Players {
		return fmt.Errorf("leaderboard has %d entries, want %d", len(board), config.Players)
	}

	maxPayout := reward.Cap(dayStats.TotalPool)
	threshold := dayStats.HighScore * reward.QualifyPercent / 100

	prevScore := board[0].Score
	for i, entry := range board {
		if entry.Score > prevScore {
			return fmt.Errorf("leaderboard out of order at position %d", i)
		}
		prevScore = entry.Score

		// Rank is one plus the players strictly above.
		strictlyAbove := 0
		for _, other := range board {
			if other.Score > entry.Score {
				strictlyAbove++
			}
		}
		if entry.Rank != strictlyAbove+1 {
			return fmt.Errorf("%s has rank %d, want %d", entry.Player, entry.Rank, strictlyAbove+1)
		}

		if entry.Reward.Cmp(maxPayout) > 0 {
			return fmt.Errorf("%s reward %s exceeds cap %s", entry.Player, entry.Reward, maxPayout)
		}
		if entry.Score < threshold && entry.Reward.Sign() != 0 {
			return fmt.Errorf("%s below threshold %d but rewarded %s", entry.Player, threshold, entry.Reward)
		}
		if entry.Score >= threshold && dayStats.TotalPool.Sign() > 0 && entry.Reward.Sign() == 0 && dayStats.HighScore > 0 && entry.Score > 0 {
			return fmt.Errorf("%s qualified with %d but earned nothing", entry.Player, entry.Score)
		}
	}

	// Spot check the store's rank query against the board.
	top := board[0]
	rank, total, err := eng.PlayerRank(ctx, day, top.Player)
	if err != nil {
		return fmt.Errorf("rank query: %w", err)
	}
	if rank != 1 || total != config.Players {
		return fmt.Errorf("top player rank %d/%d, want 1/%d", rank, total, config.Players)
	}
	return nil
}

// verifyClaims checks the sweep left nothing claimable and that lifetime
// earnings add up to everything claimed. Payouts are only bounded per
// player (half the pool each), not collectively.
func verifyClaims(ctx context.Context, eng *engine.Engine, roster []player, stats *Stats) error {
	// No claimable rewards may remain on closed days.
	for _, p := range roster {
		claimable, err := eng.ClaimableRewards(ctx, p.id)
		if err != nil {
			return fmt.Errorf("claimable for %s: %w", p.id, err)
		}
		if len(claimable) != 0 {
			return fmt.Errorf("%s still has %d claimable days after sweep", p.id, len(claimable))
		}
	}

	totalEarned := new(big.Int)
	for _, p := range roster {
		earned, err := eng.LifetimeEarnings(ctx, p.id)
		if err != nil {
			return fmt.Errorf("earnings for %s: %w", p.id, err)
		}
		totalEarned.Add(totalEarned, earned)
	}
	if totalEarned.Cmp(stats.TotalClaimed) != 0 {
		return fmt.Errorf("lifetime earnings %s do not match claimed total %s", totalEarned, stats.TotalClaimed)
	}
	return nil
}

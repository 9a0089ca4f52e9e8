package sim

import (
	"context"
	"log"
	"math/big"

	"github.com/shopspring/decimal"

	engine "github.com/okian/roost/internal/app"
)

// Token display constants.
const (
	tokenDecimals = 18
	fameTopN      = 10
)

// formatTokens renders a smallest-denomination amount as whole tokens.
func formatTokens(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -tokenDecimals).String()
}

// displayDay prints a day's aggregates and top entries.
func displayDay(ctx context.Context, eng *engine.Engine, day uint64, config *Config) {
	stats, err := eng.DayStats(ctx, day)
	if err != nil {
		log.Printf("day %d stats unavailable: %v", day, err)
		return
	}

	log.Printf("day %d: pool %s, %d players, high score %d by %s",
		day, formatTokens(stats.TotalPool), stats.TotalPlayers, stats.HighScore, stats.HighScorer)

	board, err := eng.Leaderboard(ctx, day, config.TopN)
	if err != nil {
		log.Printf("day %d leaderboard unavailable: %v", day, err)
		return
	}
	for _, entry := range board {
		log.Printf("   %d. %s score %d x%s reward %s",
			entry.Rank, entry.Player, entry.Score,
			decimal.New(int64(entry.MultiplierBps), -4).String(),
			formatTokens(entry.Reward))
	}
}

// displayHallOfFame prints the lifetime earners after the claim sweep.
func displayHallOfFame(ctx context.Context, eng *engine.Engine) {
	fame, err := eng.HallOfFame(ctx, fameTopN)
	if err != nil {
		log.Printf("hall of fame unavailable: %v", err)
		return
	}
	if len(fame) == 0 {
		log.Println("hall of fame is empty")
		return
	}
	log.Printf("hall of fame (top %d lifetime earners):", len(fame))
	for _, earner := range fame {
		log.Printf("   %d. %s earned %s", earner.Rank, earner.Player, formatTokens(earner.LifetimeEarnings))
	}
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var improveRate float64
	if stats.RunsSubmitted > 0 {
		improveRate = float64(stats.ScoresImproved) / float64(stats.RunsSubmitted) * 100
	}

	log.Printf(`simulation finished in %s
   entries:        %d (%s collected)
   runs:           %d (%.1f%% improved best, %d day highs)
   claims settled: %d (%s paid out)
   claims skipped: %d
   claims failed:  %d
   days verified:  %d (%d failures)`,
		stats.Duration,
		stats.EntriesRecorded, formatTokens(stats.TotalCollected),
		stats.RunsSubmitted, improveRate, stats.DayHighsSet,
		stats.ClaimsSettled, formatTokens(stats.TotalClaimed),
		stats.ClaimsSkipped,
		stats.ClaimsFailed,
		stats.DaysVerified, stats.VerificationErrs)
}

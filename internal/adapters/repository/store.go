// Package repository defines the round ledger store contract and errors.
//
// The store owns every mutation path for per-day records and serializes
// them: no two mutations to the same (player, day) record interleave.
// Reads may observe a slightly stale but consistent snapshot.
package repository

import (
	"context"
	"math/big"
	"sort"

	"github.com/okian/roost/internal/domain/model"
)

// EnterOutcome reports the effect of a paid entry.
type EnterOutcome struct {
	// Pool is the day's total pool after the fee was added.
	Pool *big.Int
	// FirstEntry is true when this was the player's first entry for the day.
	FirstEntry bool
	// TotalPlayers is the distinct player count after the entry.
	TotalPlayers int
}

// ScoreOutcome reports the effect of a score submission.
type ScoreOutcome struct {
	// Improved is true when the submission raised the player's best score.
	Improved bool
	// BestScore is the stored best after the submission.
	BestScore uint64
	// NewDayHigh is true when the submission set a new daily high score.
	NewDayHigh bool
}

// Store provides read/write access to the daily round ledger.
type Store interface {
	// Enter records a paid entry for (player, day), creating the record on
	// first entry and adding fee to the day's pool. startTS is recorded as
	// the day's start on its first entry. With allowReentry false a second
	// entry fails with ErrAlreadyEntered.
	Enter(ctx context.Context, day uint64, player string, fee *big.Int, startTS int64, allowReentry bool) (EnterOutcome, error)

	// RecordScore applies a score submission. A score at or below the stored
	// best is a no-op with Improved == false, never an error. Fails with
	// ErrNotEntered when the player has no entry for the day.
	RecordScore(ctx context.Context, day uint64, player string, score uint64, multiplierBps uint64) (ScoreOutcome, error)

	// PlayerRecord returns the ledger row for (player, day).
	// Fails with ErrNotEntered when absent.
	PlayerRecord(ctx context.Context, day uint64, player string) (model.PlayerDayRecord, error)

	// DayStats returns the aggregate for a day. Days nobody entered return
	// a zero aggregate, not an error.
	DayStats(ctx context.Context, day uint64) (model.DayStats, error)

	// Rank returns 1 + the count of entered players with a strictly greater
	// best score, plus the day's distinct player count.
	Rank(ctx context.Context, day uint64, player string) (rank, totalPlayers int, err error)

	// Leaderboard returns up to limit entries for a day ordered by score
	// descending, earliest submission first among ties. Reward is left nil;
	// the engine fills it from the reward calculator.
	Leaderboard(ctx context.Context, day uint64, limit int) ([]model.Entry, error)

	// UnclaimedDays lists days strictly before beforeDay where the player
	// has a record whose reward was never claimed, ascending.
	UnclaimedDays(ctx context.Context, player string, beforeDay uint64) ([]uint64, error)

	// BeginClaim moves a claim from none to pending. Fails with
	// ErrAlreadyClaimed when pending or settled, ErrNotEntered when the
	// record is absent.
	BeginClaim(ctx context.Context, day uint64, player string) error

	// SettleClaim confirms a pending claim with the credited amount and
	// transfer receipt, and adds the amount to the player's lifetime
	// earnings. Fails with ErrClaimNotPending unless pending.
	SettleClaim(ctx context.Context, day uint64, player string, amount *big.Int, receipt string) error

	// AbortClaim rolls a pending claim back to none.
	// Fails with ErrClaimNotPending unless pending.
	AbortClaim(ctx context.Context, day uint64, player string) error

	// PendingClaims lists claims stuck in the pending state, for recovery.
	PendingClaims(ctx context.Context) ([]model.ClaimRef, error)

	// LifetimeEarnings returns the player's settled earnings total.
	// Unknown players report zero.
	LifetimeEarnings(ctx context.Context, player string) (*big.Int, error)

	// HallOfFame returns up to limit players ordered by lifetime earnings
	// descending, ties by player id ascending.
	HallOfFame(ctx context.Context, limit int) ([]model.Earner, error)

	// TrackedDays returns the number of day aggregates held by the store.
	TrackedDays(ctx context.Context) int

	// Close releases store resources.
	Close() error
}

// assignRanks assigns competition ranks in place: entries sharing a score
// share a rank, and the next distinct score ranks 1 + count of strictly
// greater entries. Input must already be sorted score descending.
func assignRanks(entries []model.Entry) {
	for i := range entries {
		if i > 0 && entries[i].Score == entries[i-1].Score {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}

// sortEarners orders hall-of-fame rows by lifetime earnings descending,
// ties by player id ascending for determinism.
func sortEarners(earners []model.Earner) {
	sort.Slice(earners, func(i, j int) bool {
		cmp := earners[i].LifetimeEarnings.Cmp(earners[j].LifetimeEarnings)
		if cmp != 0 {
			return cmp > 0
		}
		return earners[i].Player < earners[j].Player
	})
}

// assignEarnerRanks does the same for hall-of-fame rows, keyed on earnings.
func assignEarnerRanks(earners []model.Earner) {
	for i := range earners {
		if i > 0 && earners[i].LifetimeEarnings.Cmp(earners[i-1].LifetimeEarnings) == 0 {
			earners[i].Rank = earners[i-1].Rank
			continue
		}
		earners[i].Rank = i + 1
	}
}

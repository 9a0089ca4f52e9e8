// Package model contains domain records passed between layers.
package model

import (
	"math/big"
)

// ClaimState tracks the one-way claim lifecycle for a (player, day) reward.
type ClaimState int

const (
	// ClaimNone means the reward has never been claimed.
	ClaimNone ClaimState = iota
	// ClaimPending means a claim reserved the reward but the transfer has
	// not been confirmed yet.
	ClaimPending
	// ClaimSettled means the transfer was confirmed; terminal.
	ClaimSettled
)

// PlayerDayRecord is the per-(player, day) ledger row.
// BestScore is monotonically non-decreasing; Claim never reverts.
type PlayerDayRecord struct {
	Player        string
	Day           uint64
	BestScore     uint64
	MultiplierBps uint64
	// Seq orders equal scores on the leaderboard: assigned when the current
	// best score was achieved, lower is earlier.
	Seq     uint64
	Entries int
	Claim   ClaimState
	// ClaimedAmount and ClaimReceipt are set once the claim settles.
	ClaimedAmount *big.Int
	ClaimReceipt  string
}

// Claimed reports whether the record's reward has been settled.
func (r PlayerDayRecord) Claimed() bool {
	return r.Claim == ClaimSettled
}

// DayStats is the per-day aggregate.
type DayStats struct {
	Day          uint64
	HighScore    uint64
	HighScorer   string
	TotalPool    *big.Int
	TotalPlayers int
	// StartTS is the unix time of the first entry for the day; zero until
	// someone enters.
	StartTS int64
}

// Entry is one leaderboard row for a day, ordered by score descending with
// earliest submission first among ties.
type Entry struct {
	Rank          int
	Player        string
	Score         uint64
	MultiplierBps uint64
	Reward        *big.Int
}

// Claimable is a reward ready to be claimed for a closed day.
type Claimable struct {
	Day    uint64
	Amount *big.Int
}

// Earner is one hall-of-fame row: lifetime settled earnings, descending.
type Earner struct {
	Rank             int
	Player           string
	LifetimeEarnings *big.Int
}

// ClaimRef identifies a claim row independent of its state.
type ClaimRef struct {
	Player string
	Day    uint64
}

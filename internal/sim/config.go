package sim

import (
	"math/big"
	"time"
)

// Config holds configuration for a simulation run
type Config struct {
	Days        int      // Number of full days to simulate
	Players     int      // Number of players in the roster
	Runs        int      // Game runs per player per day
	Workers     int      // Number of concurrent player workers
	EntryFee    *big.Int // Fee charged per entry
	StorePath   string   // SQLite ledger path; empty keeps the ledger in memory
	LogFile     string   // Log file for simulation output
	Verbose     bool     // Enable verbose logging
	TopN        int      // Leaderboard entries to display per day
	ReentryMode bool     // Allow paid re-entries within a day
}

// Stats holds simulation statistics
type Stats struct {
	EntriesRecorded  int
	RunsSubmitted    int
	ScoresImproved   int
	DayHighsSet      int
	ClaimsSettled    int
	ClaimsSkipped    int
	ClaimsFailed     int
	TotalCollected   *big.Int
	TotalClaimed     *big.Int
	DaysVerified     int
	VerificationErrs int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

func newStats() *Stats {
	return &Stats{
		TotalCollected: new(big.Int),
		TotalClaimed:   new(big.Int),
		StartTime:      time.Now(),
	}
}

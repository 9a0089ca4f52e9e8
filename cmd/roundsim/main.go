package main

import (
	"context"
	"flag"
	"math/big"
	"os"
	"runtime"
	"time"

	"github.com/okian/roost/internal/sim"
)

// Default configuration constants.
const (
	defaultDays       = 3
	defaultPlayers    = 50
	defaultRuns       = 10
	defaultTopN       = 10
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultFee        = "2000000000000000"
	defaultSimTimeout = 10 * time.Minute
)

func main() {
	var (
		days      = flag.Int("days", defaultDays, "Number of full days to simulate")
		players   = flag.Int("players", defaultPlayers, "Number of players in the roster")
		runs      = flag.Int("runs", defaultRuns, "Game runs per player per day")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent player workers")
		fee       = flag.String("fee", defaultFee, "Entry fee in the smallest denomination")
		storePath = flag.String("store", "", "SQLite ledger path (default: in-memory)")
		topN      = flag.Int("top", defaultTopN, "Leaderboard entries to display per day")
		reentry   = flag.Bool("reentry", false, "Allow paid re-entries within a day")
		logFile   = flag.String("log", "", "Log file for simulation output (default: sim_log_TIMESTAMP.log)")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		sim.ShowHelp()
		return
	}

	if err := sim.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	feeAmount, ok := new(big.Int).SetString(*fee, 10)
	if !ok || feeAmount.Sign() <= 0 {
		os.Stderr.WriteString("Invalid fee: " + *fee + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultSimTimeout)
	defer cancel()

	config := &sim.Config{
		Days:        *days,
		Players:     *players,
		Runs:        *runs,
		Workers:     *workers,
		EntryFee:    feeAmount,
		StorePath:   *storePath,
		LogFile:     *logFile,
		Verbose:     *verbose,
		TopN:        *topN,
		ReentryMode: *reentry,
	}

	if err := sim.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

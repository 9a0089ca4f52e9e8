package sim

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/roost/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "sim_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the round simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Roost Round Simulator
=====================

Plays full daily rounds against the round engine: paid entries, score
submissions, claims, and invariant checks.

Usage:
  go run cmd/roundsim/main.go [options]

Options:
  -days int
        Number of full days to simulate (default 3)
  -players int
        Number of players in the roster (default 50)
  -runs int
        Game runs per player per day (default 10)
  -workers int
        Number of concurrent player workers (default CPU cores * 2)
  -fee string
        Entry fee in the smallest denomination (default "2000000000000000")
  -store string
        SQLite ledger path (default: in-memory)
  -top int
        Leaderboard entries to display per day (default 10)
  -reentry
        Allow paid re-entries within a day
  -log string
        Log file for simulation output (default: sim_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate three days with defaults
  go run cmd/roundsim/main.go

  # A week with a large roster against a SQLite ledger
  go run cmd/roundsim/main.go -days 7 -players 500 -store roost.db

  # Re-entry economy with verbose output
  go run cmd/roundsim/main.go -reentry -verbose
`)
}

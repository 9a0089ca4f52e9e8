// Package config defines process configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr configures the metrics/health listen address.
	MetricsAddr string `koanf:"metrics_addr"`

	// StorePath points at the SQLite ledger file. Empty selects the
	// in-memory store.
	StorePath string `koanf:"store_path"`

	// EntryFee is the exact per-entry fee in the smallest denomination,
	// as a decimal string. Amounts exceed int64 at token scale.
	EntryFee string `koanf:"entry_fee"`

	// EntriesPolicy is "one" or "unlimited" paid entries per player per day.
	EntriesPolicy string `koanf:"entries_policy"`

	// DayLengthSeconds sets the round length. 86400 for calendar-style days.
	DayLengthSeconds int64 `koanf:"day_length_seconds"`

	// EpochOrigin is the Unix timestamp where day 0 begins.
	EpochOrigin int64 `koanf:"epoch_origin"`

	// MaxLeaderboardLimit caps leaderboard query sizes.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// HallOfFameLimit caps hall of fame query sizes.
	HallOfFameLimit int `koanf:"hall_of_fame_limit"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and is
// currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:            "info",
		MetricsAddr:         ":9090",
		StorePath:           "",
		EntryFee:            "2000000000000000",
		EntriesPolicy:       "one",
		DayLengthSeconds:    86_400,
		EpochOrigin:         0,
		MaxLeaderboardLimit: 100,
		HallOfFameLimit:     50,
	}
}

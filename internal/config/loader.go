package config

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if ROOST_CONFIG is set
//  3. env (prefix ROOST_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("ROOST_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: ROOST_ENTRY_FEE, ROOST_STORE_PATH, ...
	// Map env keys like ROOST_ENTRY_FEE -> entry_fee (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("ROOST_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "roost_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	fee, ok := new(big.Int).SetString(c.EntryFee, 10)
	if !ok || fee.Sign() <= 0 {
		return fmt.Errorf("%w: entry_fee %q is not a positive integer", ErrInvalidConfig, c.EntryFee)
	}
	switch c.EntriesPolicy {
	case "one", "unlimited":
	default:
		return fmt.Errorf("%w: entries_policy %q (want one or unlimited)", ErrInvalidConfig, c.EntriesPolicy)
	}
	if c.DayLengthSeconds <= 0 {
		return fmt.Errorf("%w: day_length_seconds must be positive", ErrInvalidConfig)
	}
	if c.MaxLeaderboardLimit <= 0 || c.HallOfFameLimit <= 0 {
		return fmt.Errorf("%w: query limits must be positive", ErrInvalidConfig)
	}
	if c.MetricsAddr == "" {
		return fmt.Errorf("%w: metrics_addr must not be empty", ErrInvalidConfig)
	}
	return nil
}

// EntryFeeAmount parses the configured fee. Call after Load validated it.
func (c *Config) EntryFeeAmount() *big.Int {
	fee, _ := new(big.Int).SetString(c.EntryFee, 10)
	return fee
}

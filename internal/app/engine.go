// Package engine provides the core round engine: paid daily entries, score
// submissions, rankings and the reward claim flow, wired to a ledger store
// and a bank.
package engine

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/okian/roost/internal/adapters/bank"
	"github.com/okian/roost/internal/adapters/repository"
	"github.com/okian/roost/internal/domain/epoch"
	"github.com/okian/roost/pkg/logger"
	"github.com/okian/roost/pkg/metrics"
)

// EntriesPolicy controls how many paid entries a player may make per day.
type EntriesPolicy string

const (
	// EntriesOne allows a single paid entry per player per day.
	EntriesOne EntriesPolicy = "one"
	// EntriesUnlimited allows re-entry; every entry pays the fee into the
	// pool and the best score is kept across entries.
	EntriesUnlimited EntriesPolicy = "unlimited"
)

// DefaultEntryFee is the fee charged per entry in the smallest denomination.
const DefaultEntryFee = "2000000000000000"

const (
	defaultMaxLeaderboardLimit = 100
	defaultHallOfFameLimit     = 50
	defaultGaugeRefresh        = 15 * time.Second
)

// Engine implements the daily round operations on top of a Store and a Bank.
type Engine struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	bank     bank.Bank
	resolver *epoch.Resolver

	// Configuration
	entryFee            *big.Int
	entriesPolicy       EntriesPolicy
	maxLeaderboardLimit int
	hallOfFameLimit     int
	gaugeRefresh        time.Duration

	// now is swappable for tests and simulations.
	now func() time.Time

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithStore sets the ledger store. Defaults to an in-memory store.
func WithStore(s repository.Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.store = s
		}
	}
}

// WithBank sets the bank used for fee collection and payouts.
func WithBank(b bank.Bank) Option {
	return func(e *Engine) {
		if b != nil {
			e.bank = b
		}
	}
}

// WithResolver sets the epoch resolver mapping wall time to day indexes.
func WithResolver(r *epoch.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithEntryFee sets the exact fee every entry must pay.
func WithEntryFee(fee *big.Int) Option {
	return func(e *Engine) {
		if fee != nil && fee.Sign() > 0 {
			e.entryFee = new(big.Int).Set(fee)
		}
	}
}

// WithEntriesPolicy sets the per-day entry policy.
func WithEntriesPolicy(p EntriesPolicy) Option {
	return func(e *Engine) {
		if p == EntriesOne || p == EntriesUnlimited {
			e.entriesPolicy = p
		}
	}
}

// WithMaxLeaderboardLimit caps the limit accepted by Leaderboard.
func WithMaxLeaderboardLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.maxLeaderboardLimit = limit
		}
	}
}

// WithHallOfFameLimit caps the limit accepted by HallOfFame.
func WithHallOfFameLimit(limit int) Option {
	return func(e *Engine) {
		if limit > 0 {
			e.hallOfFameLimit = limit
		}
	}
}

// WithClock sets the time source. Intended for tests and simulations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithGaugeRefresh sets how often pool and player gauges are refreshed.
func WithGaugeRefresh(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.gaugeRefresh = d
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New constructs a new Engine with default configuration.
func New(opts ...Option) *Engine {
	fee, _ := new(big.Int).SetString(DefaultEntryFee, 10)
	e := &Engine{
		resolver:            epoch.New(),
		entryFee:            fee,
		entriesPolicy:       EntriesOne,
		maxLeaderboardLimit: defaultMaxLeaderboardLimit,
		hallOfFameLimit:     defaultHallOfFameLimit,
		gaugeRefresh:        defaultGaugeRefresh,
		now:                 time.Now,
		stopCh:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start finishes wiring, recovers interrupted claims and launches the gauge
// refresher. Safe to call once; later calls are no-ops.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}
	if e.logger == nil {
		e.logger = logger.Get()
	}
	if e.store == nil {
		e.store = repository.NewMemStore()
		e.logger.Info(ctx, "using in-memory ledger store")
	}
	if e.bank == nil {
		e.bank = bank.NewMemoryBank()
		e.logger.Info(ctx, "using in-memory bank")
	}

	if err := e.recoverPendingClaims(ctx); err != nil {
		return err
	}

	e.wg.Add(1)
	go e.refreshGauges()

	e.started = true
	e.logger.Info(ctx, "round engine started",
		logger.String("entryFee", e.entryFee.String()),
		logger.String("entriesPolicy", string(e.entriesPolicy)),
		logger.Uint64("currentDay", e.resolver.Day(e.now())),
	)
	return nil
}

// Stop shuts the engine down and closes the store.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return
	}
	close(e.stopCh)
	e.wg.Wait()

	if err := e.store.Close(); err != nil {
		e.logger.Error(context.Background(), "closing ledger store", logger.Error(err))
	}
	e.started = false
	e.logger.Info(context.Background(), "round engine stopped")
}

// recoverPendingClaims rolls claims interrupted mid-flight back to
// unclaimed so they can be retried. A claim is only marked settled after
// its credit succeeded, so a pending claim was never paid out.
func (e *Engine) recoverPendingClaims(ctx context.Context) error {
	pending, err := e.store.PendingClaims(ctx)
	if err != nil {
		return err
	}
	for _, ref := range pending {
		if err := e.store.AbortClaim(ctx, ref.Day, ref.Player); err != nil {
			return err
		}
		e.logger.Warn(ctx, "rolled back interrupted claim",
			logger.String("player", ref.Player),
			logger.Uint64("day", ref.Day),
		)
	}
	return nil
}

func (e *Engine) refreshGauges() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.gaugeRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			ctx := context.Background()
			day := e.resolver.Day(e.now())
			if stats, err := e.store.DayStats(ctx, day); err == nil {
				metrics.UpdatePoolAmount(stats.TotalPool)
				metrics.UpdatePlayersToday(stats.TotalPlayers)
			}
			metrics.UpdateTrackedDays(e.store.TrackedDays(ctx))
		}
	}
}

// CurrentDay returns the day index for the engine's current time.
func (e *Engine) CurrentDay() uint64 {
	return e.resolver.Day(e.now())
}

// EntryFee returns a copy of the configured entry fee.
func (e *Engine) EntryFee() *big.Int {
	return new(big.Int).Set(e.entryFee)
}

// DayWindow returns the half-open wall clock window of a day.
func (e *Engine) DayWindow(day uint64) (start, end time.Time) {
	return e.resolver.Window(day)
}

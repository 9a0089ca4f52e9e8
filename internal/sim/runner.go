package sim

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/okian/roost/internal/adapters/bank"
	"github.com/okian/roost/internal/adapters/repository"
	engine "github.com/okian/roost/internal/app"
	"github.com/okian/roost/internal/domain/epoch"
	"github.com/okian/roost/pkg/logger"
)

// simClock is a manually advanced time source shared with the engine.
type simClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newSimClock() *simClock {
	return &simClock{now: time.Unix(0, 0)}
}

func (c *simClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *simClock) AdvanceDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Duration(n) * epoch.DefaultDayLength)
}

// Run executes a complete multi-day simulation against a fresh engine.
func Run(ctx context.Context, config *Config) error {
	stats := newStats()

	logger.Get().Info(ctx, "starting round simulation",
		logger.Int("days", config.Days),
		logger.Int("players", config.Players),
		logger.Int("runs", config.Runs),
		logger.Int("workers", config.Workers),
		logger.String("fee", config.EntryFee.String()),
		logger.String("store", config.StorePath),
		logger.Any("reentry", config.ReentryMode))

	store, err := newStore(config.StorePath)
	if err != nil {
		return fmt.Errorf("building ledger store: %w", err)
	}
	house := bank.NewMemoryBank()
	clock := newSimClock()

	policy := engine.EntriesOne
	if config.ReentryMode {
		policy = engine.EntriesUnlimited
	}
	eng := engine.New(
		engine.WithStore(store),
		engine.WithBank(house),
		engine.WithResolver(epoch.New(epoch.WithOrigin(0))),
		engine.WithClock(clock.Now),
		engine.WithEntryFee(config.EntryFee),
		engine.WithEntriesPolicy(policy),
	)
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("starting engine: %w", err)
	}
	defer eng.Stop()

	roster := newRoster(config.Players)

	// Play each day, closing it by advancing the clock.
	for day := 0; day < config.Days; day++ {
		if err := playDay(ctx, eng, house, config, roster, stats); err != nil {
			return fmt.Errorf("playing day %d: %w", day, err)
		}
		if err := verifyDay(ctx, eng, uint64(day), config, stats); err != nil {
			log.Printf("day %d verification: %v", day, err)
			stats.VerificationErrs++
		}
		stats.DaysVerified++
		displayDay(ctx, eng, uint64(day), config)

		clock.AdvanceDays(1)
	}

	// Every day is closed now; sweep all claims.
	if err := claimSweep(ctx, eng, config, roster, stats); err != nil {
		return fmt.Errorf("claim sweep: %w", err)
	}
	if err := verifyClaims(ctx, eng, roster, stats); err != nil {
		log.Printf("claim verification: %v", err)
		stats.VerificationErrs++
	}

	displayHallOfFame(ctx, eng)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if stats.VerificationErrs > 0 {
		return fmt.Errorf("%d verification failures", stats.VerificationErrs)
	}
	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

func newStore(path string) (repository.Store, error) {
	if path == "" {
		return repository.NewMemStore(), nil
	}
	return repository.NewSQLiteStore(path)
}

// playDay funds, enters and plays every rostered player concurrently.
func playDay(ctx context.Context, eng *engine.Engine, house *bank.MemoryBank, config *Config, roster []player, stats *Stats) error {
	jobs := make(chan player)
	errCh := make(chan error, len(roster))

	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := config.Workers
	if workers > len(roster) {
		workers = len(roster)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				if err := playPlayerDay(ctx, eng, house, config, p, &mu, stats); err != nil {
					errCh <- err
					return
				}
			}
		}()
	}

	for _, p := range roster {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		case jobs <- p:
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func playPlayerDay(ctx context.Context, eng *engine.Engine, house *bank.MemoryBank, config *Config, p player, mu *sync.Mutex, stats *Stats) error {
	house.Mint(p.id, config.EntryFee)
	if _, err := eng.Enter(ctx, p.id, config.EntryFee); err != nil {
		return fmt.Errorf("enter %s: %w", p.id, err)
	}

	mu.Lock()
	stats.EntriesRecorded++
	stats.TotalCollected.Add(stats.TotalCollected, config.EntryFee)
	mu.Unlock()

	for run := 0; run < config.Runs; run++ {
		sub, err := eng.SubmitScore(ctx, p.id, p.nextScore())
		if err != nil {
			return fmt.Errorf("submit for %s: %w", p.id, err)
		}
		mu.Lock()
		stats.RunsSubmitted++
		if sub.Improved {
			stats.ScoresImproved++
		}
		if sub.NewDayHigh {
			stats.DayHighsSet++
		}
		mu.Unlock()
	}
	return nil
}

// claimSweep runs ClaimAllRewards for every player concurrently.
func claimSweep(ctx context.Context, eng *engine.Engine, config *Config, roster []player, stats *Stats) error {
	jobs := make(chan player)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := config.Workers
	if workers > len(roster) {
		workers = len(roster)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				res, err := eng.ClaimAllRewards(ctx, p.id)
				mu.Lock()
				if err != nil {
					stats.ClaimsFailed++
				}
				if len(res.Claimed) == 0 && err == nil {
					stats.ClaimsSkipped++
				}
				stats.ClaimsSettled += len(res.Claimed)
				if res.Total != nil {
					stats.TotalClaimed.Add(stats.TotalClaimed, res.Total)
				}
				mu.Unlock()
			}
		}()
	}

	for _, p := range roster {
		jobs <- p
	}
	close(jobs)
	wg.Wait()
	return nil
}

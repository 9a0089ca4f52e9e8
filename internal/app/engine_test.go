package engine_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/okian/roost/internal/adapters/bank"
	"github.com/okian/roost/internal/adapters/repository"
	engine "github.com/okian/roost/internal/app"
	"github.com/okian/roost/internal/domain/epoch"
	"github.com/okian/roost/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// flakyBank fails the next failCredits credit calls, then behaves normally.
type flakyBank struct {
	*bank.MemoryBank
	failCredits int
}

func (f *flakyBank) Credit(ctx context.Context, player string, amount *big.Int) (bank.Receipt, error) {
	if f.failCredits > 0 {
		f.failCredits--
		return "", errors.New("payment rail down")
	}
	return f.MemoryBank.Credit(ctx, player, amount)
}

// testClock is a manually advanced time source starting inside day 0.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_000, 0)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) AdvanceDays(n int) {
	c.now = c.now.Add(time.Duration(n) * epoch.DefaultDayLength)
}

func newTestEngine(t *testing.T, b bank.Bank, opts ...engine.Option) *engine.Engine {
	t.Helper()
	clock := newTestClock()
	base := []engine.Option{
		engine.WithStore(repository.NewMemStore()),
		engine.WithBank(b),
		engine.WithResolver(epoch.New(epoch.WithOrigin(0))),
		engine.WithClock(clock.Now),
		engine.WithEntryFee(big.NewInt(100)),
	}
	e := engine.New(append(base, opts...)...)
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("start engine: %v", err)
	}
	t.Cleanup(e.Stop)
	return e
}

// playDay funds and enters the given players and submits one score each.
func playDay(ctx context.Context, e *engine.Engine, b *bank.MemoryBank, scores map[string]uint64) {
	for player, score := range scores {
		b.Mint(player, big.NewInt(100))
		if _, err := e.Enter(ctx, player, big.NewInt(100)); err != nil {
			panic(err)
		}
		if _, err := e.SubmitScore(ctx, player, score); err != nil {
			panic(err)
		}
	}
}

func TestEngine_Enter(t *testing.T) {
	Convey("Given a started engine", t, func() {
		ctx := context.Background()
		b := bank.NewMemoryBank()
		clock := newTestClock()
		e := engine.New(
			engine.WithStore(repository.NewMemStore()),
			engine.WithBank(b),
			engine.WithResolver(epoch.New(epoch.WithOrigin(0))),
			engine.WithClock(clock.Now),
			engine.WithEntryFee(big.NewInt(100)),
		)
		So(e.Start(ctx), ShouldBeNil)
		defer e.Stop()

		b.Mint("alice", big.NewInt(250))

		Convey("When entering with the wrong fee", func() {
			_, err := e.Enter(ctx, "alice", big.NewInt(99))

			Convey("Then it fails with ErrInvalidFeeAmount and charges nothing", func() {
				So(errors.Is(err, engine.ErrInvalidFeeAmount), ShouldBeTrue)
				balance, _ := b.Balance(ctx, "alice")
				So(balance.Int64(), ShouldEqual, 250)
			})
		})

		Convey("When entering with a nil fee", func() {
			_, err := e.Enter(ctx, "alice", nil)
			So(errors.Is(err, engine.ErrInvalidFeeAmount), ShouldBeTrue)
		})

		Convey("When the player cannot afford the fee", func() {
			_, err := e.Enter(ctx, "broke", big.NewInt(100))

			Convey("Then it fails with ErrTransferFailed", func() {
				So(errors.Is(err, engine.ErrTransferFailed), ShouldBeTrue)
			})
		})

		Convey("When entering with the exact fee", func() {
			res, err := e.Enter(ctx, "alice", big.NewInt(100))

			Convey("Then the fee lands in today's pool", func() {
				So(err, ShouldBeNil)
				So(res.Day, ShouldEqual, 0)
				So(res.FirstEntry, ShouldBeTrue)
				So(res.Pool.Int64(), ShouldEqual, 100)
				So(res.TotalPlayers, ShouldEqual, 1)

				balance, _ := b.Balance(ctx, "alice")
				So(balance.Int64(), ShouldEqual, 150)
			})

			Convey("And entering again is rejected with the fee refunded", func() {
				_, err := e.Enter(ctx, "alice", big.NewInt(100))
				So(errors.Is(err, engine.ErrAlreadyEntered), ShouldBeTrue)

				balance, _ := b.Balance(ctx, "alice")
				So(balance.Int64(), ShouldEqual, 150)

				pool, _ := e.CurrentPool(ctx)
				So(pool.Int64(), ShouldEqual, 100)
			})

			Convey("And HasEntered reports the entry", func() {
				entered, err := e.HasEntered(ctx, 0, "alice")
				So(err, ShouldBeNil)
				So(entered, ShouldBeTrue)

				entered, err = e.HasEntered(ctx, 0, "bob")
				So(err, ShouldBeNil)
				So(entered, ShouldBeFalse)
			})
		})
	})

	Convey("Given an engine with the unlimited entries policy", t, func() {
		ctx := context.Background()
		b := bank.NewMemoryBank()
		e := newTestEngine(t, b, engine.WithEntriesPolicy(engine.EntriesUnlimited))
		b.Mint("alice", big.NewInt(300))

		_, err := e.Enter(ctx, "alice", big.NewInt(100))
		So(err, ShouldBeNil)

		Convey("When the player re-enters", func() {
			res, err := e.Enter(ctx, "alice", big.NewInt(100))

			Convey("Then the fee grows the pool and the player count holds", func() {
				So(err, ShouldBeNil)
				So(res.FirstEntry, ShouldBeFalse)
				So(res.Pool.Int64(), ShouldEqual, 200)
				So(res.TotalPlayers, ShouldEqual, 1)
			})
		})
	})
}

func TestEngine_SubmitScore(t *testing.T) {
	Convey("Given an entered player", t, func() {
		ctx := context.Background()
		b := bank.NewMemoryBank()
		e := newTestEngine(t, b)
		b.Mint("alice", big.NewInt(100))
		_, err := e.Enter(ctx, "alice", big.NewInt(100))
		So(err, ShouldBeNil)

		Convey("When a non-entrant submits", func() {
			_, err := e.SubmitScore(ctx, "ghost", 10)
			So(errors.Is(err, engine.ErrNotEntered), ShouldBeTrue)
		})

		Convey("When submitting an improving score", func() {
			res, err := e.SubmitScore(ctx, "alice", 42)

			Convey("Then the best score and multiplier update", func() {
				So(err, ShouldBeNil)
				So(res.Improved, ShouldBeTrue)
				So(res.BestScore, ShouldEqual, 42)
				So(res.MultiplierBps, ShouldEqual, 10000+42*400)
				So(res.NewDayHigh, ShouldBeTrue)
			})

			Convey("And a lower score changes nothing", func() {
				res, err := e.SubmitScore(ctx, "alice", 10)
				So(err, ShouldBeNil)
				So(res.Improved, ShouldBeFalse)
				So(res.BestScore, ShouldEqual, 42)

				score, err := e.PlayerScore(ctx, 0, "alice")
				So(err, ShouldBeNil)
				So(score, ShouldEqual, 42)
			})
		})
	})
}

func TestEngine_LeaderboardAndRank(t *testing.T) {
	Convey("Given a day with three scored players", t, func() {
		ctx := context.Background()
		b := bank.NewMemoryBank()
		e := newTestEngine(t, b)

		playDay(ctx, e, b, map[string]uint64{
			"alice": 90, // high scorer
			"bob":   80, // qualifies: threshold floor(90*80/100) = 72
			"carol": 71, // below threshold
		})

		Convey("When reading the leaderboard", func() {
			board, err := e.Leaderboard(ctx, 0, 10)

			Convey("Then entries are valued against the running pool", func() {
				So(err, ShouldBeNil)
				So(len(board), ShouldEqual, 3)

				So(board[0].Player, ShouldEqual, "alice")
				// floor(90*300/90) = 300, x4.6 = 1380, capped to 150.
				So(board[0].Reward.Int64(), ShouldEqual, 150)

				So(board[1].Player, ShouldEqual, "bob")
				// floor(80*300/90) = 266, x4.2 = 1117, capped to 150.
				So(board[1].Reward.Int64(), ShouldEqual, 150)

				So(board[2].Player, ShouldEqual, "carol")
				So(board[2].Reward.Sign(), ShouldEqual, 0)
			})
		})

		Convey("When reading ranks", func() {
			rank, total, err := e.PlayerRank(ctx, 0, "bob")
			So(err, ShouldBeNil)
			So(rank, ShouldEqual, 2)
			So(total, ShouldEqual, 3)
		})

		Convey("When projecting a reward mid-day", func() {
			projected, err := e.ProjectedReward(ctx, "bob")
			So(err, ShouldBeNil)
			So(projected.Int64(), ShouldEqual, 150)

			projected, err = e.ProjectedReward(ctx, "carol")
			So(err, ShouldBeNil)
			So(projected.Sign(), ShouldEqual, 0)
		})
	})
}

func TestEngine_ClaimReward(t *testing.T) {
	Convey("Given a played day", t, func() {
		ctx := context.Background()
		b := bank.NewMemoryBank()
		clock := newTestClock()
		e := engine.New(
			engine.WithStore(repository.NewMemStore()),
			engine.WithBank(b),
			engine.WithResolver(epoch.New(epoch.WithOrigin(0))),
			engine.WithClock(clock.Now),
			engine.WithEntryFee(big.NewInt(100)),
		)
		So(e.Start(ctx), ShouldBeNil)
		defer e.Stop()

		playDay(ctx, e, b, map[string]uint64{
			"alice": 90,
			"bob":   80,
			"carol": 71,
		})

		Convey("When claiming while the day is still open", func() {
			_, err := e.ClaimReward(ctx, "alice", 0)
			So(errors.Is(err, engine.ErrDayNotClosed), ShouldBeTrue)
		})

		Convey("When the day has closed", func() {
			clock.AdvanceDays(1)

			Convey("Then a qualifying player is paid the capped reward", func() {
				res, err := e.ClaimReward(ctx, "alice", 0)
				So(err, ShouldBeNil)
				So(res.Amount.Int64(), ShouldEqual, 150)
				So(res.Receipt, ShouldNotBeEmpty)

				balance, _ := b.Balance(ctx, "alice")
				So(balance.Int64(), ShouldEqual, 150)

				Convey("And claiming again fails with ErrAlreadyClaimed", func() {
					_, err := e.ClaimReward(ctx, "alice", 0)
					So(errors.Is(err, engine.ErrAlreadyClaimed), ShouldBeTrue)

					balance, _ := b.Balance(ctx, "alice")
					So(balance.Int64(), ShouldEqual, 150)
				})

				Convey("And lifetime earnings accumulate", func() {
					total, err := e.LifetimeEarnings(ctx, "alice")
					So(err, ShouldBeNil)
					So(total.Int64(), ShouldEqual, 150)
				})
			})

			Convey("Then a non-qualifier gets ErrNoReward", func() {
				_, err := e.ClaimReward(ctx, "carol", 0)
				So(errors.Is(err, engine.ErrNoReward), ShouldBeTrue)
			})

			Convey("Then a player who never entered gets ErrNotEntered", func() {
				_, err := e.ClaimReward(ctx, "ghost", 0)
				So(errors.Is(err, engine.ErrNotEntered), ShouldBeTrue)
			})
		})
	})
}

func TestEngine_ClaimTransferFailure(t *testing.T) {
	Convey("Given a bank that rejects the next credit", t, func() {
		ctx := context.Background()
		mem := bank.NewMemoryBank()
		flaky := &flakyBank{MemoryBank: mem, failCredits: 1}
		clock := newTestClock()
		e := engine.New(
			engine.WithStore(repository.NewMemStore()),
			engine.WithBank(flaky),
			engine.WithResolver(epoch.New(epoch.WithOrigin(0))),
			engine.WithClock(clock.Now),
			engine.WithEntryFee(big.NewInt(100)),
		)
		So(e.Start(ctx), ShouldBeNil)
		defer e.Stop()

		playDay(ctx, e, mem, map[string]uint64{"alice": 90})
		clock.AdvanceDays(1)

		Convey("When the claim's credit fails", func() {
			_, err := e.ClaimReward(ctx, "alice", 0)

			Convey("Then it fails with ErrTransferFailed and stays claimable", func() {
				So(errors.Is(err, engine.ErrTransferFailed), ShouldBeTrue)

				claimable, err := e.ClaimableRewards(ctx, "alice")
				So(err, ShouldBeNil)
				So(len(claimable), ShouldEqual, 1)
				So(claimable[0].Day, ShouldEqual, 0)

				Convey("And a retry succeeds once the bank recovers", func() {
					res, err := e.ClaimReward(ctx, "alice", 0)
					So(err, ShouldBeNil)
					So(res.Amount.Int64(), ShouldEqual, 50)
				})
			})
		})
	})
}

func TestEngine_ClaimAllRewards(t *testing.T) {
	Convey("Given two closed days with rewards", t, func() {
		ctx := context.Background()
		b := bank.NewMemoryBank()
		clock := newTestClock()
		e := engine.New(
			engine.WithStore(repository.NewMemStore()),
			engine.WithBank(b),
			engine.WithResolver(epoch.New(epoch.WithOrigin(0))),
			engine.WithClock(clock.Now),
			engine.WithEntryFee(big.NewInt(100)),
		)
		So(e.Start(ctx), ShouldBeNil)
		defer e.Stop()

		playDay(ctx, e, b, map[string]uint64{"alice": 90})
		clock.AdvanceDays(1)
		playDay(ctx, e, b, map[string]uint64{"alice": 50})
		clock.AdvanceDays(1)

		Convey("When listing claimable rewards", func() {
			claimable, err := e.ClaimableRewards(ctx, "alice")

			Convey("Then both days appear oldest first", func() {
				So(err, ShouldBeNil)
				So(len(claimable), ShouldEqual, 2)
				So(claimable[0].Day, ShouldEqual, 0)
				// Sole player: capped at half the 100 pool both days.
				So(claimable[0].Amount.Int64(), ShouldEqual, 50)
				So(claimable[1].Day, ShouldEqual, 1)
				So(claimable[1].Amount.Int64(), ShouldEqual, 50)
			})
		})

		Convey("When claiming all", func() {
			res, err := e.ClaimAllRewards(ctx, "alice")

			Convey("Then every day settles and totals add up", func() {
				So(err, ShouldBeNil)
				So(len(res.Claimed), ShouldEqual, 2)
				So(res.Total.Int64(), ShouldEqual, 100)
				So(res.FailedDay, ShouldBeNil)

				claimable, _ := e.ClaimableRewards(ctx, "alice")
				So(len(claimable), ShouldEqual, 0)
			})

			Convey("And a second sweep claims nothing", func() {
				res, err := e.ClaimAllRewards(ctx, "alice")
				So(err, ShouldBeNil)
				So(len(res.Claimed), ShouldEqual, 0)
				So(res.Total.Sign(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bank failing on the second credit", t, func() {
		ctx := context.Background()
		mem := bank.NewMemoryBank()
		flaky := &flakyBank{MemoryBank: mem}
		clock := newTestClock()
		e := engine.New(
			engine.WithStore(repository.NewMemStore()),
			engine.WithBank(flaky),
			engine.WithResolver(epoch.New(epoch.WithOrigin(0))),
			engine.WithClock(clock.Now),
			engine.WithEntryFee(big.NewInt(100)),
		)
		So(e.Start(ctx), ShouldBeNil)
		defer e.Stop()

		playDay(ctx, e, mem, map[string]uint64{"alice": 90})
		clock.AdvanceDays(1)
		playDay(ctx, e, mem, map[string]uint64{"alice": 50})
		clock.AdvanceDays(1)

		Convey("When the sweep hits the failure", func() {
			// First credit (day 0) works, second (day 1) fails.
			flaky.failCredits = 0
			first, err := e.ClaimReward(ctx, "alice", 0)
			So(err, ShouldBeNil)
			So(first.Amount.Int64(), ShouldEqual, 50)

			flaky.failCredits = 1
			res, err := e.ClaimAllRewards(ctx, "alice")

			Convey("Then it stops at the failed day and reports it", func() {
				So(errors.Is(err, engine.ErrTransferFailed), ShouldBeTrue)
				So(len(res.Claimed), ShouldEqual, 0)
				So(res.FailedDay, ShouldNotBeNil)
				So(*res.FailedDay, ShouldEqual, 1)

				claimable, _ := e.ClaimableRewards(ctx, "alice")
				So(len(claimable), ShouldEqual, 1)
				So(claimable[0].Day, ShouldEqual, 1)
			})
		})
	})
}

func TestEngine_PendingClaimRecovery(t *testing.T) {
	Convey("Given a store holding a claim interrupted before settling", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		b := bank.NewMemoryBank()
		clock := newTestClock()

		b.Mint("alice", big.NewInt(100))
		_, err := store.Enter(ctx, 0, "alice", big.NewInt(100), clock.Now().Unix(), false)
		So(err, ShouldBeNil)
		_, err = store.RecordScore(ctx, 0, "alice", 90, 46000)
		So(err, ShouldBeNil)
		So(store.BeginClaim(ctx, 0, "alice"), ShouldBeNil)

		Convey("When the engine starts over that store", func() {
			clock.AdvanceDays(1)
			e := engine.New(
				engine.WithStore(store),
				engine.WithBank(b),
				engine.WithResolver(epoch.New(epoch.WithOrigin(0))),
				engine.WithClock(clock.Now),
				engine.WithEntryFee(big.NewInt(100)),
			)
			So(e.Start(ctx), ShouldBeNil)
			defer e.Stop()

			Convey("Then the claim is rolled back and can settle normally", func() {
				pending, err := store.PendingClaims(ctx)
				So(err, ShouldBeNil)
				So(len(pending), ShouldEqual, 0)

				res, err := e.ClaimReward(ctx, "alice", 0)
				So(err, ShouldBeNil)
				So(res.Amount.Int64(), ShouldEqual, 50)
			})
		})
	})
}

func TestEngine_HallOfFame(t *testing.T) {
	Convey("Given settled claims across players", t, func() {
		ctx := context.Background()
		b := bank.NewMemoryBank()
		clock := newTestClock()
		e := engine.New(
			engine.WithStore(repository.NewMemStore()),
			engine.WithBank(b),
			engine.WithResolver(epoch.New(epoch.WithOrigin(0))),
			engine.WithClock(clock.Now),
			engine.WithEntryFee(big.NewInt(100)),
		)
		So(e.Start(ctx), ShouldBeNil)
		defer e.Stop()

		playDay(ctx, e, b, map[string]uint64{
			"alice": 90,
			"bob":   80,
		})
		clock.AdvanceDays(1)

		_, err := e.ClaimReward(ctx, "alice", 0)
		So(err, ShouldBeNil)
		_, err = e.ClaimReward(ctx, "bob", 0)
		So(err, ShouldBeNil)

		Convey("When reading the hall of fame", func() {
			fame, err := e.HallOfFame(ctx, 10)

			Convey("Then tied earners share a rank", func() {
				So(err, ShouldBeNil)
				So(len(fame), ShouldEqual, 2)
				// Both payouts hit the pool cap, so earnings tie and names
				// break the order.
				So(fame[0].Player, ShouldEqual, "alice")
				So(fame[0].Rank, ShouldEqual, 1)
				So(fame[1].Player, ShouldEqual, "bob")
				So(fame[1].Rank, ShouldEqual, 1)
				So(fame[0].LifetimeEarnings.Cmp(fame[1].LifetimeEarnings), ShouldEqual, 0)
			})
		})
	})
}

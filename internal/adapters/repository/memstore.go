package repository

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/okian/roost/internal/domain/model"
	"github.com/okian/roost/pkg/metrics"
)

// baseMultiplierBps is the 1.0x multiplier recorded before a player's first
// scored run.
const baseMultiplierBps = 10_000

// memRecord is the in-memory per-(player, day) row.
type memRecord struct {
	bestScore     uint64
	multiplierBps uint64
	seq           uint64
	entries       int
	claim         model.ClaimState
	claimedAmount *big.Int
	claimReceipt  string
}

// dayState holds one day's records, aggregates and ranking board.
type dayState struct {
	startTS    int64
	pool       *big.Int
	highScore  uint64
	highScorer string
	records    map[string]*memRecord
	board      dayBoard
	nextSeq    uint64
}

// MemStore is the in-memory Store implementation. A single RWMutex
// serializes all mutations; day closure needs no coordination because it is
// derived from time, never from state.
type MemStore struct {
	mu       sync.RWMutex
	days     map[uint64]*dayState
	earnings map[string]*big.Int
}

// NewMemStore constructs an empty in-memory ledger store.
func NewMemStore() *MemStore {
	return &MemStore{
		days:     make(map[uint64]*dayState),
		earnings: make(map[string]*big.Int),
	}
}

func (s *MemStore) day(day uint64) *dayState {
	ds, ok := s.days[day]
	if !ok {
		ds = &dayState{
			pool:    new(big.Int),
			records: make(map[string]*memRecord),
		}
		s.days[day] = ds
	}
	return ds
}

// Enter implements Store.Enter.
func (s *MemStore) Enter(ctx context.Context, day uint64, player string, fee *big.Int, startTS int64, allowReentry bool) (EnterOutcome, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	ds := s.day(day)
	if ds.startTS == 0 {
		ds.startTS = startTS
	}

	rec, exists := ds.records[player]
	if exists {
		if !allowReentry {
			metrics.RecordErrorByComponent("repository", "already_entered")
			return EnterOutcome{}, ErrAlreadyEntered
		}
		rec.entries++
		ds.pool.Add(ds.pool, fee)
		return EnterOutcome{
			Pool:         new(big.Int).Set(ds.pool),
			FirstEntry:   false,
			TotalPlayers: len(ds.records),
		}, nil
	}

	seq := ds.nextSeq
	ds.nextSeq++
	ds.records[player] = &memRecord{
		multiplierBps: baseMultiplierBps,
		seq:           seq,
		entries:       1,
	}
	ds.board.insert(player, 0, seq)
	ds.pool.Add(ds.pool, fee)

	return EnterOutcome{
		Pool:         new(big.Int).Set(ds.pool),
		FirstEntry:   true,
		TotalPlayers: len(ds.records),
	}, nil
}

// RecordScore implements Store.RecordScore. Lower-or-equal scores are a
// no-op, keeping best scores monotonic.
func (s *MemStore) RecordScore(ctx context.Context, day uint64, player string, score uint64, multiplierBps uint64) (ScoreOutcome, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	ds, ok := s.days[day]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_entered")
		return ScoreOutcome{}, ErrNotEntered
	}
	rec, ok := ds.records[player]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_entered")
		return ScoreOutcome{}, ErrNotEntered
	}

	if score <= rec.bestScore {
		return ScoreOutcome{Improved: false, BestScore: rec.bestScore}, nil
	}

	newSeq := ds.nextSeq
	ds.nextSeq++
	ds.board.reinsert(player, rec.bestScore, rec.seq, score, newSeq)
	rec.bestScore = score
	rec.multiplierBps = multiplierBps
	rec.seq = newSeq

	out := ScoreOutcome{Improved: true, BestScore: score}
	// Strictly-exceeds keeps the earliest submission as high scorer on ties.
	if score > ds.highScore {
		ds.highScore = score
		ds.highScorer = player
		out.NewDayHigh = true
	}
	return out, nil
}

// PlayerRecord implements Store.PlayerRecord.
func (s *MemStore) PlayerRecord(ctx context.Context, day uint64, player string) (model.PlayerDayRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.days[day]
	if !ok {
		return model.PlayerDayRecord{}, ErrNotEntered
	}
	rec, ok := ds.records[player]
	if !ok {
		return model.PlayerDayRecord{}, ErrNotEntered
	}
	return toModelRecord(player, day, rec), nil
}

func toModelRecord(player string, day uint64, rec *memRecord) model.PlayerDayRecord {
	out := model.PlayerDayRecord{
		Player:        player,
		Day:           day,
		BestScore:     rec.bestScore,
		MultiplierBps: rec.multiplierBps,
		Seq:           rec.seq,
		Entries:       rec.entries,
		Claim:         rec.claim,
		ClaimReceipt:  rec.claimReceipt,
	}
	if rec.claimedAmount != nil {
		out.ClaimedAmount = new(big.Int).Set(rec.claimedAmount)
	}
	return out
}

// DayStats implements Store.DayStats.
func (s *MemStore) DayStats(ctx context.Context, day uint64) (model.DayStats, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.days[day]
	if !ok {
		return model.DayStats{Day: day, TotalPool: new(big.Int)}, nil
	}
	return model.DayStats{
		Day:          day,
		HighScore:    ds.highScore,
		HighScorer:   ds.highScorer,
		TotalPool:    new(big.Int).Set(ds.pool),
		TotalPlayers: len(ds.records),
		StartTS:      ds.startTS,
	}, nil
}

// Rank implements Store.Rank in O(log n).
func (s *MemStore) Rank(ctx context.Context, day uint64, player string) (int, int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.days[day]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_entered")
		return 0, 0, ErrNotEntered
	}
	rec, ok := ds.records[player]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_entered")
		return 0, 0, ErrNotEntered
	}

	return ds.board.countGreater(rec.bestScore) + 1, len(ds.records), nil
}

// Leaderboard implements Store.Leaderboard.
func (s *MemStore) Leaderboard(ctx context.Context, day uint64, limit int) ([]model.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ds, ok := s.days[day]
	if !ok {
		return []model.Entry{}, nil
	}

	players := ds.board.top(limit)
	entries := make([]model.Entry, 0, len(players))
	for _, p := range players {
		rec := ds.records[p]
		entries = append(entries, model.Entry{
			Player:        p,
			Score:         rec.bestScore,
			MultiplierBps: rec.multiplierBps,
		})
	}
	assignRanks(entries)
	return entries, nil
}

// UnclaimedDays implements Store.UnclaimedDays.
func (s *MemStore) UnclaimedDays(ctx context.Context, player string, beforeDay uint64) ([]uint64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var days []uint64
	for day, ds := range s.days {
		if day >= beforeDay {
			continue
		}
		if rec, ok := ds.records[player]; ok && rec.claim == model.ClaimNone {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days, nil
}

// BeginClaim implements Store.BeginClaim.
func (s *MemStore) BeginClaim(ctx context.Context, day uint64, player string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.record(day, player)
	if err != nil {
		return err
	}
	if rec.claim != model.ClaimNone {
		metrics.RecordErrorByComponent("repository", "already_claimed")
		return ErrAlreadyClaimed
	}
	rec.claim = model.ClaimPending
	return nil
}

// SettleClaim implements Store.SettleClaim.
func (s *MemStore) SettleClaim(ctx context.Context, day uint64, player string, amount *big.Int, receipt string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.record(day, player)
	if err != nil {
		return err
	}
	if rec.claim != model.ClaimPending {
		metrics.RecordErrorByComponent("repository", "claim_not_pending")
		return ErrClaimNotPending
	}
	rec.claim = model.ClaimSettled
	rec.claimedAmount = new(big.Int).Set(amount)
	rec.claimReceipt = receipt

	total, ok := s.earnings[player]
	if !ok {
		total = new(big.Int)
		s.earnings[player] = total
	}
	total.Add(total, amount)
	return nil
}

// AbortClaim implements Store.AbortClaim.
func (s *MemStore) AbortClaim(ctx context.Context, day uint64, player string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.record(day, player)
	if err != nil {
		return err
	}
	if rec.claim != model.ClaimPending {
		metrics.RecordErrorByComponent("repository", "claim_not_pending")
		return ErrClaimNotPending
	}
	rec.claim = model.ClaimNone
	return nil
}

// PendingClaims implements Store.PendingClaims.
func (s *MemStore) PendingClaims(ctx context.Context) ([]model.ClaimRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var refs []model.ClaimRef
	for day, ds := range s.days {
		for player, rec := range ds.records {
			if rec.claim == model.ClaimPending {
				refs = append(refs, model.ClaimRef{Player: player, Day: day})
			}
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Day != refs[j].Day {
			return refs[i].Day < refs[j].Day
		}
		return refs[i].Player < refs[j].Player
	})
	return refs, nil
}

// LifetimeEarnings implements Store.LifetimeEarnings.
func (s *MemStore) LifetimeEarnings(ctx context.Context, player string) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if total, ok := s.earnings[player]; ok {
		return new(big.Int).Set(total), nil
	}
	return new(big.Int), nil
}

// HallOfFame implements Store.HallOfFame.
func (s *MemStore) HallOfFame(ctx context.Context, limit int) ([]model.Earner, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	earners := make([]model.Earner, 0, len(s.earnings))
	for player, total := range s.earnings {
		earners = append(earners, model.Earner{
			Player:           player,
			LifetimeEarnings: new(big.Int).Set(total),
		})
	}
	sortEarners(earners)
	if len(earners) > limit {
		earners = earners[:limit]
	}
	assignEarnerRanks(earners)
	return earners, nil
}

// TrackedDays implements Store.TrackedDays.
func (s *MemStore) TrackedDays(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.days)
}

// Close implements Store.Close.
func (s *MemStore) Close() error {
	return nil
}

// record returns the mutable row for (player, day). Callers hold s.mu.
func (s *MemStore) record(day uint64, player string) (*memRecord, error) {
	ds, ok := s.days[day]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_entered")
		return nil, ErrNotEntered
	}
	rec, ok := ds.records[player]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_entered")
		return nil, ErrNotEntered
	}
	return rec, nil
}

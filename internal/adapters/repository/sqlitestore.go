package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/okian/roost/internal/domain/model"
	"github.com/okian/roost/pkg/metrics"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on a durable SQLite database. Every mutating
// operation runs in its own transaction, giving the same per-record
// linearization the in-memory store gets from its mutex.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and runs
// migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %w", ErrUnavailable, err)
	}

	// WAL mode for better concurrency between the writer and readers.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("%w: enable WAL mode: %w", ErrUnavailable, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS days (
			day INTEGER PRIMARY KEY,
			start_ts INTEGER NOT NULL DEFAULT 0,
			total_pool TEXT NOT NULL DEFAULT '0',
			total_players INTEGER NOT NULL DEFAULT 0,
			high_score INTEGER NOT NULL DEFAULT 0,
			high_scorer TEXT NOT NULL DEFAULT '',
			next_seq INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			day INTEGER NOT NULL,
			player TEXT NOT NULL,
			best_score INTEGER NOT NULL DEFAULT 0,
			multiplier_bps INTEGER NOT NULL DEFAULT 10000,
			seq INTEGER NOT NULL DEFAULT 0,
			entries INTEGER NOT NULL DEFAULT 0,
			claim_state INTEGER NOT NULL DEFAULT 0,
			claim_amount TEXT NOT NULL DEFAULT '0',
			claim_receipt TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (day, player)
		)`,
		`CREATE TABLE IF NOT EXISTS earnings (
			player TEXT PRIMARY KEY,
			lifetime TEXT NOT NULL DEFAULT '0'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_player_day ON records(player, day)`,
		`CREATE INDEX IF NOT EXISTS idx_records_standing ON records(day, best_score DESC, seq ASC)`,
		`CREATE INDEX IF NOT EXISTS idx_records_claim_state ON records(claim_state)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("%w: migration failed: %w", ErrUnavailable, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%w: corrupt amount %q", ErrUnavailable, raw)
	}
	return amount, nil
}

// Enter implements Store.Enter.
func (s *SQLiteStore) Enter(ctx context.Context, day uint64, player string, fee *big.Int, startTS int64, allowReentry bool) (EnterOutcome, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return EnterOutcome{}, fmt.Errorf("%w: begin tx: %w", ErrUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	// First touch of a day records its start timestamp.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO days (day, start_ts) VALUES (?, ?) ON CONFLICT(day) DO NOTHING`,
		day, startTS); err != nil {
		return EnterOutcome{}, fmt.Errorf("%w: init day: %w", ErrUnavailable, err)
	}

	var entries int
	err = tx.QueryRowContext(ctx,
		`SELECT entries FROM records WHERE day = ? AND player = ?`,
		day, player).Scan(&entries)
	firstEntry := errors.Is(err, sql.ErrNoRows)
	if err != nil && !firstEntry {
		return EnterOutcome{}, fmt.Errorf("%w: read record: %w", ErrUnavailable, err)
	}

	if firstEntry {
		var seq uint64
		if err := tx.QueryRowContext(ctx,
			`SELECT next_seq FROM days WHERE day = ?`, day).Scan(&seq); err != nil {
			return EnterOutcome{}, fmt.Errorf("%w: read day seq: %w", ErrUnavailable, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records (day, player, seq, entries) VALUES (?, ?, ?, 1)`,
			day, player, seq); err != nil {
			return EnterOutcome{}, fmt.Errorf("%w: insert record: %w", ErrUnavailable, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE days SET next_seq = next_seq + 1, total_players = total_players + 1 WHERE day = ?`,
			day); err != nil {
			return EnterOutcome{}, fmt.Errorf("%w: update day: %w", ErrUnavailable, err)
		}
	} else {
		if !allowReentry {
			metrics.RecordErrorByComponent("repository", "already_entered")
			return EnterOutcome{}, ErrAlreadyEntered
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE records SET entries = entries + 1 WHERE day = ? AND player = ?`,
			day, player); err != nil {
			return EnterOutcome{}, fmt.Errorf("%w: update record: %w", ErrUnavailable, err)
		}
	}

	var rawPool string
	var totalPlayers int
	if err := tx.QueryRowContext(ctx,
		`SELECT total_pool, total_players FROM days WHERE day = ?`, day).Scan(&rawPool, &totalPlayers); err != nil {
		return EnterOutcome{}, fmt.Errorf("%w: read pool: %w", ErrUnavailable, err)
	}
	pool, err := parseAmount(rawPool)
	if err != nil {
		return EnterOutcome{}, err
	}
	pool.Add(pool, fee)
	if _, err := tx.ExecContext(ctx,
		`UPDATE days SET total_pool = ? WHERE day = ?`, pool.String(), day); err != nil {
		return EnterOutcome{}, fmt.Errorf("%w: update pool: %w", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return EnterOutcome{}, fmt.Errorf("%w: commit: %w", ErrUnavailable, err)
	}
	return EnterOutcome{Pool: pool, FirstEntry: firstEntry, TotalPlayers: totalPlayers}, nil
}

// RecordScore implements Store.RecordScore.
func (s *SQLiteStore) RecordScore(ctx context.Context, day uint64, player string, score uint64, multiplierBps uint64) (ScoreOutcome, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ScoreOutcome{}, fmt.Errorf("%w: begin tx: %w", ErrUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var best uint64
	err = tx.QueryRowContext(ctx,
		`SELECT best_score FROM records WHERE day = ? AND player = ?`,
		day, player).Scan(&best)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_entered")
		return ScoreOutcome{}, ErrNotEntered
	}
	if err != nil {
		return ScoreOutcome{}, fmt.Errorf("%w: read record: %w", ErrUnavailable, err)
	}

	if score <= best {
		return ScoreOutcome{Improved: false, BestScore: best}, nil
	}

	var seq uint64
	if err := tx.QueryRowContext(ctx,
		`SELECT next_seq FROM days WHERE day = ?`, day).Scan(&seq); err != nil {
		return ScoreOutcome{}, fmt.Errorf("%w: read day seq: %w", ErrUnavailable, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET best_score = ?, multiplier_bps = ?, seq = ? WHERE day = ? AND player = ?`,
		score, multiplierBps, seq, day, player); err != nil {
		return ScoreOutcome{}, fmt.Errorf("%w: update record: %w", ErrUnavailable, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE days SET next_seq = next_seq + 1 WHERE day = ?`, day); err != nil {
		return ScoreOutcome{}, fmt.Errorf("%w: update day seq: %w", ErrUnavailable, err)
	}

	out := ScoreOutcome{Improved: true, BestScore: score}
	var highScore uint64
	if err := tx.QueryRowContext(ctx,
		`SELECT high_score FROM days WHERE day = ?`, day).Scan(&highScore); err != nil {
		return ScoreOutcome{}, fmt.Errorf("%w: read high score: %w", ErrUnavailable, err)
	}
	if score > highScore {
		if _, err := tx.ExecContext(ctx,
			`UPDATE days SET high_score = ?, high_scorer = ? WHERE day = ?`,
			score, player, day); err != nil {
			return ScoreOutcome{}, fmt.Errorf("%w: update high score: %w", ErrUnavailable, err)
		}
		out.NewDayHigh = true
	}

	if err := tx.Commit(); err != nil {
		return ScoreOutcome{}, fmt.Errorf("%w: commit: %w", ErrUnavailable, err)
	}
	return out, nil
}

// PlayerRecord implements Store.PlayerRecord.
func (s *SQLiteStore) PlayerRecord(ctx context.Context, day uint64, player string) (model.PlayerDayRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	var (
		rec     model.PlayerDayRecord
		state   int
		rawAmt  string
		receipt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT best_score, multiplier_bps, seq, entries, claim_state, claim_amount, claim_receipt
		 FROM records WHERE day = ? AND player = ?`, day, player).
		Scan(&rec.BestScore, &rec.MultiplierBps, &rec.Seq, &rec.Entries, &state, &rawAmt, &receipt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlayerDayRecord{}, ErrNotEntered
	}
	if err != nil {
		return model.PlayerDayRecord{}, fmt.Errorf("%w: read record: %w", ErrUnavailable, err)
	}

	rec.Player = player
	rec.Day = day
	rec.Claim = model.ClaimState(state)
	rec.ClaimReceipt = receipt
	if rec.Claim == model.ClaimSettled {
		amount, err := parseAmount(rawAmt)
		if err != nil {
			return model.PlayerDayRecord{}, err
		}
		rec.ClaimedAmount = amount
	}
	return rec, nil
}

// DayStats implements Store.DayStats.
func (s *SQLiteStore) DayStats(ctx context.Context, day uint64) (model.DayStats, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	var (
		stats   model.DayStats
		rawPool string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT start_ts, total_pool, total_players, high_score, high_scorer FROM days WHERE day = ?`, day).
		Scan(&stats.StartTS, &rawPool, &stats.TotalPlayers, &stats.HighScore, &stats.HighScorer)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DayStats{Day: day, TotalPool: new(big.Int)}, nil
	}
	if err != nil {
		return model.DayStats{}, fmt.Errorf("%w: read day: %w", ErrUnavailable, err)
	}

	stats.Day = day
	pool, err := parseAmount(rawPool)
	if err != nil {
		return model.DayStats{}, err
	}
	stats.TotalPool = pool
	return stats, nil
}

// Rank implements Store.Rank.
func (s *SQLiteStore) Rank(ctx context.Context, day uint64, player string) (int, int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	var best uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT best_score FROM records WHERE day = ? AND player = ?`, day, player).Scan(&best)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_entered")
		return 0, 0, ErrNotEntered
	}
	if err != nil {
		return 0, 0, fmt.Errorf("%w: read record: %w", ErrUnavailable, err)
	}

	var above, total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE day = ? AND best_score > ?`, day, best).Scan(&above); err != nil {
		return 0, 0, fmt.Errorf("%w: count above: %w", ErrUnavailable, err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT total_players FROM days WHERE day = ?`, day).Scan(&total); err != nil {
		return 0, 0, fmt.Errorf("%w: read day: %w", ErrUnavailable, err)
	}
	return above + 1, total, nil
}

// Leaderboard implements Store.Leaderboard.
func (s *SQLiteStore) Leaderboard(ctx context.Context, day uint64, limit int) ([]model.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT player, best_score, multiplier_bps FROM records
		 WHERE day = ? ORDER BY best_score DESC, seq ASC LIMIT ?`, day, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query leaderboard: %w", ErrUnavailable, err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	entries := make([]model.Entry, 0, limit)
	for rows.Next() {
		var e model.Entry
		if err := rows.Scan(&e.Player, &e.Score, &e.MultiplierBps); err != nil {
			return nil, fmt.Errorf("%w: scan entry: %w", ErrUnavailable, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate leaderboard: %w", ErrUnavailable, err)
	}
	assignRanks(entries)
	return entries, nil
}

// UnclaimedDays implements Store.UnclaimedDays.
func (s *SQLiteStore) UnclaimedDays(ctx context.Context, player string, beforeDay uint64) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day FROM records WHERE player = ? AND day < ? AND claim_state = ? ORDER BY day ASC`,
		player, beforeDay, int(model.ClaimNone))
	if err != nil {
		return nil, fmt.Errorf("%w: query unclaimed: %w", ErrUnavailable, err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var days []uint64
	for rows.Next() {
		var day uint64
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("%w: scan day: %w", ErrUnavailable, err)
		}
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate unclaimed: %w", ErrUnavailable, err)
	}
	return days, nil
}

// BeginClaim implements Store.BeginClaim.
func (s *SQLiteStore) BeginClaim(ctx context.Context, day uint64, player string) error {
	return s.transitionClaim(ctx, day, player, model.ClaimNone, model.ClaimPending, ErrAlreadyClaimed)
}

// AbortClaim implements Store.AbortClaim.
func (s *SQLiteStore) AbortClaim(ctx context.Context, day uint64, player string) error {
	return s.transitionClaim(ctx, day, player, model.ClaimPending, model.ClaimNone, ErrClaimNotPending)
}

// transitionClaim atomically moves a claim from one state to another,
// returning mismatchErr when the row is in any other state.
func (s *SQLiteStore) transitionClaim(ctx context.Context, day uint64, player string, from, to model.ClaimState, mismatchErr error) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", ErrUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var state int
	err = tx.QueryRowContext(ctx,
		`SELECT claim_state FROM records WHERE day = ? AND player = ?`, day, player).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_entered")
		return ErrNotEntered
	}
	if err != nil {
		return fmt.Errorf("%w: read claim state: %w", ErrUnavailable, err)
	}
	if model.ClaimState(state) != from {
		metrics.RecordErrorByComponent("repository", "claim_state")
		return mismatchErr
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET claim_state = ? WHERE day = ? AND player = ?`,
		int(to), day, player); err != nil {
		return fmt.Errorf("%w: update claim state: %w", ErrUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrUnavailable, err)
	}
	return nil
}

// SettleClaim implements Store.SettleClaim.
func (s *SQLiteStore) SettleClaim(ctx context.Context, day uint64, player string, amount *big.Int, receipt string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", ErrUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var state int
	err = tx.QueryRowContext(ctx,
		`SELECT claim_state FROM records WHERE day = ? AND player = ?`, day, player).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_entered")
		return ErrNotEntered
	}
	if err != nil {
		return fmt.Errorf("%w: read claim state: %w", ErrUnavailable, err)
	}
	if model.ClaimState(state) != model.ClaimPending {
		metrics.RecordErrorByComponent("repository", "claim_not_pending")
		return ErrClaimNotPending
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET claim_state = ?, claim_amount = ?, claim_receipt = ? WHERE day = ? AND player = ?`,
		int(model.ClaimSettled), amount.String(), receipt, day, player); err != nil {
		return fmt.Errorf("%w: settle claim: %w", ErrUnavailable, err)
	}

	var rawTotal string
	err = tx.QueryRowContext(ctx,
		`SELECT lifetime FROM earnings WHERE player = ?`, player).Scan(&rawTotal)
	if errors.Is(err, sql.ErrNoRows) {
		rawTotal = "0"
	} else if err != nil {
		return fmt.Errorf("%w: read earnings: %w", ErrUnavailable, err)
	}
	total, err := parseAmount(rawTotal)
	if err != nil {
		return err
	}
	total.Add(total, amount)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO earnings (player, lifetime) VALUES (?, ?)
		 ON CONFLICT(player) DO UPDATE SET lifetime = excluded.lifetime`,
		player, total.String()); err != nil {
		return fmt.Errorf("%w: update earnings: %w", ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrUnavailable, err)
	}
	return nil
}

// PendingClaims implements Store.PendingClaims.
func (s *SQLiteStore) PendingClaims(ctx context.Context) ([]model.ClaimRef, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, player FROM records WHERE claim_state = ? ORDER BY day ASC, player ASC`,
		int(model.ClaimPending))
	if err != nil {
		return nil, fmt.Errorf("%w: query pending claims: %w", ErrUnavailable, err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var refs []model.ClaimRef
	for rows.Next() {
		var ref model.ClaimRef
		if err := rows.Scan(&ref.Day, &ref.Player); err != nil {
			return nil, fmt.Errorf("%w: scan claim ref: %w", ErrUnavailable, err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate pending claims: %w", ErrUnavailable, err)
	}
	return refs, nil
}

// LifetimeEarnings implements Store.LifetimeEarnings.
func (s *SQLiteStore) LifetimeEarnings(ctx context.Context, player string) (*big.Int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT lifetime FROM earnings WHERE player = ?`, player).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read earnings: %w", ErrUnavailable, err)
	}
	return parseAmount(raw)
}

// HallOfFame implements Store.HallOfFame. Amounts are decimal strings of
// varying width, so ordering happens in Go on exact integers.
func (s *SQLiteStore) HallOfFame(ctx context.Context, limit int) ([]model.Earner, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if limit < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, `SELECT player, lifetime FROM earnings`)
	if err != nil {
		return nil, fmt.Errorf("%w: query earnings: %w", ErrUnavailable, err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var earners []model.Earner
	for rows.Next() {
		var (
			player string
			raw    string
		)
		if err := rows.Scan(&player, &raw); err != nil {
			return nil, fmt.Errorf("%w: scan earner: %w", ErrUnavailable, err)
		}
		total, err := parseAmount(raw)
		if err != nil {
			return nil, err
		}
		earners = append(earners, model.Earner{Player: player, LifetimeEarnings: total})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate earnings: %w", ErrUnavailable, err)
	}

	sortEarners(earners)
	if len(earners) > limit {
		earners = earners[:limit]
	}
	assignEarnerRanks(earners)
	return earners, nil
}

// TrackedDays implements Store.TrackedDays.
func (s *SQLiteStore) TrackedDays(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM days`).Scan(&n); err != nil {
		return 0
	}
	return n
}

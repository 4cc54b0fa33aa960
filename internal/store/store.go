// Package store persists session snapshots and player aggregates in SQLite
// so a restarted process resumes every battle mid-round with exact fidelity.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arenaclash/arenaclash/internal/battle"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    status     INTEGER NOT NULL,
    winner     TEXT NOT NULL DEFAULT '',
    state      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);

CREATE TABLE IF NOT EXISTS player_stats (
    owner         TEXT PRIMARY KEY,
    battles       INTEGER NOT NULL DEFAULT 0,
    wins          INTEGER NOT NULL DEFAULT 0,
    losses        INTEGER NOT NULL DEFAULT 0,
    xp            INTEGER NOT NULL DEFAULT 0,
    earnings      INTEGER NOT NULL DEFAULT 0,
    damage_dealt  INTEGER NOT NULL DEFAULT 0,
    damage_taken  INTEGER NOT NULL DEFAULT 0,
    crits         INTEGER NOT NULL DEFAULT 0,
    dodges        INTEGER NOT NULL DEFAULT 0,
    highest_crit  INTEGER NOT NULL DEFAULT 0,
    updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS platform_revenue (
    treasury   TEXT PRIMARY KEY,
    total_fees INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL
);
`

// Store is a SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the store at path and bootstraps the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: bootstrap schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSession upserts one session snapshot.
func (s *Store) SaveSession(ctx context.Context, snap battle.Snapshot) error {
	state, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("store: marshal session %s: %w", snap.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions (id, status, winner, state, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    status = excluded.status,
    winner = excluded.winner,
    state = excluded.state,
    updated_at = excluded.updated_at`,
		snap.ID, int(snap.Status), snap.Winner, string(state), time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: save session %s: %w", snap.ID, err)
	}
	return nil
}

// LoadSession fetches one session snapshot by ID.
func (s *Store) LoadSession(ctx context.Context, id string) (battle.Snapshot, error) {
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM sessions WHERE id = ?`, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return battle.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return battle.Snapshot{}, fmt.Errorf("store: load session %s: %w", id, err)
	}
	var snap battle.Snapshot
	if err := json.Unmarshal([]byte(state), &snap); err != nil {
		return battle.Snapshot{}, fmt.Errorf("store: unmarshal session %s: %w", id, err)
	}
	return snap, nil
}

// ActiveSessions returns every snapshot that has not reached a terminal
// state, for resumption after a restart.
func (s *Store) ActiveSessions(ctx context.Context) ([]battle.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state FROM sessions WHERE status IN (?, ?) ORDER BY id`,
		int(battle.StatusWaitingForPlayers), int(battle.StatusInProgress))
	if err != nil {
		return nil, fmt.Errorf("store: list active sessions: %w", err)
	}
	defer rows.Close()

	var snaps []battle.Snapshot
	for rows.Next() {
		var state string
		if err := rows.Scan(&state); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		var snap battle.Snapshot
		if err := json.Unmarshal([]byte(state), &snap); err != nil {
			return nil, fmt.Errorf("store: unmarshal session: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// PlayerStats is the leaderboard aggregate for one account.
type PlayerStats struct {
	Owner       string
	Battles     uint64
	Wins        uint64
	Losses      uint64
	XP          uint64
	Earnings    uint64
	DamageDealt uint64
	DamageTaken uint64
	Crits       uint64
	Dodges      uint64
	HighestCrit uint64
}

// RecordResult folds one settlement result into the player's aggregates.
func (s *Store) RecordResult(ctx context.Context, res battle.Result) error {
	won := 0
	if res.Recipient == res.Winner {
		won = 1
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO player_stats
    (owner, battles, wins, losses, xp, earnings,
     damage_dealt, damage_taken, crits, dodges, highest_crit, updated_at)
VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(owner) DO UPDATE SET
    battles = battles + 1,
    wins = wins + excluded.wins,
    losses = losses + excluded.losses,
    xp = xp + excluded.xp,
    earnings = earnings + excluded.earnings,
    damage_dealt = damage_dealt + excluded.damage_dealt,
    damage_taken = damage_taken + excluded.damage_taken,
    crits = crits + excluded.crits,
    dodges = dodges + excluded.dodges,
    highest_crit = MAX(highest_crit, excluded.highest_crit),
    updated_at = excluded.updated_at`,
		res.Recipient, won, 1-won, res.XP, uint64(res.Payout),
		res.Stats.DamageDealt, res.Stats.DamageTaken,
		res.Stats.Crits, res.Stats.Dodges, res.Stats.HighestCrit,
		time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: record result for %s: %w", res.Recipient, err)
	}
	return nil
}

// AccrueFee adds a settled platform fee to the treasury's running total.
func (s *Store) AccrueFee(ctx context.Context, treasury string, fee battle.Amount) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO platform_revenue (treasury, total_fees, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(treasury) DO UPDATE SET
    total_fees = total_fees + excluded.total_fees,
    updated_at = excluded.updated_at`,
		treasury, uint64(fee), time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: accrue fee for %s: %w", treasury, err)
	}
	return nil
}

// TopPlayers returns the leaderboard ordered by wins, then XP.
func (s *Store) TopPlayers(ctx context.Context, limit int) ([]PlayerStats, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT owner, battles, wins, losses, xp, earnings,
       damage_dealt, damage_taken, crits, dodges, highest_crit
FROM player_stats ORDER BY wins DESC, xp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: top players: %w", err)
	}
	defer rows.Close()

	var out []PlayerStats
	for rows.Next() {
		var ps PlayerStats
		if err := rows.Scan(&ps.Owner, &ps.Battles, &ps.Wins, &ps.Losses,
			&ps.XP, &ps.Earnings, &ps.DamageDealt, &ps.DamageTaken,
			&ps.Crits, &ps.Dodges, &ps.HighestCrit); err != nil {
			return nil, fmt.Errorf("store: scan player stats: %w", err)
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenaclash/arenaclash/internal/battle"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open("  ")
	assert.Error(t, err)
}

func TestSaveLoadSessionRoundTrip(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()

	snap := battle.Snapshot{
		ID:          "sess-1",
		Coordinator: "coordinator",
		Status:      battle.StatusInProgress,
		Round:       3,
		MaxRounds:   10,
		FeeBPS:      250,
		Treasury:    "treasury",
		Seed:        42,
		DrawCounter: 17,
	}
	require.NoError(t, st.SaveSession(ctx, snap))

	loaded, err := st.LoadSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, loaded.ID)
	assert.Equal(t, snap.Round, loaded.Round)
	assert.Equal(t, snap.Seed, loaded.Seed)
	assert.Equal(t, snap.DrawCounter, loaded.DrawCounter)

	// Upsert replaces the stored state.
	snap.Round = 4
	require.NoError(t, st.SaveSession(ctx, snap))
	loaded, err = st.LoadSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), loaded.Round)
}

func TestLoadSessionNotFound(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	_, err := st.LoadSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveSessionsExcludesTerminal(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveSession(ctx, battle.Snapshot{ID: "a", Status: battle.StatusInProgress}))
	require.NoError(t, st.SaveSession(ctx, battle.Snapshot{ID: "b", Status: battle.StatusCompleted, Winner: "alice"}))
	require.NoError(t, st.SaveSession(ctx, battle.Snapshot{ID: "c", Status: battle.StatusWaitingForPlayers}))

	active, err := st.ActiveSessions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].ID)
	assert.Equal(t, "c", active[1].ID)
}

func TestRecordResultAggregates(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()

	win := battle.Result{
		SessionID: "s1", Recipient: "alice", Winner: "alice", Loser: "bob",
		Payout: 1950, XP: 150,
		Stats: battle.CombatStats{DamageDealt: 120, DamageTaken: 80, Crits: 2, Dodges: 1, HighestCrit: 45},
	}
	require.NoError(t, st.RecordResult(ctx, win))

	loss := battle.Result{
		SessionID: "s2", Recipient: "alice", Winner: "bob", Loser: "alice",
		Payout: 0, XP: 50,
		Stats: battle.CombatStats{DamageDealt: 60, DamageTaken: 130, Crits: 1, HighestCrit: 70},
	}
	require.NoError(t, st.RecordResult(ctx, loss))

	players, err := st.TopPlayers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, players, 1)

	alice := players[0]
	assert.Equal(t, "alice", alice.Owner)
	assert.Equal(t, uint64(2), alice.Battles)
	assert.Equal(t, uint64(1), alice.Wins)
	assert.Equal(t, uint64(1), alice.Losses)
	assert.Equal(t, uint64(200), alice.XP)
	assert.Equal(t, uint64(1950), alice.Earnings)
	assert.Equal(t, uint64(180), alice.DamageDealt)
	assert.Equal(t, uint64(210), alice.DamageTaken)
	assert.Equal(t, uint64(3), alice.Crits)
	assert.Equal(t, uint64(70), alice.HighestCrit, "highest crit keeps the max, not the sum")
}

func TestAccrueFee(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AccrueFee(ctx, "treasury", 50))
	require.NoError(t, st.AccrueFee(ctx, "treasury", 25))

	var total uint64
	err := st.db.QueryRowContext(ctx,
		`SELECT total_fees FROM platform_revenue WHERE treasury = ?`, "treasury").Scan(&total)
	require.NoError(t, err)
	assert.Equal(t, uint64(75), total)
}

func TestTopPlayersOrdering(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()

	for _, res := range []battle.Result{
		{SessionID: "s1", Recipient: "bob", Winner: "bob", Loser: "x", XP: 150},
		{SessionID: "s2", Recipient: "alice", Winner: "alice", Loser: "x", XP: 150},
		{SessionID: "s3", Recipient: "alice", Winner: "alice", Loser: "x", XP: 150},
		{SessionID: "s4", Recipient: "carol", Winner: "x", Loser: "carol", XP: 50},
	} {
		require.NoError(t, st.RecordResult(ctx, res))
	}

	players, err := st.TopPlayers(ctx, 2)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "alice", players[0].Owner)
	assert.Equal(t, "bob", players[1].Owner)
}

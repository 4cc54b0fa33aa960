package server

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arenaclash/arenaclash/internal/battle"
	"github.com/arenaclash/arenaclash/internal/combat"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func testArenas() []ArenaConfig {
	return []ArenaConfig{
		{Name: "bronze", MaxRounds: 10, FeeBPS: 250, Treasury: "treasury", MinStake: 10, MaxStake: 999},
		{Name: "gold", MaxRounds: 10, FeeBPS: 500, Treasury: "treasury", MinStake: 1000, MaxStake: 100000},
	}
}

func testCharacter() combat.CharacterSnapshot {
	return combat.CharacterSnapshot{
		TokenID:   "tok",
		Class:     combat.ClassWarrior,
		Level:     1,
		MaxHP:     500,
		MinDamage: 10,
		MaxDamage: 20,
	}
}

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	logger := quietLogger()
	sessions := NewSessionManager(nil, nil, nil, logger)
	return NewCoordinator(sessions, nil, testArenas(), logger)
}

func TestJoinQueueWaitsForOpponent(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(t)
	position, waiting, err := c.JoinQueue("alice", 100, testCharacter())
	require.NoError(t, err)
	assert.Equal(t, 1, position)
	assert.Equal(t, 1, waiting)
	assert.Equal(t, 1, c.QueueLength())
}

func TestJoinQueueMatchesPair(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(t)
	_, _, err := c.JoinQueue("alice", 100, testCharacter())
	require.NoError(t, err)
	_, _, err = c.JoinQueue("bob", 200, testCharacter())
	require.NoError(t, err)

	assert.Equal(t, 0, c.QueueLength(), "both players should leave the queue on match")

	id, ok := c.sessions.SessionFor("alice")
	require.True(t, ok, "alice should be in a battle")
	id2, ok := c.sessions.SessionFor("bob")
	require.True(t, ok, "bob should be in a battle")
	assert.Equal(t, id, id2)

	snap, err := c.SessionState(id)
	require.NoError(t, err)
	assert.Equal(t, battle.StatusInProgress, snap.Status)
	assert.Equal(t, battle.Amount(300), snap.Parts[0].Stake+snap.Parts[1].Stake)
}

func TestJoinQueueStakesPickDifferentArenas(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(t)
	_, _, err := c.JoinQueue("alice", 100, testCharacter()) // bronze
	require.NoError(t, err)
	_, _, err = c.JoinQueue("bob", 5000, testCharacter()) // gold
	require.NoError(t, err)

	assert.Equal(t, 2, c.QueueLength(), "players in different arenas must not match")
}

func TestJoinQueueRejections(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(t)

	_, _, err := c.JoinQueue("alice", 5, testCharacter())
	assert.Error(t, err, "stake below every arena minimum")

	noHP := testCharacter()
	noHP.MaxHP = 0
	_, _, err = c.JoinQueue("alice", 100, noHP)
	assert.Error(t, err, "character without hit points")

	inverted := testCharacter()
	inverted.MinDamage, inverted.MaxDamage = 30, 10
	_, _, err = c.JoinQueue("alice", 100, inverted)
	assert.Error(t, err, "inverted damage range")

	_, _, err = c.JoinQueue("alice", 100, testCharacter())
	require.NoError(t, err)
	_, _, err = c.JoinQueue("alice", 100, testCharacter())
	assert.Error(t, err, "double queueing")
}

func TestJoinQueueRejectsPlayerInBattle(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(t)
	_, _, err := c.JoinQueue("alice", 100, testCharacter())
	require.NoError(t, err)
	_, _, err = c.JoinQueue("bob", 100, testCharacter())
	require.NoError(t, err)

	_, _, err = c.JoinQueue("alice", 100, testCharacter())
	assert.Error(t, err, "player already mid-battle must not requeue")
}

func TestLeaveQueue(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(t)
	_, _, err := c.JoinQueue("alice", 100, testCharacter())
	require.NoError(t, err)

	c.LeaveQueue("alice")
	assert.Equal(t, 0, c.QueueLength())

	// Leaving while not queued is harmless.
	c.LeaveQueue("alice")

	// And alice can match later as if nothing happened.
	_, _, err = c.JoinQueue("alice", 100, testCharacter())
	require.NoError(t, err)
}

func TestCoordinatorRunsFullBattle(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(t)
	_, _, err := c.JoinQueue("alice", 100, testCharacter())
	require.NoError(t, err)
	_, _, err = c.JoinQueue("bob", 100, testCharacter())
	require.NoError(t, err)

	id, ok := c.sessions.SessionFor("alice")
	require.True(t, ok)

	for round := uint32(1); round <= 10; round++ {
		snap, err := c.SessionState(id)
		require.NoError(t, err)
		if snap.Status != battle.StatusInProgress {
			break
		}
		for slot := uint8(0); slot < battle.TurnSlots; slot++ {
			require.NoError(t, c.SubmitTurn("alice", SubmitTurnData{
				SessionID: id, Round: round, Slot: slot, Stance: "aggressive",
			}))
			require.NoError(t, c.SubmitTurn("bob", SubmitTurnData{
				SessionID: id, Round: round, Slot: slot, Stance: "balanced",
			}))
		}
		snap, err = c.SessionState(id)
		require.NoError(t, err)
		if snap.Status != battle.StatusInProgress {
			break
		}
		require.NoError(t, c.ExecuteRound("alice", id))
		require.NoError(t, c.ExecuteRound("bob", id))
	}

	snap, err := c.SessionState(id)
	require.NoError(t, err)
	assert.Equal(t, battle.StatusCompleted, snap.Status)
	assert.NotEmpty(t, snap.Winner)
	assert.True(t, snap.Settled)
}

func TestSubmitTurnValidatesStance(t *testing.T) {
	t.Parallel()

	c := newTestCoordinator(t)
	err := c.SubmitTurn("alice", SubmitTurnData{SessionID: "x", Round: 1, Stance: "sneaky"})
	assert.Error(t, err)
}

func TestSessionManagerPersistsOnEveryStep(t *testing.T) {
	t.Parallel()

	logger := quietLogger()
	sessions := NewSessionManager(nil, nil, nil, logger)
	sessions.SetNotifier(battle.NopNotifier{})

	arena := testArenas()[0]
	p1 := battle.Seed{Owner: "alice", Home: "bronze", Stake: 100, Character: testCharacter()}
	p2 := battle.Seed{Owner: "bob", Home: "bronze", Stake: 100, Character: testCharacter()}

	id, err := sessions.Create(context.Background(), arena, p1, p2)
	require.NoError(t, err)

	snap, err := sessions.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, battle.StatusInProgress, snap.Status)
	assert.Equal(t, uint32(1), snap.Round)

	// Malformed session IDs are rejected before the registry is consulted.
	_, err = sessions.SubmitTurn(context.Background(), "missing", "alice", 1, 0, "balanced", false)
	assert.ErrorContains(t, err, "invalid session id")

	// Well-formed but unknown IDs error instead of silently dropping input.
	unknown := "0123456789abcdefghjkmnpqrs"
	_, err = sessions.SubmitTurn(context.Background(), unknown, "alice", 1, 0, "balanced", false)
	assert.ErrorContains(t, err, "session not found")
	_, err = sessions.Snapshot(unknown)
	assert.Error(t, err)
}

package server

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/arenaclash/arenaclash/internal/battle"
	"github.com/arenaclash/arenaclash/internal/battlelog"
	"github.com/arenaclash/arenaclash/internal/combat"
	"github.com/arenaclash/arenaclash/internal/sessionid"
	"github.com/arenaclash/arenaclash/internal/store"
)

// CoordinatorOrigin is the origin string sessions accept initialization
// from. Only the in-process coordinator creates sessions, so a single
// well-known name suffices.
const CoordinatorOrigin = "coordinator"

// managedSession pairs a session with the mutex that serializes every
// operation against it. Sessions have no locking of their own.
type managedSession struct {
	mu      sync.Mutex
	session *battle.Session
}

// SessionManager owns the live battle sessions: creation, per-session
// serialization, snapshot persistence after every applied step, battle log
// recording, and resumption after a restart.
type SessionManager struct {
	logger   *log.Logger
	clock    quartz.Clock
	store    *store.Store
	logs     *battlelog.Manager
	notifier battle.Notifier

	mu       sync.RWMutex
	sessions map[string]*managedSession
}

// NewSessionManager constructs an empty session manager. The store and log
// manager may be nil, which disables persistence and battle logs.
func NewSessionManager(st *store.Store, logs *battlelog.Manager, clock quartz.Clock, logger *log.Logger) *SessionManager {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &SessionManager{
		logger:   logger.WithPrefix("sessions"),
		clock:    clock,
		store:    st,
		logs:     logs,
		sessions: make(map[string]*managedSession),
	}
}

// SetNotifier installs the settlement notifier used for sessions created
// afterwards. Set once during startup, before any battle begins.
func (sm *SessionManager) SetNotifier(n battle.Notifier) {
	sm.notifier = n
}

// randomSeed draws a session seed from the OS entropy source. The seed is
// recorded in the snapshot, so the battle itself stays replayable.
func randomSeed() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("draw session seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// Create builds and initializes a session for two matched players under the
// given arena rules. Returns the new session ID.
func (sm *SessionManager) Create(ctx context.Context, arena ArenaConfig, p1, p2 battle.Seed) (string, error) {
	seed, err := randomSeed()
	if err != nil {
		return "", err
	}

	id := sessionid.New()
	session := battle.NewSession(id, battle.Config{
		Coordinator: CoordinatorOrigin,
		MaxRounds:   uint32(arena.MaxRounds),
		Seed:        seed,
		Clock:       sm.clock,
	}, sm.notifier, sm.logger)

	if !session.Initialize(CoordinatorOrigin, p1, p2, uint16(arena.FeeBPS), arena.Treasury) {
		return "", fmt.Errorf("session %s rejected initialization", id)
	}

	ms := &managedSession{session: session}
	sm.mu.Lock()
	sm.sessions[id] = ms
	sm.mu.Unlock()

	if sm.logs != nil {
		sm.logs.Recorder(id).Record(battlelog.Entry{
			Kind:      battlelog.KindInitialized,
			Seed:      seed,
			Seeds:     [2]*battle.Seed{&p1, &p2},
			MaxRounds: uint32(arena.MaxRounds),
			FeeBPS:    uint16(arena.FeeBPS),
		})
	}
	sm.persist(ctx, ms)

	sm.logger.Info("session created", "session", id, "p1", p1.Owner, "p2", p2.Owner, "arena", arena.Name)
	return id, nil
}

// Progress describes what one applied step changed, for outbound pushes.
type Progress struct {
	Snapshot   battle.Snapshot
	NewActions []combat.Action
	NewRounds  []battle.RoundResult
}

// flatActions lists every recorded action in resolution order.
func flatActions(snap battle.Snapshot) []combat.Action {
	var out []combat.Action
	for _, r := range snap.Rounds {
		out = append(out, r.Actions...)
	}
	return append(out, snap.Pending...)
}

func diffProgress(before, after battle.Snapshot) Progress {
	prog := Progress{Snapshot: after}
	all := flatActions(after)
	if seen := len(flatActions(before)); len(all) > seen {
		prog.NewActions = all[seen:]
	}
	if len(after.Rounds) > len(before.Rounds) {
		prog.NewRounds = after.Rounds[len(before.Rounds):]
	}
	return prog
}

// SubmitTurn applies one turn submission under the session lock and
// persists the resulting state.
func (sm *SessionManager) SubmitTurn(ctx context.Context, sessionID, caller string, round uint32, slot uint8, stance string, useSpecial bool) (Progress, error) {
	ms, err := sm.lookup(sessionID)
	if err != nil {
		return Progress{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	before := ms.session.Snapshot()
	ms.session.SubmitTurn(caller, round, slot, stance, useSpecial)
	after := ms.session.Snapshot()

	if sm.logs != nil {
		sm.logs.Recorder(sessionID).Record(battlelog.Entry{
			Kind:    battlelog.KindSubmission,
			Caller:  caller,
			Round:   round,
			Slot:    slot,
			Stance:  stance,
			Special: useSpecial,
		})
	}
	sm.recordProgress(sessionID, ms.session, len(before.Rounds))
	sm.persist(ctx, ms)
	return diffProgress(before, after), nil
}

// ExecuteRound applies one round-ready signal under the session lock and
// persists the resulting state.
func (sm *SessionManager) ExecuteRound(ctx context.Context, sessionID, caller string) (Progress, error) {
	ms, err := sm.lookup(sessionID)
	if err != nil {
		return Progress{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	before := ms.session.Snapshot()
	ms.session.ExecuteRound(caller)
	after := ms.session.Snapshot()

	sm.recordProgress(sessionID, ms.session, len(before.Rounds))
	sm.persist(ctx, ms)
	return diffProgress(before, after), nil
}

// Snapshot returns the session's current serialized state.
func (sm *SessionManager) Snapshot(sessionID string) (battle.Snapshot, error) {
	ms, err := sm.lookup(sessionID)
	if err != nil {
		return battle.Snapshot{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.session.Snapshot(), nil
}

// SessionFor returns the ID of the in-progress session the player belongs
// to, if any.
func (sm *SessionManager) SessionFor(player string) (string, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for id, ms := range sm.sessions {
		ms.mu.Lock()
		active := ms.session.Status() == battle.StatusInProgress
		_, p := participantOf(ms.session, player)
		ms.mu.Unlock()
		if active && p {
			return id, true
		}
	}
	return "", false
}

func participantOf(s *battle.Session, player string) (int, bool) {
	for i, p := range s.Participants() {
		if p != nil && p.Owner() == player {
			return i, true
		}
	}
	return -1, false
}

// Resume restores every non-terminal session from the store after a
// restart. Completed and cancelled sessions stay on disk only.
func (sm *SessionManager) Resume(ctx context.Context) (int, error) {
	if sm.store == nil {
		return 0, nil
	}
	snaps, err := sm.store.ActiveSessions(ctx)
	if err != nil {
		return 0, err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	for _, snap := range snaps {
		session := battle.RestoreSession(snap, battle.Config{
			Coordinator: CoordinatorOrigin,
			Clock:       sm.clock,
		}, sm.notifier, sm.logger)
		sm.sessions[snap.ID] = &managedSession{session: session}
		sm.logger.Info("session resumed", "session", snap.ID,
			"status", snap.Status.String(), "round", snap.Round)
	}
	return len(snaps), nil
}

// recordProgress writes newly closed rounds and the completion record to
// the battle log. Called with the session lock held.
func (sm *SessionManager) recordProgress(sessionID string, session *battle.Session, roundsBefore int) {
	if sm.logs == nil {
		return
	}
	rec := sm.logs.Recorder(sessionID)
	rounds := session.Rounds()
	for i := roundsBefore; i < len(rounds); i++ {
		result := rounds[i]
		rec.Record(battlelog.Entry{Kind: battlelog.KindRound, Round: result.Round, Result: &result})
	}
	if session.Status() == battle.StatusCompleted {
		rec.Record(battlelog.Entry{Kind: battlelog.KindCompleted})
		if err := sm.logs.Remove(sessionID); err != nil {
			sm.logger.Error("final battle log flush failed", "session", sessionID, "error", err)
		}
	}
}

// persist saves the session snapshot. Called with the session lock held.
func (sm *SessionManager) persist(ctx context.Context, ms *managedSession) {
	if sm.store == nil {
		return
	}
	if err := sm.store.SaveSession(ctx, ms.session.Snapshot()); err != nil {
		sm.logger.Error("session persistence failed", "session", ms.session.ID(), "error", err)
	}
}

func (sm *SessionManager) lookup(sessionID string) (*managedSession, error) {
	if err := sessionid.Validate(sessionID); err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	ms, ok := sm.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	return ms, nil
}

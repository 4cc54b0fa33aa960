package battle

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/arenaclash/arenaclash/internal/combat"
	"github.com/arenaclash/arenaclash/internal/randutil"
)

// Status is the lifecycle state of a session. Transitions are monotonic:
// WaitingForPlayers -> InProgress -> Completed or Cancelled, and nothing
// leaves a terminal state.
type Status uint8

const (
	StatusWaitingForPlayers Status = iota
	StatusInProgress
	StatusCompleted
	StatusCancelled
)

// String returns a wire-friendly name for the status.
func (s Status) String() string {
	switch s {
	case StatusWaitingForPlayers:
		return "waiting_for_players"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// DefaultMaxRounds is the round cap applied when the config leaves it zero.
const DefaultMaxRounds = 10

// XP awards attached to the settlement notifications.
const (
	WinnerXP = 150
	LoserXP  = 50
)

// RoundResult is the append-only record of one closed round: the HP
// snapshot of both sides and the actions taken during it.
type RoundResult struct {
	Round   uint32          `json:"round"`
	HP      [2]uint32       `json:"hp"`
	Actions []combat.Action `json:"actions"`
}

// Config carries the per-session knobs fixed at creation time.
type Config struct {
	// Coordinator is the only origin allowed to initialize the session.
	Coordinator string
	// MaxRounds caps the battle length; zero means DefaultMaxRounds.
	MaxRounds uint32
	// Seed feeds the session's deterministic draw source.
	Seed int64
	// Tuning overrides the combat balance; zero value means defaults.
	Tuning *combat.Tuning
	// Clock stamps lifecycle transitions. Tests inject a mock.
	Clock quartz.Clock
}

// Session is one two-party combat encounter. All operations apply
// synchronously and atomically: the hosting layer serializes every call
// against a given session, so there is no locking here. Rejected inputs are
// silent no-ops; callers observe non-acceptance by polling state.
type Session struct {
	id          string
	coordinator string
	maxRounds   uint32
	tuning      combat.Tuning
	clock       quartz.Clock

	status      Status
	round       uint32
	parts       [2]*Participant
	ready       [2]bool
	feeBPS      uint16
	treasury    string
	pending     []combat.Action
	rounds      []RoundResult
	winner      string
	settled     bool
	src         *randutil.Counted
	startedAt   time.Time
	completedAt time.Time

	notifier Notifier
	logger   *log.Logger
}

// NewSession creates an empty session waiting for its initializing message.
func NewSession(id string, cfg Config, notifier Notifier, logger *log.Logger) *Session {
	maxRounds := cfg.MaxRounds
	if maxRounds == 0 {
		maxRounds = DefaultMaxRounds
	}
	tuning := combat.DefaultTuning()
	if cfg.Tuning != nil {
		tuning = *cfg.Tuning
	}
	clock := cfg.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Session{
		id:          id,
		coordinator: cfg.Coordinator,
		maxRounds:   maxRounds,
		tuning:      tuning,
		clock:       clock,
		status:      StatusWaitingForPlayers,
		src:         randutil.NewCounted(cfg.Seed),
		notifier:    notifier,
		logger:      logger.WithPrefix("battle").With("session", id),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Status returns the current lifecycle state.
func (s *Session) Status() Status { return s.status }

// Round returns the current round counter.
func (s *Session) Round() uint32 { return s.round }

// Winner returns the winning owner once the session has completed.
func (s *Session) Winner() string { return s.winner }

// Participants returns both sides, nil before initialization.
func (s *Session) Participants() [2]*Participant { return s.parts }

// Rounds returns the append-only round results recorded so far.
func (s *Session) Rounds() []RoundResult { return s.rounds }

// Initialize binds both participants and starts the battle. Only the
// configured coordinator may initialize, and only once; anything else is a
// hard rejection of the step.
func (s *Session) Initialize(origin string, p1, p2 Seed, feeBPS uint16, treasury string) bool {
	if origin != s.coordinator {
		s.logger.Warn("initialize from unexpected origin rejected", "origin", origin)
		return false
	}
	if s.parts[0] != nil || s.parts[1] != nil {
		return false
	}
	if feeBPS > 10000 {
		feeBPS = 10000
	}
	s.parts[0] = newParticipant(p1)
	s.parts[1] = newParticipant(p2)
	s.feeBPS = feeBPS
	s.treasury = treasury
	s.status = StatusInProgress
	s.round = 1
	s.startedAt = s.clock.Now()
	s.logger.Info("battle initialized",
		"p1", p1.Owner, "p2", p2.Owner,
		"stake", saturatingAdd(p1.Stake, p2.Stake), "fee_bps", feeBPS)
	return true
}

// SubmitTurn buffers one player's intent for a turn slot. When the
// counterpart's submission for the same slot is already present the turn
// executes exactly once. Both submissions then stay in place until the
// round closes, so a consumed slot rejects any further input instead of
// re-executing. Every rejection is a silent no-op.
func (s *Session) SubmitTurn(caller string, round uint32, slot uint8, stanceName string, useSpecial bool) {
	if s.status != StatusInProgress || round != s.round || slot >= TurnSlots {
		return
	}
	stance, ok := combat.ParseStance(stanceName)
	if !ok {
		return
	}
	idx, p := s.participant(caller)
	if p == nil {
		return
	}
	if p.Turns[slot] != nil {
		return // duplicate or already-consumed slot
	}
	p.Turns[slot] = &TurnSubmission{Round: round, Slot: slot, Stance: stance, UseSpecial: useSpecial}

	other := s.parts[1-idx]
	if other.Turns[slot] != nil {
		s.executeTurn(slot)
	}
}

// executeTurn resolves one turn slot: both directions, alive-checks per
// half, all mutation on private copies written back at the end so no
// partial update is ever observable.
func (s *Session) executeTurn(slot uint8) {
	a, b := *s.parts[0], *s.parts[1]
	subA, subB := a.Turns[slot], b.Turns[slot]
	if subA == nil || subB == nil {
		return
	}

	var actions []combat.Action
	if a.Fighter.Alive() && b.Fighter.Alive() {
		actions = append(actions, combat.ExecuteAttack(s.tuning, s.src,
			&a.Fighter, &b.Fighter, subA.Stance, subB.Stance, subA.UseSpecial))
	}
	// A player already at zero HP does not get to attack back.
	if b.Fighter.Alive() && a.Fighter.Alive() {
		actions = append(actions, combat.ExecuteAttack(s.tuning, s.src,
			&b.Fighter, &a.Fighter, subB.Stance, subA.Stance, subB.UseSpecial))
	}

	// The submissions stay buffered as the slot's consumed marker; only
	// closeRound clears them.
	*s.parts[0], *s.parts[1] = a, b
	s.pending = append(s.pending, actions...)

	for _, act := range actions {
		s.logger.Debug("attack resolved",
			"attacker", act.Attacker, "damage", act.Damage,
			"crit", act.Crit, "dodged", act.Dodged, "countered", act.Countered)
	}

	if !s.parts[0].Fighter.Alive() || !s.parts[1].Fighter.Alive() {
		s.complete(s.winnerByKO())
	}
}

// ExecuteRound is the coarser-grained ready signal: each participant calls
// it once per round, and the round closes only when both have signalled.
func (s *Session) ExecuteRound(caller string) {
	if s.status != StatusInProgress {
		return
	}
	idx, p := s.participant(caller)
	if p == nil {
		return
	}
	if s.ready[idx] {
		return // already signalled this round
	}
	s.ready[idx] = true
	if !s.ready[0] || !s.ready[1] {
		return
	}

	s.closeRound()

	p1, p2 := s.parts[0], s.parts[1]
	switch {
	case !p1.Fighter.Alive() || !p2.Fighter.Alive():
		s.complete(s.winnerByKO())
	case s.round >= s.maxRounds:
		s.complete(s.winnerByHP())
	default:
		s.round++
	}
}

// closeRound appends the round record, then resets per-round state.
func (s *Session) closeRound() {
	s.rounds = append(s.rounds, RoundResult{
		Round:   s.round,
		HP:      [2]uint32{s.parts[0].Fighter.HP, s.parts[1].Fighter.HP},
		Actions: s.pending,
	})
	s.pending = nil
	s.parts[0].clearTurns()
	s.parts[1].clearTurns()
	s.ready = [2]bool{}
}

// winnerByKO resolves a knockout. The fixed evaluation order of the two
// turn halves means a double zero deterministically favors the second
// participant, whose retaliation landed last.
func (s *Session) winnerByKO() string {
	if s.parts[0].Fighter.Alive() {
		return s.parts[0].Owner()
	}
	return s.parts[1].Owner()
}

// winnerByHP resolves the round-cap ending: strictly more HP wins; an exact
// tie goes to the lexicographically smaller owner identifier so every
// replica agrees without a coin flip.
func (s *Session) winnerByHP() string {
	p1, p2 := s.parts[0], s.parts[1]
	switch {
	case p1.Fighter.HP > p2.Fighter.HP:
		return p1.Owner()
	case p2.Fighter.HP > p1.Fighter.HP:
		return p2.Owner()
	case p1.Owner() < p2.Owner():
		return p1.Owner()
	default:
		return p2.Owner()
	}
}

// complete moves the session to its terminal state and settles exactly once.
func (s *Session) complete(winner string) {
	if s.status != StatusInProgress {
		return
	}
	s.status = StatusCompleted
	s.winner = winner
	s.completedAt = s.clock.Now()
	if len(s.pending) > 0 {
		// Knockout mid-round: record the final partial round so the
		// settlement stats see every action.
		s.closeRound()
	}
	s.logger.Info("battle completed", "winner", winner, "rounds", s.round)
	s.settle()
}

// participant resolves a caller to their side, or (-1, nil) for strangers.
func (s *Session) participant(owner string) (int, *Participant) {
	for i, p := range s.parts {
		if p != nil && p.Owner() == owner {
			return i, p
		}
	}
	return -1, nil
}

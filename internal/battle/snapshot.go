package battle

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/arenaclash/arenaclash/internal/combat"
	"github.com/arenaclash/arenaclash/internal/randutil"
)

// Snapshot is the full serializable state of a session. A restored snapshot
// resumes mid-round with exact round/turn/HP/cooldown/combo fidelity; no
// already-applied damage is ever re-derived.
type Snapshot struct {
	ID          string          `json:"id"`
	Coordinator string          `json:"coordinator"`
	Status      Status          `json:"status"`
	Round       uint32          `json:"round"`
	MaxRounds   uint32          `json:"max_rounds"`
	FeeBPS      uint16          `json:"fee_bps"`
	Treasury    string          `json:"treasury"`
	Winner      string          `json:"winner,omitempty"`
	Settled     bool            `json:"settled"`
	Seed        int64           `json:"seed"`
	DrawCounter uint64          `json:"draw_counter"`
	Ready       [2]bool         `json:"ready"`
	Parts       [2]*Participant `json:"participants"`
	Pending     []combat.Action `json:"pending"`
	Rounds      []RoundResult   `json:"rounds"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}

// cloneParticipant deep-copies one side so a snapshot never aliases live
// session state.
func cloneParticipant(p *Participant) *Participant {
	if p == nil {
		return nil
	}
	clone := *p
	for i, turn := range p.Turns {
		if turn != nil {
			t := *turn
			clone.Turns[i] = &t
		}
	}
	return &clone
}

func cloneParts(parts [2]*Participant) [2]*Participant {
	return [2]*Participant{cloneParticipant(parts[0]), cloneParticipant(parts[1])}
}

// Snapshot captures the session state for persistence.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:          s.id,
		Coordinator: s.coordinator,
		Status:      s.status,
		Round:       s.round,
		MaxRounds:   s.maxRounds,
		FeeBPS:      s.feeBPS,
		Treasury:    s.treasury,
		Winner:      s.winner,
		Settled:     s.settled,
		Seed:        s.src.Seed(),
		DrawCounter: s.src.Counter(),
		Ready:       s.ready,
		Parts:       cloneParts(s.parts),
		Pending:     append([]combat.Action(nil), s.pending...),
		Rounds:      append([]RoundResult(nil), s.rounds...),
		StartedAt:   s.startedAt,
		CompletedAt: s.completedAt,
	}
}

// RestoreSession rebuilds a session from a snapshot. The draw source is
// repositioned by replaying the recorded counter against the seed, so the
// next draw matches what the pre-restart process would have produced.
func RestoreSession(snap Snapshot, cfg Config, notifier Notifier, logger *log.Logger) *Session {
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
		id:          snap.ID,
		coordinator: snap.Coordinator,
		maxRounds:   snap.MaxRounds,
		tuning:      tuning,
		clock:       clock,
		status:      snap.Status,
		round:       snap.Round,
		parts:       cloneParts(snap.Parts),
		ready:       snap.Ready,
		feeBPS:      snap.FeeBPS,
		treasury:    snap.Treasury,
		pending:     append([]combat.Action(nil), snap.Pending...),
		rounds:      append([]RoundResult(nil), snap.Rounds...),
		winner:      snap.Winner,
		settled:     snap.Settled,
		src:         randutil.RestoreCounted(snap.Seed, snap.DrawCounter),
		startedAt:   snap.StartedAt,
		completedAt: snap.CompletedAt,
		notifier:    notifier,
		logger:      logger.WithPrefix("battle").With("session", snap.ID),
	}
}

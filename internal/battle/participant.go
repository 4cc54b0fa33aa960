package battle

import "github.com/arenaclash/arenaclash/internal/combat"

// Amount is a stake or payout in the platform's smallest currency unit.
type Amount uint64

// saturatingAdd keeps stake math from ever wrapping.
func saturatingAdd(a, b Amount) Amount {
	if sum := a + b; sum >= a {
		return sum
	}
	return ^Amount(0)
}

// TurnSlots is the number of turn slots a participant may fill per round.
const TurnSlots = 3

// TurnSubmission is one player's buffered intent for a turn slot. At most
// one may exist per (participant, slot) in the current round.
type TurnSubmission struct {
	Round      uint32        `json:"round"`
	Slot       uint8         `json:"slot"`
	Stance     combat.Stance `json:"stance"`
	UseSpecial bool          `json:"use_special"`
}

// Participant is one side of a session: the owning account, its home
// session, the stake, the fighter state, and the buffered turns for the
// current round. Created once at initialization, mutated only by executed
// turns, never recreated mid-session.
type Participant struct {
	Home    string                     `json:"home"`
	Stake   Amount                     `json:"stake"`
	Fighter combat.Fighter             `json:"fighter"`
	Turns   [TurnSlots]*TurnSubmission `json:"turns"`
}

// Seed is the caller-provided snapshot a participant is created from.
type Seed struct {
	Owner     string                   `json:"owner"`
	Home      string                   `json:"home"`
	Stake     Amount                   `json:"stake"`
	Character combat.CharacterSnapshot `json:"character"`
}

func newParticipant(seed Seed) *Participant {
	return &Participant{
		Home:    seed.Home,
		Stake:   seed.Stake,
		Fighter: combat.NewFighter(seed.Owner, seed.Character),
	}
}

// Owner returns the participant's account identifier.
func (p *Participant) Owner() string { return p.Fighter.Owner }

// clearTurns drops all buffered submissions, typically at round rollover.
func (p *Participant) clearTurns() {
	for i := range p.Turns {
		p.Turns[i] = nil
	}
}

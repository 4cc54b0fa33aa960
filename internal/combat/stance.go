package combat

import "strings"

// Stance is a per-turn strategic choice that modifies both the damage a
// fighter deals and the damage they take.
type Stance uint8

const (
	StanceBalanced Stance = iota
	StanceAggressive
	StanceDefensive
	StanceBerserker
	StanceCounter

	stanceCount = 5
)

// String returns the wire name of the stance.
func (s Stance) String() string {
	switch s {
	case StanceBalanced:
		return "balanced"
	case StanceAggressive:
		return "aggressive"
	case StanceDefensive:
		return "defensive"
	case StanceBerserker:
		return "berserker"
	case StanceCounter:
		return "counter"
	default:
		return "unknown"
	}
}

// ParseStance maps a wire name to a Stance, ignoring case. Unknown names
// return ok=false; callers treat that as a rejected input rather than an
// error.
func ParseStance(name string) (Stance, bool) {
	switch strings.ToLower(name) {
	case "balanced":
		return StanceBalanced, true
	case "aggressive":
		return StanceAggressive, true
	case "defensive":
		return StanceDefensive, true
	case "berserker":
		return StanceBerserker, true
	case "counter":
		return StanceCounter, true
	default:
		return StanceBalanced, false
	}
}

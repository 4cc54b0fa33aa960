package combat

// Tuning collects the balance constants the pipeline and executor apply.
// Multipliers are fixed-point with the pipeline Scale; chances are basis
// points of 10000. Keeping these as data lets an operator rebalance an arena
// without touching resolution logic.
type Tuning struct {
	// AttackStance scales outgoing damage by the attacker's stance.
	AttackStance [stanceCount]uint64
	// DefenseStance scales incoming damage by the defender's stance.
	DefenseStance [stanceCount]uint64
	// ComboStep divides the combo stack for the per-stack bonus:
	// multiplier = 1 + stack/ComboStep.
	ComboStep uint64
	// ComboCap is the highest the combo stack can climb.
	ComboCap uint8
	// SpecialMultiplier scales damage when a special ability fires.
	SpecialMultiplier uint64
	// SpecialCooldown is the per-class cooldown set when a special fires.
	SpecialCooldown map[CharacterClass]uint8
	// CounterChance is the probability (bps) a Counter-stance defender
	// retaliates after surviving a landed hit.
	CounterChance uint64
	// CounterRatioNum/Den size the retaliation: damage*Num/Den.
	CounterRatioNum uint64
	CounterRatioDen uint64
	// BerserkerSelfDivisor sizes berserker self-damage: damage/divisor.
	BerserkerSelfDivisor uint64
}

// DefaultTuning returns the standard arena balance.
func DefaultTuning() Tuning {
	return Tuning{
		AttackStance: [stanceCount]uint64{
			StanceBalanced:   Scale,
			StanceAggressive: 13 * Scale / 10,
			StanceDefensive:  7 * Scale / 10,
			StanceBerserker:  2 * Scale,
			StanceCounter:    9 * Scale / 10,
		},
		DefenseStance: [stanceCount]uint64{
			StanceBalanced:   Scale,
			StanceAggressive: 15 * Scale / 10,
			StanceDefensive:  5 * Scale / 10,
			StanceBerserker:  Scale,
			StanceCounter:    6 * Scale / 10,
		},
		ComboStep:         20,
		ComboCap:          5,
		SpecialMultiplier: 15 * Scale / 10,
		SpecialCooldown: map[CharacterClass]uint8{
			ClassWarrior:   3,
			ClassAssassin:  3,
			ClassMage:      3,
			ClassTank:      3,
			ClassTrickster: 3,
		},
		CounterChance:        4000,
		CounterRatioNum:      4,
		CounterRatioDen:      10,
		BerserkerSelfDivisor: 4,
	}
}

// CooldownFor returns the special cooldown for a class, defaulting to 3
// ticks when the class has no explicit entry.
func (t Tuning) CooldownFor(class CharacterClass) uint8 {
	if cd, ok := t.SpecialCooldown[class]; ok {
		return cd
	}
	return 3
}

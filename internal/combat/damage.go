package combat

import "math/bits"

// Scale is the fixed-point scale used throughout the damage pipeline.
// Integer-only math keeps resolution byte-identical across replicas; floats
// would drift between architectures.
const Scale = 1_000_000

// Source supplies counted deterministic draws. Each call must consume the
// session's shared draw counter exactly once.
type Source interface {
	Draw(min, max uint64) uint64
}

// Result is the outcome of one pipeline run.
type Result struct {
	Damage uint64
	Crit   bool
	Dodged bool
}

// mulDiv computes a*b/den through a 128-bit intermediate, saturating when
// the quotient would overflow.
func mulDiv(a, b, den uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, den)
	return q
}

func mulFP(a, b uint64) uint64 { return mulDiv(a, b, Scale) }

// ResolveDamage runs the full resolution pipeline for one attack. It is a
// pure function of its inputs plus the counted draws it consumes: base
// damage, then the crit roll, then the dodge roll, always in that order.
func ResolveDamage(
	t Tuning,
	src Source,
	attacker, defender *CharacterSnapshot,
	attackerStance, defenderStance Stance,
	specialUsed bool,
	comboStack uint8,
) Result {
	base := src.Draw(uint64(attacker.MinDamage), uint64(attacker.MaxDamage))
	damage := base * Scale

	// Attack trait, signed bps.
	if attacker.AttackBPS != 0 {
		mod := int64(10000) + int64(attacker.AttackBPS)
		if mod <= 0 {
			damage = 0
		} else {
			damage = mulDiv(damage, uint64(mod), 10000)
		}
	}

	damage = mulFP(damage, t.AttackStance[attackerStance])

	if comboStack > 0 {
		bonus := Scale + uint64(comboStack)*Scale/t.ComboStep
		damage = mulFP(damage, bonus)
	}

	critRoll := src.Draw(0, 9999)
	critChance := uint64(attacker.CritChance)
	if attacker.CritBPS > 0 {
		critChance += uint64(attacker.CritBPS)
	}
	if critChance > 10000 {
		critChance = 10000
	}
	crit := critRoll < critChance
	if crit {
		damage = mulDiv(damage, uint64(attacker.CritMultiplier), 10000)
	}

	if specialUsed {
		damage = mulFP(damage, t.SpecialMultiplier)
	}

	dodgeRoll := src.Draw(0, 9999)
	if dodgeRoll < uint64(defender.DodgeChance) {
		return Result{Damage: 0, Crit: crit, Dodged: true}
	}

	// Flat defense as a percentage reduction. A defense of 100 or more
	// floors the hit at one fixed-point unit instead of zeroing it.
	reduction := uint64(defender.Defense) * Scale / 100
	if reduction < Scale {
		damage = mulFP(damage, Scale-reduction)
	} else {
		damage = Scale
	}

	damage = mulFP(damage, t.DefenseStance[defenderStance])

	// Defense trait, signed bps. A modifier that would zero the hit clamps
	// to the smallest positive fixed-point unit.
	if defender.DefenseBPS != 0 {
		mod := int64(10000) - int64(defender.DefenseBPS)
		if mod > 0 {
			damage = mulDiv(damage, uint64(mod), 10000)
		} else {
			damage = Scale
		}
	}

	final := damage / Scale
	if final == 0 {
		final = 1
	}
	return Result{Damage: final, Crit: crit, Dodged: false}
}

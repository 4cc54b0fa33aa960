package combat

// Action describes one resolved attacker-to-defender exchange.
type Action struct {
	Attacker    string `json:"attacker"`
	Defender    string `json:"defender"`
	Damage      uint64 `json:"damage"`
	Crit        bool   `json:"crit"`
	Dodged      bool   `json:"dodged"`
	Countered   bool   `json:"countered"`
	SpecialUsed bool   `json:"special_used"`
	DefenderHP  uint32 `json:"defender_hp"`
}

// ExecuteAttack runs one directional exchange, mutating both fighters in
// place. Callers that need atomic turn semantics pass private copies and
// write them back once the whole turn has resolved.
//
// Order of effects: special activation, damage resolution, berserker
// self-damage, damage application, combo update, counter retaliation,
// cooldown tick for both fighters.
func ExecuteAttack(
	t Tuning,
	src Source,
	attacker, defender *Fighter,
	attackerStance, defenderStance Stance,
	useSpecial bool,
) Action {
	specialUsed := false
	if useSpecial && attacker.Cooldown == 0 {
		attacker.Cooldown = t.CooldownFor(attacker.Character.Class)
		specialUsed = true
	}

	res := ResolveDamage(t, src, &attacker.Character, &defender.Character,
		attackerStance, defenderStance, specialUsed, attacker.Combo)

	if attackerStance == StanceBerserker && !res.Dodged {
		attacker.takeDamage(res.Damage / t.BerserkerSelfDivisor)
	}

	if !res.Dodged {
		defender.takeDamage(res.Damage)
	}

	// A crit builds the stack even through a dodge; only a dodge against a
	// non-crit (or a capped stack) breaks it.
	if res.Crit {
		if attacker.Combo < t.ComboCap {
			attacker.Combo++
		}
	} else if res.Dodged {
		attacker.Combo = 0
	}

	countered := false
	if defenderStance == StanceCounter && !res.Dodged && defender.Alive() {
		if src.Draw(0, 9999) < t.CounterChance {
			countered = true
			attacker.takeDamage(res.Damage * t.CounterRatioNum / t.CounterRatioDen)
		}
	}

	if attacker.Cooldown > 0 {
		attacker.Cooldown--
	}
	if defender.Cooldown > 0 {
		defender.Cooldown--
	}

	return Action{
		Attacker:    attacker.Owner,
		Defender:    defender.Owner,
		Damage:      res.Damage,
		Crit:        res.Crit,
		Dodged:      res.Dodged,
		Countered:   countered,
		SpecialUsed: specialUsed,
		DefenderHP:  defender.HP,
	}
}

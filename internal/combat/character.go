package combat

// CharacterClass identifies a fighter archetype. It only influences the
// special-ability cooldown here; base stats arrive in the snapshot.
type CharacterClass uint8

const (
	ClassWarrior CharacterClass = iota
	ClassAssassin
	ClassMage
	ClassTank
	ClassTrickster
)

// String returns the wire name of the class.
func (c CharacterClass) String() string {
	switch c {
	case ClassWarrior:
		return "Warrior"
	case ClassAssassin:
		return "Assassin"
	case ClassMage:
		return "Mage"
	case ClassTank:
		return "Tank"
	case ClassTrickster:
		return "Trickster"
	default:
		return "Unknown"
	}
}

// ParseClass maps a wire name to a CharacterClass.
func ParseClass(name string) (CharacterClass, bool) {
	switch name {
	case "Warrior":
		return ClassWarrior, true
	case "Assassin":
		return ClassAssassin, true
	case "Mage":
		return ClassMage, true
	case "Tank":
		return ClassTank, true
	case "Trickster":
		return ClassTrickster, true
	default:
		return ClassWarrior, false
	}
}

// CharacterSnapshot is the immutable stat block a fighter enters a session
// with. Percent-like fields use basis points of 10000 unless noted.
type CharacterSnapshot struct {
	TokenID        string         `json:"token_id"`
	Class          CharacterClass `json:"class"`
	Level          uint32         `json:"level"`
	MaxHP          uint32         `json:"max_hp"`
	MinDamage      uint32         `json:"min_damage"`
	MaxDamage      uint32         `json:"max_damage"`
	CritChance     uint16         `json:"crit_chance"`     // bps
	CritMultiplier uint32         `json:"crit_multiplier"` // bps, 20000 = 2x
	DodgeChance    uint16         `json:"dodge_chance"`    // bps
	Defense        uint32         `json:"defense"`         // flat percent 0-100
	AttackBPS      int16          `json:"attack_bps"`      // signed trait modifier
	DefenseBPS     int16          `json:"defense_bps"`     // signed trait modifier
	CritBPS        int16          `json:"crit_bps"`        // signed trait modifier
}

// Fighter is the mutable combat state the executor operates on. It is owned
// exclusively by one session and only ever mutated through ExecuteAttack.
type Fighter struct {
	Owner     string            `json:"owner"`
	Character CharacterSnapshot `json:"character"`
	HP        uint32            `json:"hp"`
	Combo     uint8             `json:"combo"`
	Cooldown  uint8             `json:"cooldown"`
}

// NewFighter binds a character snapshot to its owner at full health.
func NewFighter(owner string, character CharacterSnapshot) Fighter {
	return Fighter{Owner: owner, Character: character, HP: character.MaxHP}
}

// Alive reports whether the fighter can still act.
func (f *Fighter) Alive() bool { return f.HP > 0 }

// takeDamage applies damage with the HP floor at zero.
func (f *Fighter) takeDamage(damage uint64) {
	if damage >= uint64(f.HP) {
		f.HP = 0
		return
	}
	f.HP -= uint32(damage)
}

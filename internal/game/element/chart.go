package element

// Effectiveness classifies an attack's element matchup.
type Effectiveness int

const (
	// Neutral is the "normal" matchup: no chart relation in either direction.
	Neutral Effectiveness = iota
	SuperEffective
	NotEffective
)

// String returns the wire label of the matchup.
func (e Effectiveness) String() string {
	switch e {
	case SuperEffective:
		return "super"
	case NotEffective:
		return "not_effective"
	default:
		return "normal"
	}
}

// MarshalText encodes the matchup as its wire label.
func (e Effectiveness) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText decodes a wire label. Unknown labels decode as Neutral.
func (e *Effectiveness) UnmarshalText(b []byte) error {
	switch string(b) {
	case "super":
		*e = SuperEffective
	case "not_effective":
		*e = NotEffective
	default:
		*e = Neutral
	}
	return nil
}

// Multiplier returns the damage multiplier applied for the matchup.
//
// Postcondition: Returns 1.5 for SuperEffective, 0.6 for NotEffective, 1.0 otherwise.
func (e Effectiveness) Multiplier() float64 {
	switch e {
	case SuperEffective:
		return 1.5
	case NotEffective:
		return 0.6
	default:
		return 1.0
	}
}

// chart maps each battle element to the elements it is super effective against.
// The relation is asymmetric and not total.
var chart = map[Tag][]Tag{
	Fire:     {Forest, Frost, Bug},
	Tide:     {Fire, Earth, Rock},
	Forest:   {Tide, Earth, Thunder},
	Thunder:  {Tide, Flying},
	Frost:    {Forest, Earth, Dragon, Flying},
	Fighting: {Normal, Rock, Frost, Shadow},
	Earth:    {Fire, Thunder, Poison, Rock},
	Gale:     {Forest, Fighting, Bug},
	Psychic:  {Fighting, Poison},
	Shadow:   {Psychic, Ghost},
	Fairy:    {Fighting, Dragon, Shadow},
}

// StrongAgainst returns a copy of the tags t is super effective against.
// Unknown tags have no relations.
func StrongAgainst(t Tag) []Tag {
	targets := chart[t]
	out := make([]Tag, len(targets))
	copy(out, targets)
	return out
}

func strongAgainst(attacker, defender Tag) bool {
	for _, t := range chart[attacker] {
		if t == defender {
			return true
		}
	}
	return false
}

// EffectivenessOf classifies attacker against defender.
// SuperEffective is checked first, so it wins if a pair were ever listed both ways.
//
// Postcondition: Returns exactly one of SuperEffective, NotEffective, Neutral.
func EffectivenessOf(attacker, defender Tag) Effectiveness {
	switch {
	case strongAgainst(attacker, defender):
		return SuperEffective
	case strongAgainst(defender, attacker):
		return NotEffective
	default:
		return Neutral
	}
}

package combat

import (
	"math"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/dice"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
)

// Damage model constants.
const (
	CritChance     = 0.15
	CritMultiplier = 1.5
	VarianceMin    = 0.85
	VarianceSpan   = 0.30
	PowerScale     = 1.2
	FlatDamage     = 25
	MinDamage      = 1
)

// AttackResult holds the outcome of a single move.
type AttackResult struct {
	// Move is the name of the move used.
	Move string `json:"move"`
	// Missed is true when the accuracy draw failed; every other numeric field is zero then.
	Missed bool `json:"missed"`
	// Damage is the HP the hit deals before clamping to the defender's remaining HP.
	Damage   int  `json:"damage"`
	Critical bool `json:"critical"`
	// Effectiveness is the element matchup. It is reported on misses too.
	Effectiveness element.Effectiveness `json:"effectiveness"`
	// AccuracyRoll is the raw draw in [0, 100).
	AccuracyRoll int `json:"accuracy_roll"`
	// Variance is the multiplier in [0.85, 1.15).
	Variance float64 `json:"variance"`
}

// ResolveAttack computes the outcome of attacker using move against defender.
//
// Draw order is fixed: accuracy (Intn(100)), then variance (Float64), then the
// critical check (Float64). A miss consumes only the accuracy draw.
// Damage: floor((power*attack/max(defense,1)*1.2 + 25) * variance * effectiveness * crit),
// never less than 1 on a hit. Power-0 moves therefore still chip 1 or more HP.
//
// Precondition: src must be non-nil.
// Postcondition: Returns a fully populated AttackResult; no state is mutated.
func ResolveAttack(move character.Move, attacker, defender character.Profile, src dice.Source) AttackResult {
	res := AttackResult{
		Move:          move.Name,
		Effectiveness: element.EffectivenessOf(attacker.Element, defender.Element),
	}

	res.AccuracyRoll = src.Intn(100)
	if res.AccuracyRoll >= move.Accuracy {
		res.Missed = true
		return res
	}

	defense := max(defender.Stats.Defense, 1)
	ratio := float64(attacker.Stats.Attack) / float64(defense)

	res.Variance = VarianceMin + VarianceSpan*src.Float64()
	crit := 1.0
	if src.Float64() < CritChance {
		res.Critical = true
		crit = CritMultiplier
	}

	raw := (float64(move.Power)*ratio*PowerScale + FlatDamage) * res.Variance * res.Effectiveness.Multiplier() * crit
	res.Damage = max(int(math.Floor(raw)), MinDamage)
	return res
}

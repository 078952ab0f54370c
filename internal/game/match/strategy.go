package match

import (
	"context"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/combat"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
)

// StrategyView is what an autopilot sees when asked for a move.
type StrategyView struct {
	Round           int               `json:"round"`
	Self            combat.Player     `json:"self"`
	Opponent        combat.Player     `json:"opponent"`
	SelfProfile     character.Profile `json:"self_profile"`
	OpponentProfile character.Profile `json:"opponent_profile"`
}

// Strategy picks moves for a seat that is not controlled by a person.
//
// ChooseMove runs while the match is locked: it must return quickly and must
// not call back into the Match.
type Strategy interface {
	// ChooseMove returns a zero-based move index. An out-of-range index or an
	// error makes the match fall back to StrongestMove.
	ChooseMove(ctx context.Context, view StrategyView) (int, error)
}

// StrongestMove picks the move with the highest expected damage score
// power * accuracy * effectiveness multiplier. Ties go to the lower index.
type StrongestMove struct{}

// ChooseMove implements Strategy.
//
// Postcondition: Returns an index in [0, len(view.SelfProfile.Moves)), or 0 for an empty list.
func (StrongestMove) ChooseMove(_ context.Context, view StrategyView) (int, error) {
	return strongestMove(view.SelfProfile, view.OpponentProfile), nil
}

func strongestMove(self, opp character.Profile) int {
	mult := element.EffectivenessOf(self.Element, opp.Element).Multiplier()
	best, bestScore := 0, -1.0
	for i, m := range self.Moves {
		score := float64(m.Power) * float64(m.Accuracy) * mult
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

package combat

import "github.com/cory-johannsen/beastbattle/internal/game/character"

// Initiative returns the seat that acts first in a round. The higher speed
// goes first; a tie goes to Player1. No randomness is involved.
//
// Postcondition: Returns Player1 or Player2.
func Initiative(p1, p2 character.Stats) PlayerID {
	if p2.Speed > p1.Speed {
		return Player2
	}
	return Player1
}

// Package combat implements attack resolution and turn order for a two-creature battle.
package combat

import "fmt"

// PlayerID identifies one of the two battle seats.
type PlayerID int

const (
	Player1 PlayerID = 1
	Player2 PlayerID = 2
)

// Valid reports whether id names one of the two seats.
func (id PlayerID) Valid() bool { return id == Player1 || id == Player2 }

// Other returns the opposing seat.
//
// Precondition: id.Valid().
func (id PlayerID) Other() PlayerID {
	if id == Player1 {
		return Player2
	}
	return Player1
}

// Index returns the zero-based slot index for id.
func (id PlayerID) Index() int { return int(id) - 1 }

// String returns "P1" or "P2".
func (id PlayerID) String() string { return fmt.Sprintf("P%d", int(id)) }

// Player is one seat's hit point track.
//
// Invariant: 0 <= CurrentHP <= MaxHP.
type Player struct {
	ID        PlayerID `json:"id"`
	Label     string   `json:"label"`
	CurrentHP int      `json:"current_hp"`
	MaxHP     int      `json:"max_hp"`
}

// NewPlayer returns a player at full health.
//
// Precondition: maxHP > 0.
func NewPlayer(id PlayerID, label string, maxHP int) Player {
	return Player{ID: id, Label: label, CurrentHP: maxHP, MaxHP: maxHP}
}

// ApplyDamage reduces CurrentHP by amount, flooring at zero, and returns the
// HP actually removed.
//
// Precondition: amount must be >= 0.
// Postcondition: 0 <= CurrentHP <= MaxHP.
func (p *Player) ApplyDamage(amount int) int {
	if amount < 0 {
		amount = 0
	}
	before := p.CurrentHP
	p.CurrentHP -= amount
	if p.CurrentHP < 0 {
		p.CurrentHP = 0
	}
	return before - p.CurrentHP
}

// Restore sets both MaxHP and CurrentHP to maxHP.
func (p *Player) Restore(maxHP int) {
	p.MaxHP = maxHP
	p.CurrentHP = maxHP
}

// IsDefeated reports whether the player has no hit points left.
func (p Player) IsDefeated() bool { return p.CurrentHP <= 0 }

// Package character defines the creature profile model and the normalization
// applied at every acquisition boundary.
package character

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/beastbattle/internal/game/element"
)

// MoveCount is the exact number of moves every profile carries after Normalize.
const MoveCount = 3

// Category classifies a move for display. It has no effect on damage.
type Category string

const (
	Physical Category = "physical"
	Special  Category = "special"
	Status   Category = "status"
)

// ParseCategory maps English and Chinese category labels onto a Category.
// Unknown input yields Physical.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "special", "特殊":
		return Special
	case "status", "变化":
		return Status
	default:
		return Physical
	}
}

// Stats holds a creature's base statistics.
type Stats struct {
	HP      int `json:"hp" yaml:"hp"`
	Attack  int `json:"attack" yaml:"attack"`
	Defense int `json:"defense" yaml:"defense"`
	Speed   int `json:"speed" yaml:"speed"`
}

// Move is one selectable attack.
type Move struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Category    Category `json:"category" yaml:"category"`
	// Power is >= 0 after Normalize.
	Power int `json:"power" yaml:"power"`
	// Accuracy is in [0, 100] after Normalize.
	Accuracy int `json:"accuracy" yaml:"accuracy"`
	// VisualHint is opaque to the engine and only used by presentation.
	VisualHint string `json:"visual_hint,omitempty" yaml:"visual_hint,omitempty"`
}

// Profile is a creature acquired for one round. It is treated as immutable once
// committed to a slot.
type Profile struct {
	Species    string      `json:"species" yaml:"species"`
	Title      string      `json:"title" yaml:"title"`
	Element    element.Tag `json:"element" yaml:"element"`
	FlavorText string      `json:"flavor_text,omitempty" yaml:"flavor_text,omitempty"`
	Stats      Stats       `json:"stats" yaml:"stats"`
	Moves      []Move      `json:"moves" yaml:"moves"`
}

// Key identifies a profile for duplicate detection in a gallery.
//
// Postcondition: two profiles with equal title and species return equal keys.
func (p Profile) Key() string {
	return strings.TrimSpace(p.Title) + "\x00" + strings.TrimSpace(p.Species)
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	p.Moves = append([]Move(nil), p.Moves...)
	return p
}

// Validate reports every shape violation of p joined into one error.
// A profile produced by Normalize always validates.
//
// Postcondition: Returns nil iff p is safe to hand to the battle engine.
func (p Profile) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Species) == "" {
		errs = append(errs, errors.New("species must not be empty"))
	}
	if strings.TrimSpace(p.Title) == "" {
		errs = append(errs, errors.New("title must not be empty"))
	}
	if p.Stats.HP < 0 || p.Stats.Attack < 0 || p.Stats.Defense < 0 || p.Stats.Speed < 0 {
		errs = append(errs, errors.New("stats must be non-negative"))
	}
	if len(p.Moves) != MoveCount {
		errs = append(errs, fmt.Errorf("expected %d moves, got %d", MoveCount, len(p.Moves)))
	}
	for i, m := range p.Moves {
		if m.Power < 0 {
			errs = append(errs, fmt.Errorf("move %d: power must be >= 0", i))
		}
		if m.Accuracy < 0 || m.Accuracy > 100 {
			errs = append(errs, fmt.Errorf("move %d: accuracy must be in [0, 100]", i))
		}
	}
	return errors.Join(errs...)
}

package character

import (
	"strings"

	"github.com/cory-johannsen/beastbattle/internal/game/element"
)

// Stat defaults substituted for missing or negative values. Zero is a real
// stat and is kept.
const (
	DefaultHP      = 300
	DefaultAttack  = 50
	DefaultDefense = 50
	DefaultSpeed   = 50
)

// DefaultStats returns the stat block a provider uses for fields its source
// omits.
func DefaultStats() Stats {
	return Stats{HP: DefaultHP, Attack: DefaultAttack, Defense: DefaultDefense, Speed: DefaultSpeed}
}

// FillerMoves returns the documented padding set. Normalize pads a short move
// list by taking entries from this set at the index of the missing slot.
func FillerMoves() []Move {
	return []Move{
		{Name: "Quick Wit", Description: "A desperate idea born of not knowing what to do.", Category: Status, Power: 0, Accuracy: 100, VisualHint: "question mark"},
		{Name: "Salted Fish Jab", Description: "An ordinary attack.", Category: Physical, Power: 40, Accuracy: 100, VisualHint: "fish slap"},
		{Name: "Loud Roar", Description: "Tries to scare the opponent away.", Category: Special, Power: 50, Accuracy: 90, VisualHint: "shout"},
	}
}

// FallbackProfile returns the profile substituted when image generation fails.
//
// Postcondition: the result satisfies Validate.
func FallbackProfile() Profile {
	return Profile{
		Species:    "Unknown Creature",
		Title:      "Mysterious Pixel Beast",
		Element:    element.Normal,
		FlavorText: "Not even the classifier could place it. Surely some higher-dimensional being.",
		Stats:      DefaultStats(),
		Moves: []Move{
			{Name: "Mystery Tackle", Description: "Deals a little damage.", Category: Physical, Power: 40, Accuracy: 100, VisualHint: "mystery hit"},
			{Name: "Data Glitch", Description: "The opponent feels confused.", Category: Status, Power: 0, Accuracy: 100, VisualHint: "glitch"},
			{Name: "Retry", Description: "Attempts to reconnect.", Category: Special, Power: 60, Accuracy: 80, VisualHint: "loading bar"},
		},
	}
}

// Normalize repairs a provider-supplied profile so the battle engine can consume
// it without further checks.
//
// Moves beyond MoveCount are dropped; a short list is padded from FillerMoves
// in order. Move power is floored at 0 and accuracy clamped to [0, 100].
// A negative stat takes its default; zero is kept, so a zero defense still
// reaches the damage clamp. Missing fields are the parser's concern. Element
// labels are canonicalised with element.Parse.
//
// Postcondition: the result satisfies Validate and shares no slices with p.
func Normalize(p Profile) Profile {
	out := p
	out.Species = strings.TrimSpace(p.Species)
	if out.Species == "" {
		out.Species = "Unknown Creature"
	}
	out.Title = strings.TrimSpace(p.Title)
	if out.Title == "" {
		out.Title = out.Species
	}
	out.Element = element.Parse(string(p.Element))
	out.Stats = Stats{
		HP:      orDefault(p.Stats.HP, DefaultHP),
		Attack:  orDefault(p.Stats.Attack, DefaultAttack),
		Defense: orDefault(p.Stats.Defense, DefaultDefense),
		Speed:   orDefault(p.Stats.Speed, DefaultSpeed),
	}

	moves := make([]Move, 0, MoveCount)
	for _, m := range p.Moves {
		if len(moves) == MoveCount {
			break
		}
		moves = append(moves, normalizeMove(m))
	}
	filler := FillerMoves()
	for len(moves) < MoveCount {
		moves = append(moves, filler[len(moves)])
	}
	out.Moves = moves
	return out
}

func normalizeMove(m Move) Move {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		m.Name = "Struggle"
	}
	m.Category = ParseCategory(string(m.Category))
	if m.Power < 0 {
		m.Power = 0
	}
	m.Accuracy = min(max(m.Accuracy, 0), 100)
	return m
}

func orDefault(v, def int) int {
	if v < 0 {
		return def
	}
	return v
}

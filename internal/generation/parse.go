package generation

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
)

// ErrNoJSON is returned when model output holds no parsable JSON object.
var ErrNoJSON = errors.New("response contains no JSON object")

// ParseProfile extracts a profile from free-form model output.
//
// Markdown code fences and any text around the outermost object are ignored.
// Both camelCase and snake_case keys are accepted, moves may use "type" or
// "category", and a move without an accuracy is treated as always hitting.
// Absent stats take character.DefaultStats; an explicit 0 is kept.
//
// Postcondition: on success the returned profile is normalized.
func ParseProfile(text string) (character.Profile, error) {
	raw, ok := extractObject(text)
	if !ok {
		return character.Profile{}, ErrNoJSON
	}
	doc := gjson.Parse(raw)

	p := character.Profile{
		Species:    doc.Get("species").String(),
		Title:      doc.Get("title").String(),
		Element:    element.Parse(doc.Get("element").String()),
		FlavorText: first(doc, "flavorText", "flavor_text", "description").String(),
	}
	def := character.DefaultStats()
	p.Stats = character.Stats{
		HP:      intOr(doc.Get("stats.hp"), def.HP),
		Attack:  intOr(doc.Get("stats.attack"), def.Attack),
		Defense: intOr(doc.Get("stats.defense"), def.Defense),
		Speed:   intOr(doc.Get("stats.speed"), def.Speed),
	}
	doc.Get("moves").ForEach(func(_, mv gjson.Result) bool {
		if !mv.IsObject() {
			return true
		}
		acc := 100
		if a := mv.Get("accuracy"); a.Exists() {
			acc = int(a.Int())
		}
		p.Moves = append(p.Moves, character.Move{
			Name:        mv.Get("name").String(),
			Description: mv.Get("description").String(),
			Category:    character.ParseCategory(first(mv, "type", "category").String()),
			Power:       int(mv.Get("power").Int()),
			Accuracy:    acc,
			VisualHint:  first(mv, "visual_prompt", "visualPrompt", "visual_hint").String(),
		})
		return true
	})
	return character.Normalize(p), nil
}

// intOr returns r as an int, or def when the field is absent or null.
func intOr(r gjson.Result, def int) int {
	if !r.Exists() || r.Type == gjson.Null {
		return def
	}
	return int(r.Int())
}

func first(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func extractObject(text string) (string, bool) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	s = s[start : end+1]
	if !gjson.Valid(s) {
		return "", false
	}
	return s, true
}

// Package element defines battle element tags and the type effectiveness chart.
package element

import "strings"

// Tag identifies a battle element.
type Tag string

// The eleven battle elements a character may carry.
const (
	Fire     Tag = "fire"
	Tide     Tag = "tide"
	Forest   Tag = "forest"
	Thunder  Tag = "thunder"
	Frost    Tag = "frost"
	Fighting Tag = "fighting"
	Earth    Tag = "earth"
	Gale     Tag = "gale"
	Psychic  Tag = "psychic"
	Shadow   Tag = "shadow"
	Fairy    Tag = "fairy"
)

// Target-only tags. They appear on the defending side of the chart but never
// attack with a chart entry of their own.
const (
	Normal Tag = "normal"
	Bug    Tag = "bug"
	Rock   Tag = "rock"
	Flying Tag = "flying"
	Dragon Tag = "dragon"
	Poison Tag = "poison"
	Ghost  Tag = "ghost"
)

// All returns the eleven battle elements in chart order.
func All() []Tag {
	return []Tag{Fire, Tide, Forest, Thunder, Frost, Fighting, Earth, Gale, Psychic, Shadow, Fairy}
}

// Known reports whether t is one of the eleven battle elements.
func (t Tag) Known() bool {
	_, ok := chart[t]
	return ok
}

// String returns the tag value.
func (t Tag) String() string { return string(t) }

// aliases maps the labels generation models commonly return onto tags.
var aliases = map[string]Tag{
	"烈焰": Fire,
	"潮汐": Tide,
	"森罗": Forest,
	"雷霆": Thunder,
	"冰霜": Frost,
	"格斗": Fighting,
	"大地": Earth,
	"疾风": Gale,
	"灵能": Psychic,
	"暗影": Shadow,
	"妖精": Fairy,
	"一般": Normal,
	"虫":  Bug,
	"岩石": Rock,
	"飞行": Flying,
	"龙":  Dragon,
	"毒":  Poison,
	"幽灵": Ghost,

	"water":    Tide,
	"grass":    Forest,
	"electric": Thunder,
	"ice":      Frost,
	"ground":   Earth,
	"wind":     Gale,
	"dark":     Shadow,
}

// Parse maps free-form input onto a Tag. English tag names match case-insensitively
// and the Chinese labels generation models return are accepted. Unrecognised input yields Normal.
func Parse(s string) Tag {
	s = strings.TrimSpace(s)
	if t, ok := aliases[s]; ok {
		return t
	}
	lower := strings.ToLower(s)
	if t, ok := aliases[lower]; ok {
		return t
	}
	t := Tag(lower)
	if t.Known() {
		return t
	}
	switch t {
	case Normal, Bug, Rock, Flying, Dragon, Poison, Ghost:
		return t
	}
	return Normal
}

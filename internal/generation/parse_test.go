package generation_test

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
	"github.com/cory-johannsen/beastbattle/internal/generation"
)

const fencedResponse = "Here is your creature:\n```json\n" + `{
  "species": "Tabby Cat",
  "title": "Ember Whisker",
  "element": "烈焰",
  "flavorText": "Naps on warm stones.",
  "stats": {"hp": 280, "attack": 70, "defense": 40, "speed": 90},
  "moves": [
    {"name": "Cinder Pounce", "description": "A hot leap.", "type": "物理", "power": 55, "accuracy": 95, "visual_prompt": "flaming cat leap"},
    {"name": "Purr Shield", "description": "Calms the air.", "type": "变化", "power": 0, "accuracy": 100, "visual_prompt": "glowing purr"}
  ]
}` + "\n```\nEnjoy!"

func TestParseProfile_FencedChineseLabels(t *testing.T) {
	p, err := generation.ParseProfile(fencedResponse)
	require.NoError(t, err)

	assert.Equal(t, "Tabby Cat", p.Species)
	assert.Equal(t, "Ember Whisker", p.Title)
	assert.Equal(t, element.Fire, p.Element)
	assert.Equal(t, "Naps on warm stones.", p.FlavorText)
	assert.Equal(t, character.Stats{HP: 280, Attack: 70, Defense: 40, Speed: 90}, p.Stats)
	require.Len(t, p.Moves, character.MoveCount)
	assert.Equal(t, character.Physical, p.Moves[0].Category)
	assert.Equal(t, "flaming cat leap", p.Moves[0].VisualHint)
	assert.Equal(t, character.Status, p.Moves[1].Category)
	assert.Equal(t, character.FillerMoves()[2], p.Moves[2])
}

func TestParseProfile_SnakeCaseAndMissingFields(t *testing.T) {
	p, err := generation.ParseProfile(`{"title":"Gust","flavor_text":"Fast.","moves":[{"name":"Zip","category":"special","power":30}]}`)
	require.NoError(t, err)

	assert.Equal(t, "Unknown Creature", p.Species)
	assert.Equal(t, "Fast.", p.FlavorText)
	assert.Equal(t, element.Normal, p.Element)
	assert.Equal(t, character.DefaultHP, p.Stats.HP)
	assert.Equal(t, character.Special, p.Moves[0].Category)
	assert.Equal(t, 100, p.Moves[0].Accuracy)
}

func TestParseProfile_ClampsOutOfRangeMoves(t *testing.T) {
	p, err := generation.ParseProfile(`{"moves":[{"name":"A","power":-5,"accuracy":250},{"name":"B","accuracy":-1},{"name":"C"},{"name":"D"}]}`)
	require.NoError(t, err)

	require.Len(t, p.Moves, character.MoveCount)
	assert.Equal(t, 0, p.Moves[0].Power)
	assert.Equal(t, 100, p.Moves[0].Accuracy)
	assert.Equal(t, 0, p.Moves[1].Accuracy)
	assert.Equal(t, "C", p.Moves[2].Name)
}

func TestParseProfile_KeepsExplicitZeroStats(t *testing.T) {
	p, err := generation.ParseProfile(`{"species":"Slug","stats":{"hp":90,"attack":0,"defense":0,"speed":0}}`)
	require.NoError(t, err)
	assert.Equal(t, character.Stats{HP: 90}, p.Stats)

	p, err = generation.ParseProfile(`{"species":"Slug","stats":{"speed":0,"defense":null}}`)
	require.NoError(t, err)
	assert.Equal(t, character.Stats{
		HP:      character.DefaultHP,
		Attack:  character.DefaultAttack,
		Defense: character.DefaultDefense,
		Speed:   0,
	}, p.Stats)
}

func TestParseProfile_RejectsNonJSON(t *testing.T) {
	for _, in := range []string{"", "no json here", "{not: valid", "} backwards {"} {
		_, err := generation.ParseProfile(in)
		assert.ErrorIs(t, err, generation.ErrNoJSON, "input %q", in)
	}
}

func TestPropertyParseProfileAlwaysNormalized(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(t, "moves")
		body := `{"species":"x","moves":[`
		for i := 0; i < n; i++ {
			if i > 0 {
				body += ","
			}
			body += `{"name":"m","power":` + strconv.Itoa(rapid.IntRange(-500, 500).Draw(t, "power")) +
				`,"accuracy":` + strconv.Itoa(rapid.IntRange(-500, 500).Draw(t, "acc")) + `}`
		}
		body += `]}`
		p, err := generation.ParseProfile(body)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if err := p.Validate(); err != nil {
			t.Fatalf("invalid profile: %v", err)
		}
	})
}

package scripting_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/combat"
	"github.com/cory-johannsen/beastbattle/internal/game/dice"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
	"github.com/cory-johannsen/beastbattle/internal/scripting"
)

const highestMultiplier = `
function choose_move(state)
  local best, score = 1, -1
  for i, m in ipairs(state.self.moves) do
    local s = m.power * m.accuracy * m.multiplier
    if s > score then best, score = i, s end
  end
  return best
end
`

func emberFox() character.Profile {
	return character.Profile{
		Species: "Fox", Title: "Ember Fox", Element: element.Fire,
		Stats: character.Stats{HP: 300, Attack: 100, Defense: 50, Speed: 60},
		Moves: []character.Move{
			{Name: "Flame Bite", Category: character.Physical, Power: 50, Accuracy: 100},
			{Name: "Smoke Veil", Category: character.Status, Power: 0, Accuracy: 100},
			{Name: "Inferno", Category: character.Special, Power: 90, Accuracy: 70},
		},
	}
}

func mossGolem() character.Profile {
	return character.Profile{
		Species: "Moss", Title: "Moss Golem", Element: element.Forest,
		Stats: character.Stats{HP: 300, Attack: 50, Defense: 50, Speed: 40},
		Moves: []character.Move{
			{Name: "Vine Lash", Category: character.Physical, Power: 50, Accuracy: 100},
			{Name: "Root Bind", Category: character.Status, Power: 0, Accuracy: 100},
		},
	}
}

func view() match.StrategyView {
	return match.StrategyView{
		Round:           2,
		Self:            combat.Player{ID: combat.Player1, Label: "P1", CurrentHP: 120, MaxHP: 300},
		Opponent:        combat.Player{ID: combat.Player2, Label: "P2", CurrentHP: 80, MaxHP: 300},
		SelfProfile:     emberFox(),
		OpponentProfile: mossGolem(),
	}
}

func newStrategy(t *testing.T, src string, limit int) *scripting.LuaStrategy {
	t.Helper()
	s, err := scripting.NewLuaStrategy("test.lua", src, limit, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestLuaStrategy_PicksHighestScore(t *testing.T) {
	s := newStrategy(t, highestMultiplier, 0)
	idx, err := s.ChooseMove(context.Background(), view())
	require.NoError(t, err)
	// 90*70 beats 50*100
	assert.Equal(t, 2, idx)
}

func TestLuaStrategy_SeesBattleState(t *testing.T) {
	s := newStrategy(t, `
function choose_move(state)
  assert(state.round == 2)
  assert(state.self.hp == 120 and state.self.max_hp == 300)
  assert(state.opponent.hp == 80)
  assert(state.self.element == "fire")
  assert(state.opponent.element == "forest")
  assert(state.self.stats.speed == 60)
  assert(state.self.moves[1].name == "Flame Bite")
  assert(state.self.moves[2].category == "status")
  assert(state.self.moves[1].multiplier == 1.5)
  assert(state.opponent.moves[1].multiplier == nil)
  assert(engine.effectiveness(state.self.element, state.opponent.element) == 1.5)
  return 2
end
`, 0)
	idx, err := s.ChooseMove(context.Background(), view())
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestLuaStrategy_NonIntegerReturnIsError(t *testing.T) {
	for name, body := range map[string]string{
		"string":   `return "first"`,
		"fraction": `return 1.5`,
		"nil":      `return nil`,
	} {
		t.Run(name, func(t *testing.T) {
			s := newStrategy(t, "function choose_move(state) "+body+" end", 0)
			_, err := s.ChooseMove(context.Background(), view())
			assert.Error(t, err)
		})
	}
}

func TestLuaStrategy_RuntimeErrorIsReturned(t *testing.T) {
	s := newStrategy(t, `function choose_move(state) error("boom") end`, 0)
	_, err := s.ChooseMove(context.Background(), view())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestLuaStrategy_BudgetIsPerCall(t *testing.T) {
	s := newStrategy(t, `
calls = 0
function choose_move(state)
  calls = calls + 1
  if calls == 1 then while true do end end
  return 1
end
`, 5000)
	_, err := s.ChooseMove(context.Background(), view())
	require.Error(t, err)

	idx, err := s.ChooseMove(context.Background(), view())
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestNewLuaStrategy_RequiresHook(t *testing.T) {
	_, err := scripting.NewLuaStrategy("empty.lua", `local x = 1`, 0, zap.NewNop())
	assert.ErrorContains(t, err, "choose_move")

	_, err = scripting.NewLuaStrategy("broken.lua", `function (`, 0, zap.NewNop())
	assert.Error(t, err)
}

func TestLoadLuaStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opponent.lua")
	require.NoError(t, os.WriteFile(path, []byte(highestMultiplier), 0o644))

	s, err := scripting.LoadLuaStrategy(path, 0, zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	idx, err := s.ChooseMove(context.Background(), view())
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = scripting.LoadLuaStrategy(filepath.Join(t.TempDir(), "missing.lua"), 0, zap.NewNop())
	assert.Error(t, err)
}

func TestLuaStrategy_DrivesMatchAutopilot(t *testing.T) {
	const delay = time.Second
	cfg := match.DefaultConfig()
	cfg.TurnDelay = delay
	cfg.RoundEndDelay = delay

	sched := combat.NewManualScheduler()
	src := dice.NewScriptedSource([]int{0}, []float64{0.5, 0.99, 0.5, 0.99})
	s := newStrategy(t, `function choose_move(state) return 1 end`, 0)
	m := match.New(cfg, nil, src, zap.NewNop(),
		match.WithScheduler(sched),
		match.WithAutopilot(combat.Player1, s),
	)
	t.Cleanup(m.Close)

	m.StartRound(match.PvP)
	m.AcquireProfile(combat.Player1, emberFox(), []byte("p1"), "image/png")
	m.AcquireProfile(combat.Player2, mossGolem(), []byte("p2"), "image/png")
	sched.Advance(delay)

	snap := m.Snapshot()
	require.NotNil(t, snap.LastAttack)
	assert.Equal(t, combat.Player1, snap.LastAttack.Attacker)
	assert.Equal(t, "Flame Bite", snap.LastAttack.Result.Move)
}

func TestBundledOpponentScript(t *testing.T) {
	s, err := scripting.LoadLuaStrategy(filepath.Join("..", "..", "content", "scripts", "opponent.lua"), 0, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)

	idx, err := s.ChooseMove(context.Background(), view())
	require.NoError(t, err)
	assert.Equal(t, 2, idx, "expected value favours Inferno")

	weak := view()
	weak.Opponent.CurrentHP = 40
	idx, err = s.ChooseMove(context.Background(), weak)
	require.NoError(t, err)
	assert.Equal(t, 0, idx, "a weakened foe gets the surest hit")
}

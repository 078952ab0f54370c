package scripting

import (
	"context"
	"fmt"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/combat"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
)

// hookName is the global function every strategy script must define.
const hookName = "choose_move"

// LuaStrategy is a match.Strategy implemented by a Lua script. The script
// defines choose_move(state) and returns a 1-based move index.
//
// The state table has the fields round, self and opponent. Each side holds
// label, hp, max_hp, element, stats{hp, attack, defense, speed} and
// moves[i]{name, category, power, accuracy}; self's moves also carry
// multiplier, the effectiveness multiplier against the opponent.
//
// LuaStrategy is safe for concurrent use; calls are serialised on one VM.
type LuaStrategy struct {
	mu        sync.Mutex
	L         *lua.LState
	instLimit int
	logger    *zap.Logger
}

// NewLuaStrategy compiles src in a fresh sandbox.
//
// Precondition: logger must be non-nil; instLimit >= 0 (0 uses DefaultInstructionLimit).
// Postcondition: Returns a strategy whose VM defines choose_move, or an error.
func NewLuaStrategy(name, src string, instLimit int, logger *zap.Logger) (*LuaStrategy, error) {
	L := NewSandboxedState(instLimit)
	RegisterModules(L, logger)
	if err := L.DoString(src); err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	if _, ok := L.GetGlobal(hookName).(*lua.LFunction); !ok {
		L.Close()
		return nil, fmt.Errorf("scripting: %q does not define %s", name, hookName)
	}
	return &LuaStrategy{L: L, instLimit: instLimit, logger: logger.With(zap.String("script", name))}, nil
}

// LoadLuaStrategy reads and compiles the script at path.
func LoadLuaStrategy(path string, instLimit int, logger *zap.Logger) (*LuaStrategy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scripting: reading %s: %w", path, err)
	}
	return NewLuaStrategy(path, string(data), instLimit, logger)
}

// ChooseMove implements match.Strategy.
//
// Postcondition: Returns a zero-based index, or an error when the script
// fails, exceeds its budget, or returns something other than an integer.
func (s *LuaStrategy) ChooseMove(ctx context.Context, view match.StrategyView) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	release := withBudget(ctx, s.L, s.instLimit)
	defer release()

	state := s.stateTable(view)
	if err := s.L.CallByParam(lua.P{
		Fn:      s.L.GetGlobal(hookName),
		NRet:    1,
		Protect: true,
	}, state); err != nil {
		s.logger.Warn("scripting: Lua runtime error", zap.String("hook", hookName), zap.Error(err))
		return 0, fmt.Errorf("scripting: %s: %w", hookName, err)
	}
	ret := s.L.Get(-1)
	s.L.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok || float64(n) != float64(int(n)) {
		return 0, fmt.Errorf("scripting: %s returned %s, want an integer", hookName, ret.Type())
	}
	return int(n) - 1, nil
}

// Close releases the VM.
func (s *LuaStrategy) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.L.Close()
}

func (s *LuaStrategy) stateTable(view match.StrategyView) *lua.LTable {
	L := s.L
	state := L.NewTable()
	L.SetField(state, "round", lua.LNumber(view.Round))
	self := s.sideTable(view.Self, view.SelfProfile)
	opp := s.sideTable(view.Opponent, view.OpponentProfile)

	mult := element.EffectivenessOf(view.SelfProfile.Element, view.OpponentProfile.Element).Multiplier()
	moves := L.GetField(self, "moves").(*lua.LTable)
	moves.ForEach(func(_, v lua.LValue) {
		L.SetField(v, "multiplier", lua.LNumber(mult))
	})

	L.SetField(state, "self", self)
	L.SetField(state, "opponent", opp)
	return state
}

func (s *LuaStrategy) sideTable(p combat.Player, prof character.Profile) *lua.LTable {
	L := s.L
	side := L.NewTable()
	L.SetField(side, "label", lua.LString(p.Label))
	L.SetField(side, "hp", lua.LNumber(p.CurrentHP))
	L.SetField(side, "max_hp", lua.LNumber(p.MaxHP))
	L.SetField(side, "element", lua.LString(prof.Element))

	stats := L.NewTable()
	L.SetField(stats, "hp", lua.LNumber(prof.Stats.HP))
	L.SetField(stats, "attack", lua.LNumber(prof.Stats.Attack))
	L.SetField(stats, "defense", lua.LNumber(prof.Stats.Defense))
	L.SetField(stats, "speed", lua.LNumber(prof.Stats.Speed))
	L.SetField(side, "stats", stats)

	moves := L.NewTable()
	for i, m := range prof.Moves {
		mv := L.NewTable()
		L.SetField(mv, "name", lua.LString(m.Name))
		L.SetField(mv, "category", lua.LString(m.Category))
		L.SetField(mv, "power", lua.LNumber(m.Power))
		L.SetField(mv, "accuracy", lua.LNumber(m.Accuracy))
		L.RawSetInt(moves, i+1, mv)
	}
	L.SetField(side, "moves", moves)
	return side
}

var _ match.Strategy = (*LuaStrategy)(nil)

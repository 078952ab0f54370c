package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/game/element"
)

// RegisterModules installs the engine global into L:
//
//	engine.log.debug|info|warn|error(msg)
//	engine.effectiveness(attacker, defender) -> multiplier
//	engine.elements() -> array of battle element tags
//
// Precondition: L must be from NewSandboxedState; logger must be non-nil.
func RegisterModules(L *lua.LState, logger *zap.Logger) {
	engine := L.NewTable()

	log := L.NewTable()
	L.SetFuncs(log, map[string]lua.LGFunction{
		"debug": logFn(logger.Debug),
		"info":  logFn(logger.Info),
		"warn":  logFn(logger.Warn),
		"error": logFn(logger.Error),
	})
	L.SetField(engine, "log", log)

	L.SetFuncs(engine, map[string]lua.LGFunction{
		"effectiveness": func(L *lua.LState) int {
			att := element.Parse(L.CheckString(1))
			def := element.Parse(L.CheckString(2))
			L.Push(lua.LNumber(element.EffectivenessOf(att, def).Multiplier()))
			return 1
		},
		"elements": func(L *lua.LState) int {
			tb := L.NewTable()
			for i, t := range element.All() {
				L.RawSetInt(tb, i+1, lua.LString(t))
			}
			L.Push(tb)
			return 1
		},
	})
	L.SetGlobal("engine", engine)
}

func logFn(write func(string, ...zap.Field)) lua.LGFunction {
	return func(L *lua.LState) int {
		write(L.CheckString(1), zap.String("source", "lua"))
		return 0
	}
}

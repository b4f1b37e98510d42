package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers all engine.* Lua tables into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine.log and engine.commands are defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "commands", m.commandsModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	logger := m.logger.Named("lua")
	level := func(write func(string, ...zap.Field)) lua.LGFunction {
		return func(L *lua.LState) int {
			write(L.CheckString(1))
			return 0
		}
	}
	return L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"debug": level(logger.Debug),
		"info":  level(logger.Info),
		"warn":  level(logger.Warn),
		"error": level(logger.Error),
	})
}

// commandsModule exposes the command registry to scripts. root is the state
// the module belongs to; commands registered through it become stale when
// root is replaced.
func (m *Manager) commandsModule(root *lua.LState) *lua.LTable {
	return root.SetFuncs(root.NewTable(), map[string]lua.LGFunction{
		// register(name, fn) -> bool
		"register": func(L *lua.LState) int {
			name := L.CheckString(1)
			fn := L.CheckFunction(2)
			if name == "" {
				L.ArgError(1, "command name must not be empty")
				return 0
			}
			L.Push(lua.LBool(m.registry.RegisterFunc(name, m, m.delegate(root, fn))))
			return 1
		},
		// remove(name) -> bool; only commands owned by scripts can be removed.
		"remove": func(L *lua.LState) int {
			name := L.CheckString(1)
			if name == "" {
				L.ArgError(1, "command name must not be empty")
				return 0
			}
			c, ok := m.registry.Get(name)
			if !ok || c.Owner() != any(m) {
				L.Push(lua.LFalse)
				return 1
			}
			m.registry.Remove(name)
			L.Push(lua.LTrue)
			return 1
		},
		// exists(name) -> bool
		"exists": func(L *lua.LState) int {
			name := L.CheckString(1)
			if name == "" {
				L.ArgError(1, "command name must not be empty")
				return 0
			}
			L.Push(lua.LBool(m.registry.Exists(name)))
			return 1
		},
		// list() -> array of sorted names
		"list": func(L *lua.LState) int {
			names := m.registry.Names()
			tbl := L.CreateTable(len(names), 0)
			for _, n := range names {
				tbl.Append(lua.LString(n))
			}
			L.Push(tbl)
			return 1
		},
	})
}

package scripting

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamecmd/internal/command"
	"github.com/cory-johannsen/gamecmd/internal/command/notify"
	"github.com/cory-johannsen/gamecmd/internal/command/typeparser"
)

// ErrStaleState is returned when a script command outlives the Lua state
// that defined it, either because scripts were reloaded or the Manager was closed.
var ErrStaleState = errors.New("scripting: script state was reloaded or closed")

// Manager owns the sandboxed LState that script commands run in.
//
// Every command the Manager registers is owned by the Manager, so
// Registry.RemoveHandler(m) removes all of them. An LState is single-threaded;
// the mutex serializes invocations while the dispatcher runs other commands
// concurrently.
type Manager struct {
	mu        sync.Mutex
	L         *lua.LState
	registry  *command.Registry
	parsers   *typeparser.Registry
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager that registers script commands into registry.
//
// Precondition: registry, parsers and logger must be non-nil; instLimit >= 0.
// Postcondition: Returns a non-nil Manager with no scripts loaded.
func NewManager(registry *command.Registry, parsers *typeparser.Registry, instLimit int, logger *zap.Logger) *Manager {
	if registry == nil || parsers == nil || logger == nil {
		panic("scripting: NewManager requires registry, parsers and logger")
	}
	return &Manager{
		registry:  registry,
		parsers:   parsers,
		instLimit: instLimit,
		logger:    logger,
	}
}

// Load replaces the scripts state with a fresh sandboxed VM, registers the
// engine.* modules, then executes every *.lua file in scriptDir in
// lexicographic order. Commands from a previous Load or LoadCatalog are
// removed first.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: On error no script commands remain registered.
func (m *Manager) Load(ctx context.Context, scriptDir string) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.registry.RemoveHandler(m)
	if m.L != nil {
		m.L.Close()
		m.L = nil
	}

	L := NewSandboxedState()
	m.RegisterModules(L)
	m.L = L

	for _, path := range luaFiles {
		err := WithInstructionLimit(ctx, L, m.instLimit, func() error {
			return L.DoFile(path)
		})
		if err != nil {
			m.registry.RemoveHandler(m)
			m.L = nil
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	m.logger.Info("scripts loaded",
		zap.String("dir", scriptDir),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// Close removes every script command and releases the Lua state.
// Close is idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry.RemoveHandler(m)
	if m.L != nil {
		m.L.Close()
		m.L = nil
	}
}

// delegate wraps a Lua function registered from L as a CommandFunc. The Lua
// function receives (actor, args) where args is an array of token strings.
func (m *Manager) delegate(L *lua.LState, fn *lua.LFunction) command.CommandFunc {
	return func(ctx context.Context, actor command.Actor, args []string) error {
		return m.call(ctx, L, fn, actor, func() []lua.LValue {
			tbl := L.CreateTable(len(args), 0)
			for _, a := range args {
				tbl.Append(lua.LString(a))
			}
			return []lua.LValue{tbl}
		})
	}
}

// call runs fn on L under the instruction budget with the actor table as the
// first argument followed by the values built by args.
func (m *Manager) call(ctx context.Context, L *lua.LState, fn *lua.LFunction, actor command.Actor, args func() []lua.LValue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L != L {
		return ErrStaleState
	}
	return WithInstructionLimit(ctx, L, m.instLimit, func() error {
		values := append([]lua.LValue{actorTable(ctx, L, actor)}, args()...)
		return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, values...)
	})
}

// actorTable exposes actor to Lua as {name = ..., tell = function(msg)}.
// tell is present only when the actor implements notify.Teller.
func actorTable(ctx context.Context, L *lua.LState, actor command.Actor) *lua.LTable {
	tbl := L.NewTable()
	if name, err := actor.Name(ctx); err == nil {
		L.SetField(tbl, "name", lua.LString(name))
	}
	if teller, ok := actor.(notify.Teller); ok {
		L.SetField(tbl, "tell", L.NewFunction(func(L *lua.LState) int {
			if err := teller.Tell(ctx, L.CheckString(1)); err != nil {
				L.RaiseError("tell: %s", err.Error())
			}
			return 0
		}))
	}
	return tbl
}

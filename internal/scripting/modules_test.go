package scripting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gamecmd/internal/command"
)

func TestEngineLog_AllLevels(t *testing.T) {
	h := newHarness(t, 0)
	dir := writeTempLua(t, "log.lua", `
		engine.log.debug("d")
		engine.log.info("i")
		engine.log.warn("w")
		engine.log.error("e")
	`)
	require.NoError(t, h.mgr.Load(context.Background(), dir))

	levels := map[string]bool{}
	for _, e := range h.logs.All() {
		if e.LoggerName == "lua" {
			levels[e.Level.String()] = true
		}
	}
	assert.True(t, levels["debug"], "expected debug log")
	assert.True(t, levels["info"], "expected info log")
	assert.True(t, levels["warn"], "expected warn log")
	assert.True(t, levels["error"], "expected error log")
}

func TestEngineCommands_RegisterDuplicateReturnsFalse(t *testing.T) {
	h := newHarness(t, 0)
	require.True(t, h.registry.Register("taken", func(context.Context, command.Actor, []string) error { return nil }))
	dir := writeTempLua(t, "dup.lua", `
		first = engine.commands.register("fresh", function(actor, args) end)
		second = engine.commands.register("taken", function(actor, args) end)
		engine.commands.register("result", function(actor, args)
			actor.tell(tostring(first) .. " " .. tostring(second))
		end)
	`)
	require.NoError(t, h.mgr.Load(context.Background(), dir))

	p := &player{name: "Bob"}
	h.dispatcher.Execute(context.Background(), p, "result")
	assert.Equal(t, []string{"true false"}, p.messages())
	assert.Equal(t, 1, h.logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestEngineCommands_RegisterValidatesArguments(t *testing.T) {
	for name, src := range map[string]string{
		"empty name":   `engine.commands.register("", function() end)`,
		"missing fn":   `engine.commands.register("x")`,
		"non-function": `engine.commands.register("x", 42)`,
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, 0)
			dir := writeTempLua(t, "bad.lua", src)
			assert.Error(t, h.mgr.Load(context.Background(), dir))
			assert.Empty(t, h.registry.Names())
		})
	}
}

func TestEngineCommands_ExistsAndList(t *testing.T) {
	h := newHarness(t, 0)
	require.True(t, h.registry.Register("native", func(context.Context, command.Actor, []string) error { return nil }))
	dir := writeTempLua(t, "q.lua", `
		engine.commands.register("query", function(actor, args)
			actor.tell(tostring(engine.commands.exists(args[1])))
			actor.tell(table.concat(engine.commands.list(), ","))
		end)
	`)
	require.NoError(t, h.mgr.Load(context.Background(), dir))

	p := &player{name: "Bob"}
	h.dispatcher.Execute(context.Background(), p, "query native")
	h.dispatcher.Execute(context.Background(), p, "query ghost")
	assert.Equal(t, []string{"true", "native,query", "false", "native,query"}, p.messages())
}

func TestEngineCommands_RemoveOnlyScriptOwned(t *testing.T) {
	h := newHarness(t, 0)
	require.True(t, h.registry.Register("native", func(context.Context, command.Actor, []string) error { return nil }))
	dir := writeTempLua(t, "rm.lua", `
		engine.commands.register("temp", function(actor, args) end)
		engine.commands.register("rm", function(actor, args)
			actor.tell(tostring(engine.commands.remove(args[1])))
		end)
	`)
	require.NoError(t, h.mgr.Load(context.Background(), dir))

	p := &player{name: "Bob"}
	h.dispatcher.Execute(context.Background(), p, "rm native")
	h.dispatcher.Execute(context.Background(), p, "rm temp")
	h.dispatcher.Execute(context.Background(), p, "rm temp")
	assert.Equal(t, []string{"false", "true", "false"}, p.messages())
	assert.True(t, h.registry.Exists("native"))
	assert.False(t, h.registry.Exists("temp"))
}

func TestProperty_ScriptCommandReceivesTokens(t *testing.T) {
	h := newHarness(t, 0)
	dir := writeTempLua(t, "echo.lua", `
		engine.commands.register("join", function(actor, args)
			actor.tell(table.concat(args, "|"))
		end)
	`)
	require.NoError(t, h.mgr.Load(context.Background(), dir))

	rapid.Check(t, func(rt *rapid.T) {
		tokens := rapid.SliceOfN(rapid.StringMatching(`[a-z0-9]{1,6}`), 0, 6).Draw(rt, "tokens")
		p := &player{name: "Bob"}
		input := "join"
		for _, tok := range tokens {
			input += "  " + tok
		}
		h.dispatcher.Execute(context.Background(), p, input)
		want := ""
		for i, tok := range tokens {
			if i > 0 {
				want += "|"
			}
			want += tok
		}
		msgs := p.messages()
		if len(msgs) != 1 || msgs[0] != want {
			rt.Fatalf("input %q: got %q, want %q", input, msgs, want)
		}
	})
}

package command_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/gamecmd/internal/command"
	"github.com/cory-johannsen/gamecmd/internal/command/typeparser"
	"github.com/cory-johannsen/gamecmd/internal/worker"
)

var bob = testActor{name: "Bob"}

func TestExecute_DefaultParameter(t *testing.T) {
	f := newFixture(t)
	g := newGreeter()
	f.registry.RegisterHandler(g)

	f.dispatcher.Execute(context.Background(), bob, "hi")
	f.dispatcher.Execute(context.Background(), bob, "hi Bob")

	assert.Equal(t, []string{"world", "Bob"}, g.greeted())
	assert.Empty(t, f.sink.all())
}

func TestExecute_CommandNotFound(t *testing.T) {
	f := newFixture(t)
	g := newGreeter()
	f.registry.RegisterHandler(g)

	f.dispatcher.Execute(context.Background(), bob, "nope")

	failures := f.sink.all()
	require.Len(t, failures, 1)
	assert.Equal(t, command.CommandNotFound, failures[0].Kind)
	assert.Equal(t, "Command nope not found", failures[0].Message)
	assert.Equal(t, "nope", failures[0].Input)
	assert.Equal(t, bob, failures[0].Actor)
	assert.NotEmpty(t, failures[0].InvocationID)
	assert.Empty(t, g.greeted())
}

func TestExecute_MissingArguments(t *testing.T) {
	f := newFixture(t)
	g := newGreeter()
	f.registry.RegisterHandler(g)

	f.dispatcher.Execute(context.Background(), bob, "give onlyone")

	failures := f.sink.all()
	require.Len(t, failures, 1)
	assert.Equal(t, command.MissingArguments, failures[0].Kind)
	assert.Equal(t, "The given command lacks arguments!", failures[0].Message)
	assert.Empty(t, g.gifts)
}

func TestExecute_TypeParsingFailed(t *testing.T) {
	f := newFixture(t)
	g := newGreeter()
	f.registry.RegisterHandler(g)

	f.dispatcher.Execute(context.Background(), bob, "give Alice lots")

	failures := f.sink.all()
	require.Len(t, failures, 1)
	assert.Equal(t, command.TypeParsingFailed, failures[0].Kind)
	assert.Equal(t, "Type conversion failed. Command parameters are: target: string, amount: int", failures[0].Message)
	assert.Empty(t, g.gifts)
}

func TestExecute_TypedArguments(t *testing.T) {
	f := newFixture(t)
	g := newGreeter()
	f.registry.RegisterHandler(g)

	f.dispatcher.Execute(context.Background(), bob, "give Alice 3")
	f.dispatcher.Execute(context.Background(), bob, "give Alice 4")
	f.dispatcher.Execute(context.Background(), bob, "sky Storm")

	assert.Equal(t, 7, g.gifts["Alice"])
	assert.Equal(t, weather(2), g.sky)
	assert.Empty(t, f.sink.all())
}

func TestExecute_EnumParsingFailure(t *testing.T) {
	f := newFixture(t)
	f.registry.RegisterHandler(newGreeter())

	f.dispatcher.Execute(context.Background(), bob, "sky fog")

	failures := f.sink.all()
	require.Len(t, failures, 1)
	assert.Equal(t, command.TypeParsingFailed, failures[0].Kind)
	assert.Contains(t, failures[0].Message, "weather: weather")
}

func TestExecute_LastParameterTakesRemainder(t *testing.T) {
	f := newFixture(t)
	g := newGreeter()
	f.registry.RegisterHandler(g)

	f.dispatcher.Execute(context.Background(), bob, "say   hello   big world  ")
	assert.Equal(t, "hello   big world", g.said)
}

func TestExecute_DelegateReceivesRawTokens(t *testing.T) {
	f := newFixture(t)
	var got []string
	f.registry.Register("tp", func(_ context.Context, actor command.Actor, args []string) error {
		got = args
		return nil
	})

	f.dispatcher.Execute(context.Background(), bob, "tp  12.5   north  x")
	assert.Equal(t, []string{"12.5", "north", "x"}, got)
}

func TestExecute_HandlerDelegateMethod(t *testing.T) {
	f := newFixture(t)
	g := newGreeter()
	f.registry.RegisterHandler(g)

	f.dispatcher.Execute(context.Background(), bob, "raw a b")
	f.dispatcher.Execute(context.Background(), bob, "raw")
	require.Len(t, g.raw, 2)
	assert.Equal(t, []string{"a", "b"}, g.raw[0])
	assert.Empty(t, g.raw[1])
}

func TestExecute_BlankInputIsNoOp(t *testing.T) {
	f := newFixture(t)
	var calls int
	f.registry.Register("x", func(context.Context, command.Actor, []string) error {
		calls++
		return nil
	})

	for _, in := range []string{"", "   ", "\t\n"} {
		f.dispatcher.Execute(context.Background(), bob, in)
	}
	assert.Zero(t, calls)
	assert.Empty(t, f.sink.all())
}

func TestExecute_TrailingWhitespaceIgnored(t *testing.T) {
	f := newFixture(t)
	var got [][]string
	f.registry.Register("cmd", func(_ context.Context, _ command.Actor, args []string) error {
		got = append(got, args)
		return nil
	})

	f.dispatcher.Execute(context.Background(), bob, "cmd   ")
	f.dispatcher.Execute(context.Background(), bob, "cmd")
	require.Len(t, got, 2)
	assert.Equal(t, got[0], got[1])
	assert.Equal(t, command.Tokenize("cmd   "), command.Tokenize("cmd"))
}

func TestExecute_PanicIsLoggedNotReported(t *testing.T) {
	f := newFixture(t)
	f.registry.RegisterHandler(newGreeter())

	assert.NotPanics(t, func() {
		f.dispatcher.Execute(context.Background(), bob, "boom")
	})
	assert.Empty(t, f.sink.all())

	errs := f.logs.FilterLevelExact(zap.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "Bob", errs[0].ContextMap()["actor"])
	assert.Equal(t, "boom", errs[0].ContextMap()["command"])
}

func TestExecute_ReturnedErrorIsLoggedNotReported(t *testing.T) {
	f := newFixture(t)
	f.registry.RegisterHandler(newGreeter())
	f.registry.Register("fail", func(context.Context, command.Actor, []string) error {
		return errors.New("delegate failed")
	})

	f.dispatcher.Execute(context.Background(), bob, "oops")
	f.dispatcher.Execute(context.Background(), bob, "fail")

	assert.Empty(t, f.sink.all())
	assert.Equal(t, 2, f.count(zap.ErrorLevel))
}

func TestExecute_PanickingSinkIsContained(t *testing.T) {
	f := newFixture(t)
	sink := command.FailureSinkFunc(func(context.Context, command.Failure) { panic("sink down") })
	d := command.NewDispatcher(f.registry, typeparser.NewRegistry(), sink, worker.NewPool(1), zap.NewNop())
	assert.NotPanics(t, func() {
		d.Execute(context.Background(), bob, "missing")
	})
}

func TestExecute_ConcurrentCommandsNoCrossTalk(t *testing.T) {
	f := newFixture(t)
	var a, b atomic.Int64
	f.registry.Register("a", func(_ context.Context, _ command.Actor, args []string) error {
		if len(args) == 1 && args[0] == "alpha" {
			a.Add(1)
		}
		return nil
	})
	f.registry.Register("b", func(_ context.Context, _ command.Actor, args []string) error {
		if len(args) == 1 && args[0] == "beta" {
			b.Add(1)
		}
		return nil
	})

	const n = 200
	for i := 0; i < n; i++ {
		f.dispatcher.Go(context.Background(), testActor{"p1"}, "a alpha")
		f.dispatcher.Go(context.Background(), testActor{"p2"}, "b beta")
	}
	f.dispatcher.Wait()

	assert.Equal(t, int64(n), a.Load())
	assert.Equal(t, int64(n), b.Load())
	assert.Empty(t, f.sink.all())
}

func TestExecute_RemovalDuringInvocation(t *testing.T) {
	f := newFixture(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	f.registry.Register("slow", func(context.Context, command.Actor, []string) error {
		close(entered)
		<-release
		finished.Store(true)
		return nil
	})

	f.dispatcher.Go(context.Background(), bob, "slow")
	<-entered
	f.registry.Remove("slow")
	close(release)
	f.dispatcher.Wait()

	assert.True(t, finished.Load())
	assert.False(t, f.registry.Exists("slow"))
}

func TestPropertyTokenizeHasNoEmptyTokens(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[ a-z\t]{0,40}`).Draw(t, "text")
		for _, tok := range command.Tokenize(text) {
			if tok == "" || strings.ContainsAny(tok, " \t") {
				t.Fatalf("bad token %q from %q", tok, text)
			}
		}
	})
}

func TestPropertySplitNBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[ a-z]{0,40}`).Draw(t, "text")
		n := rapid.IntRange(0, 6).Draw(t, "n")
		pieces := command.SplitN(text, n)
		if len(pieces) > n {
			t.Fatalf("SplitN(%q, %d) returned %d pieces", text, n, len(pieces))
		}
		for _, p := range pieces {
			if p == "" {
				t.Fatalf("SplitN(%q, %d) returned empty piece", text, n)
			}
		}
		if n > 0 && strings.Join(strings.Fields(strings.Join(pieces, " ")), " ") != strings.Join(strings.Fields(text), " ") {
			t.Fatalf("SplitN(%q, %d) lost tokens: %q", text, n, pieces)
		}
	})
}

func TestSplitN(t *testing.T) {
	assert.Nil(t, command.SplitN("a b", 0))
	assert.Nil(t, command.SplitN("   ", 3))
	assert.Equal(t, []string{"a", "b  c"}, command.SplitN("  a  b  c ", 2))
	assert.Equal(t, []string{"a", "b", "c"}, command.SplitN("a b c", 5))
}

package command_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/gamecmd/internal/command"
	"github.com/cory-johannsen/gamecmd/internal/command/typeparser"
	"github.com/cory-johannsen/gamecmd/internal/worker"
)

type testActor struct{ name string }

func (a testActor) Name(context.Context) (string, error) { return a.name, nil }

type recordingSink struct {
	mu       sync.Mutex
	failures []command.Failure
}

func (s *recordingSink) CommandFailed(_ context.Context, f command.Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, f)
}

func (s *recordingSink) all() []command.Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]command.Failure, len(s.failures))
	copy(out, s.failures)
	return out
}

type weather int

func (weather) EnumNames() []string { return []string{"clear", "rain", "storm"} }

// greeter is a handler exercising every registration path.
type greeter struct {
	mu    sync.Mutex
	calls []string
	gifts map[string]int
	sky   weather
	raw   [][]string
	said  string
}

func newGreeter() *greeter {
	return &greeter{gifts: make(map[string]int)}
}

func (g *greeter) Commands() []command.Tag {
	return []command.Tag{
		{Name: "hi", Method: "Greet", Params: []string{"target"}, Defaults: []any{"world"}},
		{Name: "give", Method: "Give", Params: []string{"target", "amount"}},
		{Name: "sky", Method: "SetSky", Params: []string{"weather"}},
		{Name: "say", Method: "Say", Params: []string{"text"}},
		{Name: "raw", Method: "Raw"},
		{Name: "boom", Method: "Boom"},
		{Name: "oops", Method: "Oops"},
	}
}

func (g *greeter) Greet(_ context.Context, _ command.Actor, target string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, target)
	return nil
}

func (g *greeter) Give(_ context.Context, _ command.Actor, target string, amount int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gifts[target] += amount
	return nil
}

func (g *greeter) SetSky(_ context.Context, _ command.Actor, w weather) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sky = w
	return nil
}

func (g *greeter) Say(_ context.Context, _ command.Actor, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.said = text
	return nil
}

func (g *greeter) Raw(_ context.Context, _ command.Actor, args []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.raw = append(g.raw, args)
	return nil
}

func (g *greeter) Boom(context.Context, command.Actor) error {
	panic("kaboom")
}

func (g *greeter) Oops(context.Context, command.Actor) error {
	return errors.New("oops")
}

func (g *greeter) greeted() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.calls))
	copy(out, g.calls)
	return out
}

type fixture struct {
	registry   *command.Registry
	dispatcher *command.Dispatcher
	sink       *recordingSink
	logs       *observer.ObservedLogs
}

func newFixture(t testing.TB) *fixture {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	reg := command.NewRegistry(logger)
	sink := &recordingSink{}
	d := command.NewDispatcher(reg, typeparser.NewRegistry(), sink, worker.NewPool(8), logger)
	return &fixture{registry: reg, dispatcher: d, sink: sink, logs: logs}
}

func (f *fixture) count(level zapcore.Level) int {
	n := 0
	for _, e := range f.logs.All() {
		if e.Level == level {
			n++
		}
	}
	return n
}

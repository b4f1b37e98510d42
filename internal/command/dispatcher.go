package command

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/gamecmd/internal/command/typeparser"
	"github.com/cory-johannsen/gamecmd/internal/worker"
)

// Dispatcher resolves actor input against a Registry and invokes the
// matching command.
//
// Resolution failures are reported to the FailureSink. Failures raised by a
// command body (returned errors and panics) are logged and never reported.
// Execute never returns an error and never panics.
type Dispatcher struct {
	registry *Registry
	parsers  *typeparser.Registry
	sink     FailureSink
	pool     *worker.Pool
	logger   *zap.Logger
}

// NewDispatcher creates a Dispatcher.
//
// Precondition: all arguments must be non-nil.
// Postcondition: Returns a Dispatcher ready for Execute and Go.
func NewDispatcher(registry *Registry, parsers *typeparser.Registry, sink FailureSink, pool *worker.Pool, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		parsers:  parsers,
		sink:     sink,
		pool:     pool,
		logger:   logger,
	}
}

// Go runs Execute on the worker pool. It blocks only while the pool is
// saturated.
func (d *Dispatcher) Go(ctx context.Context, actor Actor, text string) {
	d.pool.Go(func() {
		d.Execute(ctx, actor, text)
	})
}

// Wait blocks until every command started with Go has finished.
func (d *Dispatcher) Wait() {
	d.pool.Wait()
}

// Execute parses text and runs the command it names, blocking until the
// command body returns. Blank input is ignored.
func (d *Dispatcher) Execute(ctx context.Context, actor Actor, text string) {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return
	}

	inv := invocation{
		id:     uuid.NewString(),
		actor:  actor,
		input:  text,
		name:   tokens[0],
		tokens: tokens[1:],
	}

	cmd, ok := d.registry.Get(inv.name)
	if !ok {
		d.fail(ctx, inv, CommandNotFound, fmt.Sprintf("Command %s not found", inv.name))
		return
	}

	switch c := cmd.(type) {
	case *MethodCommand:
		d.executeMethod(ctx, inv, c)
	case *DelegateCommand:
		d.run(ctx, inv, func() error {
			return c.fn(ctx, actor, inv.tokens)
		})
	default:
		d.logger.Warn("invalid command type",
			zap.String("command", inv.name),
			zap.String("type", fmt.Sprintf("%T", cmd)),
		)
	}
}

// invocation is the per-call dispatch state.
type invocation struct {
	id     string
	actor  Actor
	input  string
	name   string
	tokens []string
}

func (d *Dispatcher) executeMethod(ctx context.Context, inv invocation, c *MethodCommand) {
	pieces := SplitN(argumentText(inv.input), len(c.params))
	if len(pieces) < c.required() {
		d.fail(ctx, inv, MissingArguments, "The given command lacks arguments!")
		return
	}

	args := make([]any, len(c.params))
	for i, p := range c.params {
		if i >= len(pieces) {
			args[i] = p.Default
			continue
		}
		v, ok := d.parsers.TryParse(pieces[i], p.Target)
		if !ok {
			d.fail(ctx, inv, TypeParsingFailed, "Type conversion failed. Command parameters are: "+c.Usage())
			return
		}
		args[i] = v
	}

	d.run(ctx, inv, func() error {
		return c.invoke(ctx, inv.actor, args)
	})
}

// run calls body, logging any returned error or recovered panic.
func (d *Dispatcher) run(ctx context.Context, inv invocation, body func() error) {
	start := time.Now()
	err := guard(body)
	if err == nil {
		d.logger.Debug("command executed",
			zap.String("invocation", inv.id),
			zap.String("command", inv.name),
			zap.Duration("elapsed", time.Since(start)),
		)
		return
	}
	d.logger.Error("an error occurred while executing command",
		zap.String("invocation", inv.id),
		zap.String("actor", actorName(ctx, inv.actor)),
		zap.String("command", inv.name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)
}

func (d *Dispatcher) fail(ctx context.Context, inv invocation, kind FailureKind, msg string) {
	d.logger.Debug("command failed",
		zap.String("invocation", inv.id),
		zap.String("command", inv.name),
		zap.Stringer("kind", kind),
	)
	f := Failure{
		InvocationID: inv.id,
		Actor:        inv.actor,
		Input:        inv.input,
		Command:      inv.name,
		Kind:         kind,
		Message:      msg,
	}
	if err := guard(func() error {
		d.sink.CommandFailed(ctx, f)
		return nil
	}); err != nil {
		d.logger.Error("failure sink panicked",
			zap.String("invocation", inv.id),
			zap.Error(err),
		)
	}
}

// PanicError is returned by a guarded call whose body panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// guard converts a panic in fn into a *PanicError.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

func actorName(ctx context.Context, actor Actor) string {
	if actor == nil {
		return "<nil>"
	}
	var name string
	err := guard(func() error {
		var err error
		name, err = actor.Name(ctx)
		return err
	})
	if err != nil {
		return "<unknown>"
	}
	return name
}

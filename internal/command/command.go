// Package command provides the command registry and the dispatcher that turns
// free-text actor input into command invocations.
//
// Commands come in two shapes. A DelegateCommand wraps a CommandFunc that
// receives the raw tokens following the command name. A MethodCommand wraps a
// bound callable with a typed parameter signature; its arguments are parsed
// through a typeparser.Registry before the call.
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/cory-johannsen/gamecmd/internal/command/typeparser"
)

// Actor is the entity that issued a command.
type Actor interface {
	// Name returns the actor's display name.
	Name(ctx context.Context) (string, error)
}

// CommandFunc is the callback behind a DelegateCommand. args holds the
// whitespace-separated tokens that followed the command name.
type CommandFunc func(ctx context.Context, actor Actor, args []string) error

// MethodInvoker calls a bound method with parsed arguments, one per Param,
// already converted to each Param's target type.
type MethodInvoker func(ctx context.Context, actor Actor, args []any) error

// Command is a registered command. The concrete type is either
// *DelegateCommand or *MethodCommand.
type Command interface {
	// Name is the registry key.
	Name() string
	// Usage describes the accepted parameters.
	Usage() string
	// Owner is the handler that registered the command, or nil.
	Owner() any

	sealed()
}

// DelegateCommand invokes a CommandFunc with unparsed tokens.
type DelegateCommand struct {
	name  string
	owner any
	fn    CommandFunc
}

// Name returns the command name.
func (c *DelegateCommand) Name() string { return c.name }

// Usage returns a generic description; delegate commands accept any tokens.
func (c *DelegateCommand) Usage() string { return "[args...]" }

// Owner returns the registering handler, or nil.
func (c *DelegateCommand) Owner() any { return c.owner }

// Func returns the wrapped callback.
func (c *DelegateCommand) Func() CommandFunc { return c.fn }

func (c *DelegateCommand) sealed() {}

// Param is one user-supplied parameter of a MethodCommand.
type Param struct {
	Name       string
	Target     typeparser.Target
	Default    any
	HasDefault bool
}

// String renders the parameter as "name: type" or "name: type = default".
func (p Param) String() string {
	if p.HasDefault {
		return fmt.Sprintf("%s: %s = %v", p.Name, p.Target, p.Default)
	}
	return fmt.Sprintf("%s: %s", p.Name, p.Target)
}

// MethodCommand invokes a bound callable with typed arguments.
// The invoking actor is supplied separately and is not a Param.
type MethodCommand struct {
	name   string
	owner  any
	params []Param
	invoke MethodInvoker
}

// Name returns the command name.
func (c *MethodCommand) Name() string { return c.name }

// Owner returns the handler the method is bound to.
func (c *MethodCommand) Owner() any { return c.owner }

// Params returns a copy of the parameter signature.
func (c *MethodCommand) Params() []Param {
	out := make([]Param, len(c.params))
	copy(out, c.params)
	return out
}

// Usage joins the parameter descriptions, e.g. "target: string = world, count: int".
func (c *MethodCommand) Usage() string {
	parts := make([]string, len(c.params))
	for i, p := range c.params {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}

// required counts parameters without a default.
func (c *MethodCommand) required() int {
	n := 0
	for _, p := range c.params {
		if !p.HasDefault {
			n++
		}
	}
	return n
}

func (c *MethodCommand) sealed() {}

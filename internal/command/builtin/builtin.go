// Package builtin provides the commands every host registers: help and echo.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/gamecmd/internal/command"
	"github.com/cory-johannsen/gamecmd/internal/command/notify"
)

// ErrNoReplyChannel is returned when the invoking actor cannot receive text.
var ErrNoReplyChannel = errors.New("actor cannot receive replies")

// Handler implements the built-in commands.
type Handler struct {
	registry *command.Registry
}

// New creates a Handler that describes the commands in registry.
//
// Precondition: registry must be non-nil.
func New(registry *command.Registry) *Handler {
	return &Handler{registry: registry}
}

// Commands tags the built-in command methods.
func (h *Handler) Commands() []command.Tag {
	return []command.Tag{
		{Name: "help", Method: "Help", Params: []string{"command"}, Defaults: []any{""}},
		{Name: "echo", Method: "Echo", Params: []string{"text"}},
	}
}

// Help lists every command, or describes one when name is given.
func (h *Handler) Help(ctx context.Context, actor command.Actor, name string) error {
	if name == "" {
		return tell(ctx, actor, "Commands: "+strings.Join(h.registry.Names(), ", "))
	}
	c, ok := h.registry.Get(name)
	if !ok {
		return tell(ctx, actor, fmt.Sprintf("Command %s not found", name))
	}
	return tell(ctx, actor, fmt.Sprintf("%s %s", c.Name(), c.Usage()))
}

// Echo repeats text back to the actor.
func (h *Handler) Echo(ctx context.Context, actor command.Actor, text string) error {
	return tell(ctx, actor, text)
}

func tell(ctx context.Context, actor command.Actor, msg string) error {
	t, ok := actor.(notify.Teller)
	if !ok {
		return ErrNoReplyChannel
	}
	return t.Tell(ctx, msg)
}

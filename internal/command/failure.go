package command

import (
	"context"
	"fmt"
)

// FailureKind classifies a resolution failure reported to a FailureSink.
type FailureKind int

const (
	// CommandNotFound means no command is registered under the input's first token.
	CommandNotFound FailureKind = iota + 1
	// MissingArguments means fewer tokens were supplied than required parameters.
	MissingArguments
	// TypeParsingFailed means a token could not be converted to its parameter type.
	TypeParsingFailed
)

// String returns the failure kind name.
func (k FailureKind) String() string {
	switch k {
	case CommandNotFound:
		return "CommandNotFound"
	case MissingArguments:
		return "MissingArguments"
	case TypeParsingFailed:
		return "TypeParsingFailed"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Failure describes one resolution failure.
type Failure struct {
	// InvocationID correlates the failure with dispatcher log entries.
	InvocationID string
	Actor        Actor
	// Input is the raw text the actor entered.
	Input   string
	Command string
	Kind    FailureKind
	Message string
}

// FailureSink receives resolution failures. Implementations must not block
// for long; the dispatcher calls CommandFailed inline.
type FailureSink interface {
	CommandFailed(ctx context.Context, f Failure)
}

// FailureSinkFunc adapts a function to the FailureSink interface.
type FailureSinkFunc func(ctx context.Context, f Failure)

// CommandFailed calls fn.
func (fn FailureSinkFunc) CommandFailed(ctx context.Context, f Failure) {
	fn(ctx, f)
}

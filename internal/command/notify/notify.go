// Package notify provides FailureSink implementations for command resolution failures.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gamecmd/internal/command"
)

// Teller is implemented by actors that can receive a text reply.
type Teller interface {
	Tell(ctx context.Context, msg string) error
}

// Fanout delivers each failure to every sink in order.
type Fanout []command.FailureSink

// CommandFailed forwards f to every sink.
func (s Fanout) CommandFailed(ctx context.Context, f command.Failure) {
	for _, sink := range s {
		sink.CommandFailed(ctx, f)
	}
}

// LogSink records failures at Info level for operators.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
//
// Precondition: logger must be non-nil.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// CommandFailed logs f.
func (s *LogSink) CommandFailed(_ context.Context, f command.Failure) {
	s.logger.Info("command failed",
		zap.String("invocation", f.InvocationID),
		zap.String("command", f.Command),
		zap.Stringer("kind", f.Kind),
		zap.String("input", f.Input),
		zap.String("message", f.Message),
	)
}

// TellSink sends the failure message back to the actor when it is a Teller.
type TellSink struct {
	logger *zap.Logger
}

// NewTellSink creates a TellSink.
//
// Precondition: logger must be non-nil.
func NewTellSink(logger *zap.Logger) *TellSink {
	return &TellSink{logger: logger}
}

// CommandFailed tells the actor what went wrong. Actors that are not Tellers
// are skipped.
func (s *TellSink) CommandFailed(ctx context.Context, f command.Failure) {
	t, ok := f.Actor.(Teller)
	if !ok {
		return
	}
	if err := t.Tell(ctx, f.Message); err != nil {
		s.logger.Warn("telling actor about failed command",
			zap.String("invocation", f.InvocationID),
			zap.String("command", f.Command),
			zap.Error(err),
		)
	}
}

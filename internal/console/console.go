// Package console runs an operator console: each line read from an input
// stream is dispatched as a command on behalf of a single console actor.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gamecmd/internal/command"
)

// Actor is the console user. Replies are written to out, one per line.
type Actor struct {
	name string
	mu   sync.Mutex
	out  io.Writer
}

// NewActor creates a console Actor named name writing replies to out.
func NewActor(name string, out io.Writer) *Actor {
	return &Actor{name: name, out: out}
}

// Name returns the actor's display name.
func (a *Actor) Name(context.Context) (string, error) { return a.name, nil }

// Tell writes msg to the console output.
func (a *Actor) Tell(_ context.Context, msg string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := fmt.Fprintln(a.out, msg)
	return err
}

// Submitter queues a command line for asynchronous execution.
type Submitter interface {
	Go(ctx context.Context, actor command.Actor, text string)
}

// Service reads command lines and submits them until the input ends, the
// context is cancelled, or the line "quit" is read. It implements server.Service.
type Service struct {
	in        io.Reader
	actor     *Actor
	submitter Submitter
	logger    *zap.Logger
	done      chan struct{}
	stopOnce  sync.Once
}

// NewService creates a console Service.
//
// Precondition: all arguments must be non-nil.
func NewService(in io.Reader, actor *Actor, submitter Submitter, logger *zap.Logger) *Service {
	return &Service{
		in:        in,
		actor:     actor,
		submitter: submitter,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start reads lines until the input is exhausted or the service is stopped.
// Blank lines are skipped.
func (s *Service) Start(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(s.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-s.done:
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("reading console input: %w", err)
					}
				default:
				}
				s.logger.Info("console input closed")
				return nil
			}
			line = strings.TrimSpace(line)
			switch line {
			case "":
				continue
			case "quit":
				return nil
			}
			s.submitter.Go(ctx, s.actor, line)
		}
	}
}

// Stop ends Start. The goroutine reading the input exits once its pending
// read returns.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Package main provides the command console host: it loads scripted commands
// and dispatches lines read from stdin as an operator actor.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gamecmd/internal/command"
	"github.com/cory-johannsen/gamecmd/internal/command/builtin"
	"github.com/cory-johannsen/gamecmd/internal/command/notify"
	"github.com/cory-johannsen/gamecmd/internal/command/typeparser"
	"github.com/cory-johannsen/gamecmd/internal/config"
	"github.com/cory-johannsen/gamecmd/internal/console"
	"github.com/cory-johannsen/gamecmd/internal/observability"
	"github.com/cory-johannsen/gamecmd/internal/scripting"
	"github.com/cory-johannsen/gamecmd/internal/server"
	"github.com/cory-johannsen/gamecmd/internal/storage/postgres"
	"github.com/cory-johannsen/gamecmd/internal/worker"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	actorName := flag.String("name", "operator", "display name of the console actor")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}

	runErr := run(context.Background(), cfg, *actorName, start, logger)
	if runErr != nil {
		logger.Error("console exited with error", zap.Error(runErr))
	}
	_ = logger.Sync()
	if runErr != nil {
		os.Exit(1)
	}
}

// run wires the command stack and blocks until the console service ends.
// Every resource it opens is released before it returns.
func run(ctx context.Context, cfg config.Config, actorName string, start time.Time, logger *zap.Logger) error {
	registry := command.NewRegistry(observability.Component(logger, "registry"))
	parsers := typeparser.NewRegistry()
	registry.RegisterHandler(builtin.New(registry))

	sinks := notify.Fanout{
		notify.NewLogSink(observability.Component(logger, "failures")),
		notify.NewTellSink(logger),
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	switch {
	case errors.Is(err, postgres.ErrDisabled):
		logger.Info("failure recording disabled")
	case err != nil:
		return fmt.Errorf("connecting to database: %w", err)
	default:
		defer pool.Close()
		sinks = append(sinks, postgres.NewFailureRepository(pool.DB(), observability.Component(logger, "storage")))
		logger.Info("failure recording enabled",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Name),
		)
	}

	if cfg.Scripting.ScriptDir != "" {
		scripts := scripting.NewManager(registry, parsers, cfg.Scripting.InstructionLimit, observability.Component(logger, "scripting"))
		defer scripts.Close()
		if err := scripts.Load(ctx, cfg.Scripting.ScriptDir); err != nil {
			return fmt.Errorf("loading scripts: %w", err)
		}
		if cfg.Scripting.CatalogDir != "" {
			if _, err := scripts.LoadCatalog(cfg.Scripting.CatalogDir); err != nil {
				return fmt.Errorf("loading command catalog: %w", err)
			}
		}
	}

	dispatcher := command.NewDispatcher(registry, parsers, sinks,
		worker.NewPool(cfg.Dispatch.Workers), observability.Component(logger, "dispatcher"))

	actor := console.NewActor(actorName, os.Stdout)
	lc := server.NewLifecycle(logger)
	lc.Add("console", console.NewService(os.Stdin, actor, dispatcher, observability.Component(logger, "console")))

	logger.Info("console ready",
		zap.Int("commands", len(registry.Names())),
		zap.Int("workers", cfg.Dispatch.Workers),
		zap.Duration("startup", time.Since(start)),
	)

	err = lc.Run(ctx)
	dispatcher.Wait()
	return err
}

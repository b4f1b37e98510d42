// Package main provides a CLI tool for inspecting and purging recorded command failures.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/gamecmd/internal/config"
	"github.com/cory-johannsen/gamecmd/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	limit := flag.Int("limit", 20, "number of recent failures to list")
	purge := flag.Duration("purge-older-than", 0, "delete failures older than this age (0 = keep all)")
	flag.Parse()

	if *limit < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	repo := postgres.NewFailureRepository(pool.DB(), zap.NewNop())

	if *purge > 0 {
		n, err := repo.PurgeBefore(ctx, time.Now().Add(-*purge))
		if err != nil {
			log.Fatalf("purging failures: %v", err)
		}
		fmt.Fprintf(os.Stdout, "purged %d failures older than %s\n", n, *purge)
	}

	counts, err := repo.CountByKind(ctx)
	if err != nil {
		log.Fatalf("counting failures: %v", err)
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(os.Stdout, "%-18s %d\n", k, counts[k])
	}

	recent, err := repo.Recent(ctx, *limit)
	if err != nil {
		log.Fatalf("listing failures: %v", err)
	}
	for _, r := range recent {
		fmt.Fprintf(os.Stdout, "%s  %-12s %-18s %q: %s\n",
			r.CreatedAt.Format(time.RFC3339), r.Actor, r.Kind, r.Input, r.Message)
	}

	fmt.Fprintf(os.Stdout, "listed %d failures [%s]\n", len(recent), time.Since(start))
}

// Package main provides the headless battle simulator: it loads authored
// content, runs a batch of battles concurrently, and optionally records each
// outcome in PostgreSQL.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/battle"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	battles := flag.Int("battles", 0, "override simulation.battles (0 = use config)")
	formationID := flag.String("formation", "", "override simulation.formation")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *battles > 0 {
		cfg.Simulation.Battles = *battles
	}
	if *formationID != "" {
		cfg.Simulation.Formation = *formationID
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c, err := loadContent(cfg, logger)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	defer c.scripts.Close()

	var outcome battle.OutcomeHandler
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		outcome = postgres.NewOutcomeRepository(pool.DB(), logger.Named("outcomes"))
	}

	logger.Info("starting battle simulation",
		zap.Int("battles", cfg.Simulation.Battles),
		zap.String("formation", cfg.Simulation.Formation),
		zap.String("animation", cfg.Simulation.Animation),
		zap.Uint64("seed", cfg.Simulation.Seed),
	)

	sim := newSimulator(cfg, c, outcome, logger)
	results, err := sim.runBatch(ctx)
	if err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}

	s := summarize(results)
	logger.Info("simulation complete",
		zap.Int("victories", s.Victories),
		zap.Int("defeats", s.Defeats),
		zap.Int("turns", s.Turns),
		zap.Duration("elapsed", time.Since(start)),
	)
}

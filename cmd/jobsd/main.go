package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cesargomez89/ydljobs/internal/app"
	"github.com/cesargomez89/ydljobs/internal/config"
	"github.com/cesargomez89/ydljobs/internal/constants"
	"github.com/cesargomez89/ydljobs/internal/logger"
	"github.com/cesargomez89/ydljobs/internal/store"
	"github.com/cesargomez89/ydljobs/internal/worker"
)

func main() {
	once := flag.Bool("once", false, "run a single prune pass and exit")
	flag.Parse()

	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if err := run(cfg, appLogger, *once, quit); err != nil {
		appLogger.Error("jobsd failed", "error", err)
		os.Exit(1)
	}
}

// run owns the store for its whole lifetime, so every return path closes it.
func run(cfg *config.Config, appLogger *logger.Logger, once bool, quit <-chan os.Signal) error {
	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultOpTimeout)
	defer cancel()

	db, err := store.Open(ctx, cfg.Database, store.Options{Logger: appLogger})
	if err != nil {
		return fmt.Errorf("failed to open job store: %w", err)
	}
	defer db.Close()

	recreated, err := db.CheckSchemaVersion(ctx)
	if err == nil {
		err = db.EnsureSchema(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to prepare jobs table: %w", err)
	}
	if recreated {
		appLogger.Warn("Jobs table was recreated, previous entries were dropped")
	}

	if once {
		jobs := app.NewJobService(db, appLogger)
		removed, err := jobs.Prune(context.Background(), cfg.KeepJobs)
		if err != nil {
			return fmt.Errorf("prune failed: %w", err)
		}
		appLogger.Info("Prune finished", "removed", removed)
		return nil
	}

	p := worker.NewPruner(db, cfg.KeepJobs, cfg.PruneInterval, appLogger)
	p.Start()

	<-quit

	appLogger.Info("Shutting down")
	p.Stop()
	appLogger.Info("Exiting", "prune_runs", p.Runs())
	return nil
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/cesargomez89/ydljobs/internal/config"
	"github.com/cesargomez89/ydljobs/internal/constants"
	"github.com/cesargomez89/ydljobs/internal/domain"
	"github.com/cesargomez89/ydljobs/internal/logger"
	"github.com/cesargomez89/ydljobs/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Database:      config.Database{Driver: constants.DriverSQLite, Path: filepath.Join(t.TempDir(), "jobsd.db")},
		LogLevel:      "info",
		LogFormat:     "text",
		KeepJobs:      1,
		PruneInterval: time.Hour,
	}
}

func seedFailedJobs(t *testing.T, cfg *config.Config, n int) {
	t.Helper()
	ctx := context.Background()
	db, err := store.Open(ctx, cfg.Database, store.Options{Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	for i := 0; i < n; i++ {
		if _, err := db.Insert(ctx, domain.NewJob("job", domain.JobStatusFailed, domain.JobTypeDownload)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
}

func countJobs(t *testing.T, cfg *config.Config) int {
	t.Helper()
	db, err := store.Open(context.Background(), cfg.Database, store.Options{Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("Failed to reopen db: %v", err)
	}
	defer db.Close()
	jobs, err := db.ListSummary(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListSummary failed: %v", err)
	}
	return len(jobs)
}

func TestRun_Once(t *testing.T) {
	cfg := testConfig(t)
	seedFailedJobs(t, cfg, 3)

	if err := run(cfg, logger.Discard(), true, nil); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if n := countJobs(t, cfg); n != 1 {
		t.Errorf("Expected 1 job after prune, got %d", n)
	}
}

func TestRun_StopsOnSignal(t *testing.T) {
	cfg := testConfig(t)
	seedFailedJobs(t, cfg, 2)

	quit := make(chan os.Signal, 1)
	quit <- syscall.SIGTERM

	done := make(chan error, 1)
	go func() { done <- run(cfg, logger.Discard(), false, quit) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after signal")
	}
	// the store is closed and the schema left in place
	if n := countJobs(t, cfg); n > 2 {
		t.Errorf("Expected at most 2 jobs, got %d", n)
	}
}

func TestRun_ReturnsErrorInsteadOfExiting(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "postgres"

	if err := run(cfg, logger.Discard(), true, nil); err == nil {
		t.Fatal("Expected error for unsupported driver")
	}
}

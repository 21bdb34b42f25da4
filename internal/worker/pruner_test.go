package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cesargomez89/ydljobs/internal/config"
	"github.com/cesargomez89/ydljobs/internal/constants"
	"github.com/cesargomez89/ydljobs/internal/domain"
	"github.com/cesargomez89/ydljobs/internal/logger"
	"github.com/cesargomez89/ydljobs/internal/store"
)

func setupTestStore(t *testing.T, opts store.Options) *store.Store {
	t.Helper()
	ctx := context.Background()

	opts.Logger = logger.Discard()
	cfg := config.Database{Driver: constants.DriverSQLite, Path: filepath.Join(t.TempDir(), "test_pruner.db")}
	db, err := store.Open(ctx, cfg, opts)
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	return db
}

func seedJobs(t *testing.T, db *store.Store, statuses ...domain.JobStatus) {
	t.Helper()
	for _, status := range statuses {
		if _, err := db.Insert(context.Background(), domain.NewJob("job", status, domain.JobTypeDownload)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := db.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
}

func TestNewPruner_Defaults(t *testing.T) {
	db := setupTestStore(t, store.Options{})
	p := NewPruner(db, 0, 0, logger.Discard())

	if p.Keep != constants.DefaultKeepJobs {
		t.Errorf("Expected keep %d, got %d", constants.DefaultKeepJobs, p.Keep)
	}
	if p.Interval != constants.DefaultPruneInterval {
		t.Errorf("Expected interval %v, got %v", constants.DefaultPruneInterval, p.Interval)
	}
}

func TestPruner_RunOnce(t *testing.T) {
	db := setupTestStore(t, store.Options{})
	seedJobs(t, db,
		domain.JobStatusCompleted,
		domain.JobStatusRunning,
		domain.JobStatusFailed,
		domain.JobStatusCompleted,
		domain.JobStatusAborted,
	)

	p := NewPruner(db, 2, time.Hour, logger.Discard())
	removed := p.RunOnce(context.Background())
	if removed != 2 {
		t.Errorf("Expected 2 removed jobs, got %d", removed)
	}
	if p.Runs() != 1 {
		t.Errorf("Expected 1 run, got %d", p.Runs())
	}

	jobs, err := db.ListSummary(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListSummary failed: %v", err)
	}
	if len(jobs) != 3 {
		t.Errorf("Expected 3 remaining jobs, got %d", len(jobs))
	}
}

func TestPruner_RunOnceCommitsReadOnlySession(t *testing.T) {
	db := setupTestStore(t, store.Options{ReadOnly: true})
	seedJobs(t, db, domain.JobStatusFailed, domain.JobStatusFailed, domain.JobStatusFailed)

	p := NewPruner(db, 1, time.Hour, logger.Discard())
	if removed := p.RunOnce(context.Background()); removed != 2 {
		t.Errorf("Expected 2 removed jobs, got %d", removed)
	}
	if db.Pending() {
		t.Error("Expected prune to be committed")
	}
}

func TestPruner_RunOnceClosedStore(t *testing.T) {
	db := setupTestStore(t, store.Options{})
	db.Close()

	p := NewPruner(db, 1, time.Hour, logger.Discard())
	if removed := p.RunOnce(context.Background()); removed != 0 {
		t.Errorf("Expected nothing removed on a closed store, got %d", removed)
	}
	if p.Runs() != 1 {
		t.Errorf("Expected failed pass to be counted, got %d", p.Runs())
	}
}

func TestPruner_StartStop(t *testing.T) {
	db := setupTestStore(t, store.Options{})
	seedJobs(t, db, domain.JobStatusFailed, domain.JobStatusFailed)

	p := NewPruner(db, 1, 10*time.Millisecond, logger.Discard())
	p.Start()

	deadline := time.Now().Add(2 * time.Second)
	for p.Runs() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()

	if p.Runs() < 2 {
		t.Fatalf("Expected at least 2 runs, got %d", p.Runs())
	}
	runs := p.Runs()
	time.Sleep(30 * time.Millisecond)
	if p.Runs() != runs {
		t.Error("Expected no runs after Stop")
	}
}

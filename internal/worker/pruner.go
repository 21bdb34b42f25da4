package worker

import (
	"context"
	"sync"
	"time"

	"github.com/cesargomez89/ydljobs/internal/constants"
	"github.com/cesargomez89/ydljobs/internal/logger"
	"github.com/cesargomez89/ydljobs/internal/store"
)

// Pruner applies the retention policy on a fixed interval. It owns its store; the
// store's connection must not be shared with another goroutine while the pruner runs.
type Pruner struct {
	Repo     *store.Store
	Keep     int
	Interval time.Duration
	Logger   *logger.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	runs int
}

func NewPruner(repo *store.Store, keep int, interval time.Duration, log *logger.Logger) *Pruner {
	if keep < 1 {
		keep = constants.DefaultKeepJobs
	}
	if interval <= 0 {
		interval = constants.DefaultPruneInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pruner{
		Repo:     repo,
		Keep:     keep,
		Interval: interval,
		Logger:   log.WithComponent("pruner"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (p *Pruner) Start() {
	p.Logger.Info("Starting pruner", "keep", p.Keep, "interval", p.Interval.String())

	p.wg.Add(1)
	go p.loop()
}

func (p *Pruner) Stop() {
	p.Logger.Info("Stopping pruner")
	p.cancel()
	p.wg.Wait()
}

// Runs reports how many prune passes have completed.
func (p *Pruner) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func (p *Pruner) loop() {
	defer p.wg.Done()

	p.RunOnce(p.ctx)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(p.ctx)
		}
	}
}

// RunOnce performs a single prune pass. Failures are logged, not returned, so a
// transient database error does not stop the loop.
func (p *Pruner) RunOnce(ctx context.Context) int64 {
	opCtx, cancel := context.WithTimeout(ctx, constants.DefaultOpTimeout)
	defer cancel()

	removed, err := p.Repo.PruneOld(opCtx, p.Keep)
	if err == nil && p.Repo.Pending() {
		err = p.Repo.Commit()
	}

	p.mu.Lock()
	p.runs++
	p.mu.Unlock()

	if err != nil {
		p.Logger.Error("Failed to prune jobs", "error", err)
		if p.Repo.Pending() {
			if rbErr := p.Repo.Rollback(); rbErr != nil {
				p.Logger.Error("Failed to roll back prune", "error", rbErr)
			}
		}
		return 0
	}
	if removed > 0 {
		p.Logger.Debug("Prune pass finished", "removed", removed)
	}
	return removed
}

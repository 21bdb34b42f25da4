package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/cesargomez89/ydljobs/internal/constants"
	"github.com/cesargomez89/ydljobs/internal/domain"
	"github.com/cesargomez89/ydljobs/internal/logger"
	"github.com/cesargomez89/ydljobs/internal/store"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrNotResumable      = errors.New("job is not failed or aborted")
	ErrUnsupportedAction = errors.New("unsupported action")
)

// JobService is what a job runner uses to record progress. It shares the single
// connection of its store and must not be used from several goroutines at once.
type JobService struct {
	Repo   *store.Store
	Logger *logger.Logger
}

func NewJobService(repo *store.Store, log *logger.Logger) *JobService {
	return &JobService{Repo: repo, Logger: log.WithComponent("jobs")}
}

// Enqueue records a new pending job and returns it with its id set.
func (s *JobService) Enqueue(ctx context.Context, name string, jobType domain.JobType, format string, urls ...string) (*domain.Job, error) {
	job := domain.NewJob(name, domain.JobStatusPending, jobType, urls...)
	if format != "" {
		job.WithFormat(format)
	}
	if _, err := s.Repo.Insert(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}
	s.Logger.WithJob(job.ID, jobType.String()).Info("Job enqueued", "name", name, "urls", len(urls))
	return job, nil
}

// Start marks a job as running under the given process id.
func (s *JobService) Start(ctx context.Context, id int64, pid int64) error {
	if err := s.Repo.SetPID(ctx, id, pid); err != nil {
		return err
	}
	if err := s.Repo.SetStatus(ctx, id, domain.JobStatusRunning); err != nil {
		return err
	}
	s.Logger.Info("Job started", "job_id", id, "pid", pid)
	return nil
}

// ReportLog stores captured output after stripping progress-bar redraws.
func (s *JobService) ReportLog(ctx context.Context, id int64, output string) error {
	return s.Repo.SetLog(ctx, id, domain.CleanLogs(output))
}

// Finish records the final status together with the cleaned output.
func (s *JobService) Finish(ctx context.Context, id int64, status domain.JobStatus, output string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %s is not a final status", domain.ErrInvalidStatus, status)
	}
	if err := s.Repo.UpdateStatusAndLog(ctx, id, status, domain.CleanLogs(output)); err != nil {
		return err
	}
	s.Logger.Info("Job finished", "job_id", id, "status", status.String())
	return nil
}

func (s *JobService) Abort(ctx context.Context, id int64) error {
	if err := s.Repo.SetStatus(ctx, id, domain.JobStatusAborted); err != nil {
		return err
	}
	s.Logger.Info("Job aborted", "job_id", id)
	return nil
}

// Resume puts a failed or aborted job back to pending so the runner picks it up again.
func (s *JobService) Resume(ctx context.Context, id int64) error {
	job, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job == nil {
		return ErrJobNotFound
	}
	if job.Status != domain.JobStatusFailed.String() && job.Status != domain.JobStatusAborted.String() {
		return fmt.Errorf("%w: job %d is %s", ErrNotResumable, id, job.Status)
	}
	if err := s.Repo.SetStatus(ctx, id, domain.JobStatusPending); err != nil {
		return err
	}
	s.Logger.Info("Job resumed", "job_id", id, "name", job.Name)
	return nil
}

func (s *JobService) Rename(ctx context.Context, id int64, name string) error {
	return s.Repo.SetName(ctx, id, name)
}

// Remove deletes a failed or aborted job. Other jobs are left alone and false is returned.
func (s *JobService) Remove(ctx context.Context, id int64) (bool, error) {
	return s.Repo.Delete(ctx, id)
}

func (s *JobService) Purge(ctx context.Context) (int64, error) {
	n, err := s.Repo.PurgeAll(ctx)
	if err != nil {
		return 0, err
	}
	s.Logger.Info("Job log purged", "removed", n)
	return n, nil
}

// Prune applies the retention policy; keep below one means DefaultKeepJobs.
func (s *JobService) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = constants.DefaultKeepJobs
	}
	return s.Repo.PruneOld(ctx, keep)
}

func (s *JobService) Get(ctx context.Context, id int64) (*store.JobView, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *JobService) List(ctx context.Context, limit int) ([]store.JobView, error) {
	return s.Repo.ListAll(ctx, limit)
}

func (s *JobService) Summaries(ctx context.Context, limit int) ([]store.JobSummaryView, error) {
	return s.Repo.ListSummary(ctx, limit)
}

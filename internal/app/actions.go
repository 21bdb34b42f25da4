package app

import (
	"context"
	"fmt"

	"github.com/cesargomez89/ydljobs/internal/domain"
)

// Request is one action sent to the job log. Only the fields the action needs are read.
type Request struct {
	Job    *domain.Job
	Name   string
	Log    string
	JobID  int64
	PID    int64
	Keep   int
	Action domain.Action
	Status domain.JobStatus
}

// Result reports what an action changed.
type Result struct {
	JobID    int64
	Affected int64
}

// Apply dispatches a request to the matching store operation.
func (s *JobService) Apply(ctx context.Context, req Request) (Result, error) {
	res := Result{JobID: req.JobID}
	var err error

	switch req.Action {
	case domain.ActionDownload, domain.ActionInsert:
		if req.Job == nil {
			return res, fmt.Errorf("%s: job is required", req.Action)
		}
		if req.Action == domain.ActionDownload {
			req.Job.Status = domain.JobStatusPending
		}
		res.JobID, err = s.Repo.Insert(ctx, req.Job)
		if err == nil {
			res.Affected = 1
		}
	case domain.ActionUpdate:
		err = s.Repo.UpdateStatusAndLog(ctx, req.JobID, req.Status, req.Log)
	case domain.ActionResume:
		err = s.Resume(ctx, req.JobID)
	case domain.ActionSetName:
		err = s.Repo.SetName(ctx, req.JobID, req.Name)
	case domain.ActionSetStatus:
		err = s.Repo.SetStatus(ctx, req.JobID, req.Status)
	case domain.ActionSetLog:
		err = s.Repo.SetLog(ctx, req.JobID, req.Log)
	case domain.ActionSetPID:
		err = s.Repo.SetPID(ctx, req.JobID, req.PID)
	case domain.ActionPurgeLogs:
		res.Affected, err = s.Purge(ctx)
	case domain.ActionCleanLogs:
		res.Affected, err = s.Prune(ctx, req.Keep)
	case domain.ActionDeleteLog:
		var deleted bool
		deleted, err = s.Remove(ctx, req.JobID)
		if deleted {
			res.Affected = 1
		}
	default:
		return res, fmt.Errorf("%w: %s", ErrUnsupportedAction, req.Action)
	}

	if err != nil {
		s.Logger.Error("Action failed", "action", req.Action.String(), "job_id", res.JobID, "error", err)
		return res, err
	}
	s.Logger.Debug("Action applied", "action", req.Action.String(), "job_id", res.JobID, "affected", res.Affected)
	return res, nil
}

package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidStatus = errors.New("invalid job status")
	ErrInvalidType   = errors.New("invalid job type")
)

// JobType is the job category. It is stored as an integer and never changes after insert.
type JobType int

const (
	JobTypeDownload JobType = 0
	JobTypeUpdate   JobType = 1
)

func (t JobType) String() string {
	switch t {
	case JobTypeDownload:
		return "Download"
	case JobTypeUpdate:
		return "Update"
	default:
		return fmt.Sprintf("JobType(%d)", int(t))
	}
}

// ParseJobType converts a stored integer into a JobType.
func ParseJobType(code int64) (JobType, error) {
	switch t := JobType(code); t {
	case JobTypeDownload, JobTypeUpdate:
		return t, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidType, code)
	}
}

// JobStatus drives the job lifecycle. The integer values are part of the table format.
type JobStatus int

const (
	JobStatusRunning   JobStatus = 0
	JobStatusCompleted JobStatus = 1
	JobStatusFailed    JobStatus = 2
	JobStatusPending   JobStatus = 3
	JobStatusAborted   JobStatus = 4
)

// String returns the display name of the status.
func (s JobStatus) String() string {
	switch s {
	case JobStatusRunning:
		return "Running"
	case JobStatusCompleted:
		return "Completed"
	case JobStatusFailed:
		return "Failed"
	case JobStatusPending:
		return "Pending"
	case JobStatusAborted:
		return "Aborted"
	default:
		return fmt.Sprintf("JobStatus(%d)", int(s))
	}
}

// Valid reports whether s is one of the five known statuses.
func (s JobStatus) Valid() bool {
	_, err := ParseJobStatus(int64(s))
	return err == nil
}

// IsTerminal reports whether no further progress is expected for the job.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusAborted
}

// IsDeletable reports whether a job in this status may be removed by id.
// Running, pending and completed jobs are protected.
func (s JobStatus) IsDeletable() bool {
	return s == JobStatusAborted || s == JobStatusFailed
}

// ParseJobStatus converts a stored integer into a JobStatus.
func ParseJobStatus(code int64) (JobStatus, error) {
	switch s := JobStatus(code); s {
	case JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusPending, JobStatusAborted:
		return s, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidStatus, code)
	}
}

// Job is one tracked download or update task.
type Job struct {
	LastUpdate time.Time `json:"last_update" db:"last_update"`
	Format     *string   `json:"format,omitempty" db:"format"`
	Name       string    `json:"name" db:"name"`
	Log        string    `json:"log" db:"log"`
	URLs       URLList   `json:"urls" db:"url"`
	ID         int64     `json:"id" db:"id"`
	PID        int64     `json:"pid" db:"pid"`
	Status     JobStatus `json:"status" db:"status"`
	Type       JobType   `json:"type" db:"type"`
}

// NewJob returns a job that has not been stored yet.
func NewJob(name string, status JobStatus, jobType JobType, urls ...string) *Job {
	return &Job{
		Name:   name,
		Status: status,
		Type:   jobType,
		URLs:   URLList(urls),
	}
}

// WithFormat sets the optional format parameter and returns the job.
func (j *Job) WithFormat(format string) *Job {
	j.Format = &format
	return j
}

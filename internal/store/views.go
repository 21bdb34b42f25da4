package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cesargomez89/ydljobs/internal/constants"
	"github.com/cesargomez89/ydljobs/internal/domain"
)

var errNullTimestamp = errors.New("last_update is NULL")

// JobSummaryView is a job as shown on status listings, without its log.
type JobSummaryView struct {
	Format     *string        `json:"format"`
	LastUpdate *string        `json:"last_update"` // nil when the stored value is unreadable
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	URLs       []string       `json:"urls"`
	ID         int64          `json:"id"`
	PID        int64          `json:"pid"`
	Type       domain.JobType `json:"type"`
}

// JobView is a fully populated job.
type JobView struct {
	JobSummaryView
	Log string `json:"log"`
}

type jobRow struct {
	Log        sql.NullString `db:"log"`
	Format     sql.NullString `db:"format"`
	LastUpdate rawTimestamp   `db:"last_update"`
	Name       string         `db:"name"`
	URLs       domain.URLList `db:"url"`
	PID        sql.NullInt64  `db:"pid"`
	ID         int64          `db:"id"`
	Status     int64          `db:"status"`
	Type       int64          `db:"type"`
}

// rawTimestamp keeps last_update as text. Drivers hand it over either as text or,
// for declared DATETIME columns, already parsed; both are normalised to the stored layout.
type rawTimestamp struct {
	value string
	valid bool
}

func (r *rawTimestamp) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = rawTimestamp{}
	case time.Time:
		*r = rawTimestamp{value: v.UTC().Format(constants.StoredTimeLayout), valid: true}
	case []byte:
		*r = rawTimestamp{value: string(v), valid: true}
	case string:
		*r = rawTimestamp{value: v, valid: true}
	default:
		return fmt.Errorf("cannot scan %T into last_update", value)
	}
	return nil
}

// FormatTimestamp renders a stored UTC timestamp in loc. ok is false when value does not
// match the stored layout.
func FormatTimestamp(value string, loc *time.Location) (string, bool) {
	ts, err := time.ParseInLocation(constants.DisplayTimeLayout, value, time.UTC)
	if err != nil {
		return "", false
	}
	return ts.In(loc).Format(constants.DisplayTimeLayout), true
}

const (
	fullColumns    = `id, name, status, log, last_update, format, type, url, pid`
	summaryColumns = `id, name, status, last_update, format, type, url, pid`
)

// GetByID returns the job with the given id, or nil when there is none.
func (s *Store) GetByID(ctx context.Context, id int64) (*JobView, error) {
	const op = "get job"
	q, err := s.reader()
	if err != nil {
		return nil, s.fail(op, err)
	}

	var row jobRow
	err = sqlx.GetContext(ctx, q, &row, `SELECT `+fullColumns+` FROM jobs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Debug("No job found", "job_id", id)
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(op, err)
	}

	summary, err := s.summarize(op, &row)
	if err != nil {
		return nil, err
	}
	return &JobView{JobSummaryView: summary, Log: row.Log.String}, nil
}

// ListAll returns up to limit jobs with their logs, most recently updated first.
// A limit below one means DefaultListLimit.
func (s *Store) ListAll(ctx context.Context, limit int) ([]JobView, error) {
	const op = "list jobs"
	rows, err := s.selectRows(ctx, op, fullColumns, limit)
	if err != nil {
		return nil, err
	}

	views := make([]JobView, 0, len(rows))
	for i := range rows {
		summary, err := s.summarize(op, &rows[i])
		if err != nil {
			return nil, err
		}
		views = append(views, JobView{JobSummaryView: summary, Log: rows[i].Log.String})
	}
	return views, nil
}

// ListSummary is ListAll without the log column.
func (s *Store) ListSummary(ctx context.Context, limit int) ([]JobSummaryView, error) {
	const op = "list job summaries"
	rows, err := s.selectRows(ctx, op, summaryColumns, limit)
	if err != nil {
		return nil, err
	}

	views := make([]JobSummaryView, 0, len(rows))
	for i := range rows {
		summary, err := s.summarize(op, &rows[i])
		if err != nil {
			return nil, err
		}
		views = append(views, summary)
	}
	return views, nil
}

func (s *Store) selectRows(ctx context.Context, op, columns string, limit int) ([]jobRow, error) {
	if limit < 1 {
		limit = constants.DefaultListLimit
	}
	q, err := s.reader()
	if err != nil {
		return nil, s.fail(op, err)
	}

	var rows []jobRow
	err = sqlx.SelectContext(ctx, q, &rows,
		`SELECT `+columns+` FROM jobs ORDER BY last_update DESC LIMIT ?`, limit)
	if err != nil {
		return nil, s.fail(op, err)
	}
	return rows, nil
}

func (s *Store) summarize(op string, row *jobRow) (JobSummaryView, error) {
	status, err := domain.ParseJobStatus(row.Status)
	if err != nil {
		return JobSummaryView{}, s.fail(op, integrityErr(op, fmt.Errorf("job %d: %w", row.ID, err)))
	}
	jobType, err := domain.ParseJobType(row.Type)
	if err != nil {
		return JobSummaryView{}, s.fail(op, integrityErr(op, fmt.Errorf("job %d: %w", row.ID, err)))
	}

	view := JobSummaryView{
		ID:         row.ID,
		Name:       row.Name,
		Status:     status.String(),
		LastUpdate: s.renderTimestamp(row.ID, row.LastUpdate),
		Type:       jobType,
		URLs:       row.URLs,
		PID:        row.PID.Int64,
	}
	if row.Format.Valid {
		format := row.Format.String
		view.Format = &format
	}
	return view, nil
}

func (s *Store) renderTimestamp(id int64, raw rawTimestamp) *string {
	if !raw.valid {
		return nil
	}
	out, ok := FormatTimestamp(raw.value, s.loc)
	if !ok {
		s.log.Warn("Invalid datetime format", "job_id", id, "value", raw.value)
		return nil
	}
	return &out
}

package store

import (
	"context"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/cesargomez89/ydljobs/internal/constants"
	"github.com/cesargomez89/ydljobs/internal/domain"
)

// EnsureSchema creates the jobs table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.exec(ctx, "ensure schema", stmt); err != nil {
			return err
		}
	}
	return nil
}

// CheckSchemaVersion recreates the jobs table when it is missing or its columns do not
// match JobColumns. Existing rows of an outdated table are dropped.
func (s *Store) CheckSchemaVersion(ctx context.Context) (bool, error) {
	const op = "check schema"

	current, err := s.tableColumns(ctx)
	if err != nil {
		return false, s.fail(op, err)
	}
	if sameColumns(current, JobColumns) {
		return false, nil
	}

	s.log.Info("Outdated jobs table, cleaning up and recreating", "columns", current)
	if _, err := s.exec(ctx, op, "DROP TABLE IF EXISTS jobs"); err != nil {
		return false, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// tableColumns returns nil when the table does not exist.
func (s *Store) tableColumns(ctx context.Context) ([]string, error) {
	q, err := s.reader()
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryxContext(ctx, s.dialect.tableExists)
	if err != nil {
		return nil, err
	}
	exists := rows.Next()
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	rows, err = q.QueryxContext(ctx, "SELECT * FROM jobs LIMIT 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

func sameColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[string]bool, len(got))
	for _, c := range got {
		seen[c] = true
	}
	for _, c := range want {
		if !seen[c] {
			return false
		}
	}
	return true
}

// Insert stores a new job and returns the generated id. job.ID and job.LastUpdate are
// set on success; any id already present on job is ignored.
func (s *Store) Insert(ctx context.Context, job *domain.Job) (int64, error) {
	const op = "insert"
	if job == nil {
		return 0, s.fail(op, ErrNilJob)
	}
	if _, err := domain.ParseJobStatus(int64(job.Status)); err != nil {
		return 0, s.fail(op, err)
	}
	if _, err := domain.ParseJobType(int64(job.Type)); err != nil {
		return 0, s.fail(op, err)
	}

	stamp := s.stamp()
	res, err := s.exec(ctx, op,
		`INSERT INTO jobs (name, status, log, format, last_update, type, url, pid)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.Name, int(job.Status), job.Log, job.Format, stamp, int(job.Type), job.URLs, job.PID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, s.fail(op, err)
	}

	job.ID = id
	job.LastUpdate = s.last
	s.log.Debug("Job inserted", "job_id", id, "name", job.Name, "type", job.Type.String())
	return id, nil
}

// UpdateStatusAndLog sets status and log in a single statement. The log is stored as given.
func (s *Store) UpdateStatusAndLog(ctx context.Context, id int64, status domain.JobStatus, log string) error {
	const op = "update status and log"
	if !status.Valid() {
		return s.fail(op, domain.ErrInvalidStatus)
	}
	_, err := s.exec(ctx, op,
		`UPDATE jobs SET status = ?, log = ?, last_update = ? WHERE id = ?`,
		int(status), log, s.stamp(), id)
	if err == nil {
		s.log.Debug("Job updated", "job_id", id, "status", status.String())
	}
	return err
}

func (s *Store) SetStatus(ctx context.Context, id int64, status domain.JobStatus) error {
	const op = "set status"
	if !status.Valid() {
		return s.fail(op, domain.ErrInvalidStatus)
	}
	_, err := s.exec(ctx, op,
		`UPDATE jobs SET status = ?, last_update = ? WHERE id = ?`,
		int(status), s.stamp(), id)
	if err == nil {
		s.log.Debug("Job status set", "job_id", id, "status", status.String())
	}
	return err
}

func (s *Store) SetPID(ctx context.Context, id int64, pid int64) error {
	_, err := s.exec(ctx, "set pid",
		`UPDATE jobs SET pid = ?, last_update = ? WHERE id = ?`,
		pid, s.stamp(), id)
	if err == nil {
		s.log.Debug("Job pid set", "job_id", id, "pid", pid)
	}
	return err
}

// SetLog replaces the job log, keeping only its last MaxLogLength characters.
func (s *Store) SetLog(ctx context.Context, id int64, log string) error {
	_, err := s.exec(ctx, "set log",
		`UPDATE jobs SET log = ?, last_update = ? WHERE id = ?`,
		truncateLog(log), s.stamp(), id)
	if err == nil {
		s.log.Debug("Job log set", "job_id", id)
	}
	return err
}

func (s *Store) SetName(ctx context.Context, id int64, name string) error {
	_, err := s.exec(ctx, "set name",
		`UPDATE jobs SET name = ?, last_update = ? WHERE id = ?`,
		name, s.stamp(), id)
	if err == nil {
		s.log.Debug("Job name set", "job_id", id, "name", name)
	}
	return err
}

// truncateLog keeps the tail of log, counted in characters rather than bytes.
func truncateLog(log string) string {
	if utf8.RuneCountInString(log) <= constants.MaxLogLength {
		return log
	}
	r := []rune(log)
	return string(r[len(r)-constants.MaxLogLength:])
}

// Delete removes a job only if it is aborted or failed. For any other status, or an
// unknown id, nothing happens and false is returned.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	const op = "delete"
	res, err := s.exec(ctx, op,
		`DELETE FROM jobs WHERE id = ? AND (status = ? OR status = ?)`,
		id, int(domain.JobStatusAborted), int(domain.JobStatusFailed))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, s.fail(op, err)
	}
	if n == 0 {
		s.log.Debug("Job not deletable or missing", "job_id", id)
		return false, nil
	}

	s.log.Info("Job deleted", "job_id", id)
	return true, s.compact(ctx)
}

// PurgeAll deletes every job regardless of status.
func (s *Store) PurgeAll(ctx context.Context) (int64, error) {
	const op = "purge"
	res, err := s.exec(ctx, op, `DELETE FROM jobs`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.fail(op, err)
	}

	s.log.Info("All jobs purged", "count", n)
	return n, s.compact(ctx)
}

// PruneOld keeps the keep most recently updated jobs and deletes older ones, except
// pending and running jobs which are never pruned. With fewer than keep jobs it does nothing.
func (s *Store) PruneOld(ctx context.Context, keep int) (int64, error) {
	const op = "prune"
	if keep < 1 {
		return 0, s.fail(op, ErrInvalidKeep)
	}

	q, err := s.writer(ctx)
	if err != nil {
		return 0, s.fail(op, err)
	}
	var stamps []rawTimestamp
	err = sqlx.SelectContext(ctx, q, &stamps, s.dialect.cutoffQuery, keep)
	if err != nil {
		return 0, s.fail(op, err)
	}
	if len(stamps) < keep {
		return 0, nil
	}

	cutoff := stamps[len(stamps)-1]
	if !cutoff.valid {
		return 0, s.fail(op, integrityErr(op, errNullTimestamp))
	}

	res, err := s.exec(ctx, op,
		`DELETE FROM jobs WHERE last_update < ? AND status != ? AND status != ?`,
		cutoff.value, int(domain.JobStatusPending), int(domain.JobStatusRunning))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.fail(op, err)
	}

	s.log.Info("Old jobs cleaned", "keep", keep, "removed", n, "cutoff", cutoff.value)
	return n, nil
}

// compact reclaims space after deletes where the dialect supports it. It cannot run
// inside a transaction, so it is skipped while writes are pending.
func (s *Store) compact(ctx context.Context) error {
	if s.dialect.compact == "" || s.tx != nil || s.readOnly {
		return nil
	}
	_, err := s.exec(ctx, "compact", s.dialect.compact)
	return err
}

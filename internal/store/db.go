package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/cesargomez89/ydljobs/internal/config"
	"github.com/cesargomez89/ydljobs/internal/constants"
	"github.com/cesargomez89/ydljobs/internal/logger"
)

// Options control a store session.
type Options struct {
	// ReadOnly disables auto-commit: writes stay in a pending transaction until Commit.
	ReadOnly bool
	Logger   *logger.Logger
	// Location is used to render timestamps; defaults to time.Local.
	Location *time.Location
	// Now is the clock used to stamp last_update; defaults to time.Now.
	Now func() time.Time
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.ExtContext
}

// Store owns a single connection to the jobs table. It is not safe for concurrent use;
// callers that need parallel access open one Store each.
type Store struct {
	db      *sqlx.DB
	tx      *sqlx.Tx
	dialect dialect
	log     *logger.Logger
	loc     *time.Location
	now     func() time.Time
	last    time.Time
	session string

	readOnly bool
	closed   bool
}

// Open connects to the database described by cfg and verifies the connection.
func Open(ctx context.Context, cfg config.Database, opts Options) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, cfg.DSN())
	if err != nil {
		return nil, &Error{Op: "open", Kind: KindConnection, Err: err}
	}

	s, err := newStore(ctx, db, d, opts)
	if err != nil {
		if cErr := db.Close(); cErr != nil {
			return nil, fmt.Errorf("%w (also failed to close db: %v)", err, cErr)
		}
		return nil, err
	}
	s.log.Info("Opened jobs store", "target", cfg.String(), "read_only", opts.ReadOnly)
	return s, nil
}

// NewWithDB wraps an already opened database handle. driver selects the SQL dialect.
func NewWithDB(ctx context.Context, db *sql.DB, driver string, opts Options) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return newStore(ctx, db, d, opts)
}

func newStore(ctx context.Context, db *sql.DB, d dialect, opts Options) (*Store, error) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, stmt := range d.setup {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, &Error{Op: "open", Kind: KindConnection, Err: err}
		}
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, &Error{Op: "ping", Kind: KindConnection, Err: err}
	}

	log := opts.Logger
	if log == nil {
		log = logger.Default()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	session := uuid.New().String()

	return &Store{
		db:       sqlx.NewDb(db, d.driver),
		dialect:  d,
		log:      log.WithComponent("store").WithSession(session),
		loc:      loc,
		now:      now,
		session:  session,
		readOnly: opts.ReadOnly,
	}, nil
}

// Session identifies this store instance in logs.
func (s *Store) Session() string {
	return s.session
}

// Pending reports whether uncommitted writes exist.
func (s *Store) Pending() bool {
	return s.tx != nil
}

// Commit makes pending writes of a read-only session durable. It is a no-op otherwise.
func (s *Store) Commit() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return wrapErr("commit", err)
	}
	return nil
}

// Rollback discards pending writes of a read-only session.
func (s *Store) Rollback() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return wrapErr("rollback", err)
	}
	return nil
}

// Close rolls back pending writes and releases the connection. Calling it again is a no-op.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	rbErr := s.Rollback()
	if err := s.db.Close(); err != nil {
		s.log.Error("Error closing database connection", "error", err)
		return wrapErr("close", err)
	}
	s.log.Debug("Closed jobs store")
	return rbErr
}

// reader returns the handle for queries. Once a transaction is pending it must be used
// for reads too, the pool holds a single connection.
func (s *Store) reader() (queryer, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}
	return s.db, nil
}

func (s *Store) writer(ctx context.Context) (queryer, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if !s.readOnly {
		return s.db, nil
	}
	if s.tx == nil {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return nil, err
		}
		s.tx = tx
	}
	return s.tx, nil
}

func (s *Store) exec(ctx context.Context, op, query string, args ...interface{}) (sql.Result, error) {
	q, err := s.writer(ctx)
	if err != nil {
		return nil, s.fail(op, err)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(op, err)
	}
	return res, nil
}

func (s *Store) fail(op string, err error) error {
	wrapped := wrapErr(op, err)
	s.log.Error("Jobs store operation failed", "op", op, "error", err)
	return wrapped
}

// stamp returns the next last_update value. Values are UTC, microsecond precision and
// strictly increasing within a session even if the wall clock stalls or steps back.
func (s *Store) stamp() string {
	ts := s.now().UTC().Truncate(time.Microsecond)
	if !ts.After(s.last) {
		ts = s.last.Add(time.Microsecond)
	}
	s.last = ts
	return ts.Format(constants.StoredTimeLayout)
}

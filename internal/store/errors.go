package store

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
)

// Kind classifies store failures.
type Kind int

const (
	// KindConnection means the backing connection could not be established or was lost.
	KindConnection Kind = iota + 1
	// KindStatement means the database rejected the operation.
	KindStatement
	// KindIntegrity means a stored value violates the table invariants.
	KindIntegrity
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection error"
	case KindStatement:
		return "statement error"
	case KindIntegrity:
		return "data integrity error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is returned by every failing store operation. Err holds the driver error.
type Error struct {
	Err  error
	Op   string
	Kind Kind
}

func (e *Error) Error() string {
	if e.Op == "" && e.Err == nil {
		return "jobs store: " + e.Kind.String()
	}
	return fmt.Sprintf("jobs store %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, so errors.Is(err, ErrConnection) works for any connection failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrConnection = &Error{Kind: KindConnection}
	ErrStatement  = &Error{Kind: KindStatement}
	ErrIntegrity  = &Error{Kind: KindIntegrity}

	ErrClosed      = errors.New("store is closed")
	ErrInvalidKeep = errors.New("keep count must be positive")
	ErrNilJob      = errors.New("job is nil")
)

func classify(err error) Kind {
	var netErr net.Error
	switch {
	case errors.Is(err, ErrClosed),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.As(err, &netErr):
		return KindConnection
	default:
		return KindStatement
	}
}

func wrapErr(op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Kind: classify(err), Err: err}
}

func integrityErr(op string, err error) error {
	return &Error{Op: op, Kind: KindIntegrity, Err: err}
}

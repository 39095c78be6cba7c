package db

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a lookup by key or predicate matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrActiveSessionExists is returned when inserting a second active session.
	ErrActiveSessionExists = errors.New("another session is already active")
	// ErrStoreLocked matches every *LockedError.
	ErrStoreLocked = errors.New("database locked")
	// ErrStoreFailure matches every *FailureError.
	ErrStoreFailure = errors.New("database failure")
)

// LockedError reports that the database stayed locked for the whole retry budget.
type LockedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s: database locked after %d attempts. This is usually a sync client "+
		"(OneDrive, Dropbox) holding the file. Try again in a moment", e.Op, e.Attempts)
}

func (e *LockedError) Is(target error) bool { return target == ErrStoreLocked }

func (e *LockedError) Unwrap() error { return e.Err }

// FailureError wraps any persistence error that is not lock contention.
type FailureError struct {
	Op  string
	Err error
}

func (e *FailureError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *FailureError) Is(target error) bool { return target == ErrStoreFailure }

func (e *FailureError) Unwrap() error { return e.Err }

// sqlite primary result codes for lock contention
const (
	sqliteBusy   = 5
	sqliteLocked = 6
)

// IsLocked reports whether err is the transient "database is locked" class
// that a sync agent holding the file produces.
func IsLocked(err error) bool {
	if err == nil {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() & 0xff {
		case sqliteBusy, sqliteLocked:
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "sqlite_busy")
}

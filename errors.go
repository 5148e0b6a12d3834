package sqlmark

import (
	"errors"
	"fmt"
)

// ErrorKind is the semantic classification of a native database error.
// Native diagnostic codes differ between engines; a Dialect maps them onto
// this stable taxonomy so callers can branch on meaning instead of vendor
// codes.
type ErrorKind int

const (
	// Unknown is the explicit classification for codes no dialect table maps.
	// It is a first-class result, not an omission.
	Unknown ErrorKind = iota

	// ForeignKeyViolation indicates a referenced or referencing row is missing.
	ForeignKeyViolation

	// UniqueViolation indicates a duplicate value in a unique index or key.
	UniqueViolation

	// CheckViolation indicates a value rejected by a CHECK constraint.
	CheckViolation

	// DeadlockDetected indicates the statement was chosen as a deadlock victim.
	DeadlockDetected

	// LockTimeout indicates a lock wait exceeded the server's limit.
	LockTimeout
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case ForeignKeyViolation:
		return "foreign key violation"
	case UniqueViolation:
		return "unique violation"
	case CheckViolation:
		return "check violation"
	case DeadlockDetected:
		return "deadlock detected"
	case LockTimeout:
		return "lock timeout"
	default:
		return "unknown"
	}
}

// DatabaseError wraps a native database error together with the SQL text
// that produced it, tagged with its classified kind. The native cause is
// always preserved and reachable through errors.Unwrap.
type DatabaseError struct {
	kind  ErrorKind
	sql   string
	cause error
}

// Error returns the error string.
func (e *DatabaseError) Error() string {
	return fmt.Sprintf("sqlmark: %s: %v", e.kind, e.cause)
}

// Unwrap returns the native cause.
func (e *DatabaseError) Unwrap() error {
	return e.cause
}

// Kind returns the classified kind.
func (e *DatabaseError) Kind() ErrorKind {
	return e.kind
}

// SQL returns the statement text that produced the error.
func (e *DatabaseError) SQL() string {
	return e.sql
}

// Rethrow wraps err and the offending SQL text into a DatabaseError tagged
// with kind. If err is already a DatabaseError it is returned unchanged, so
// classification layered over retries never double-wraps.
func Rethrow(kind ErrorKind, err error, sql string) error {
	if err == nil {
		return nil
	}
	var e *DatabaseError
	if errors.As(err, &e) {
		return err
	}
	return &DatabaseError{kind: kind, sql: sql, cause: err}
}

// KindOf returns the classified kind of err, or Unknown if err is not a
// DatabaseError.
func KindOf(err error) ErrorKind {
	var e *DatabaseError
	if errors.As(err, &e) {
		return e.Kind()
	}
	return Unknown
}

// IsForeignKeyViolation returns true if the error was classified as a
// foreign-key constraint violation.
func IsForeignKeyViolation(err error) bool {
	return isKind(err, ForeignKeyViolation)
}

// IsUniqueViolation returns true if the error was classified as a unique
// constraint violation.
func IsUniqueViolation(err error) bool {
	return isKind(err, UniqueViolation)
}

// IsCheckViolation returns true if the error was classified as a check
// constraint violation.
func IsCheckViolation(err error) bool {
	return isKind(err, CheckViolation)
}

// IsDeadlockDetected returns true if the error was classified as a deadlock.
func IsDeadlockDetected(err error) bool {
	return isKind(err, DeadlockDetected)
}

// IsLockTimeout returns true if the error was classified as a lock timeout.
func IsLockTimeout(err error) bool {
	return isKind(err, LockTimeout)
}

func isKind(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	var e *DatabaseError
	return errors.As(err, &e) && e.Kind() == kind
}

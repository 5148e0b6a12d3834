package sql

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"

	"github.com/syssam/sqlmark"
	"github.com/syssam/sqlmark/dialect"
)

// Code extracts the native diagnostic code from a driver error: the
// SQLSTATE for PostgreSQL drivers, the vendor error number rendered in
// decimal for MySQL and SQLite.
func Code(err error) (string, bool) {
	var (
		pqErr     *pq.Error
		pgErr     *pgconn.PgError
		myErr     *mysql.MySQLError
		sqliteErr *sqlite.Error
	)
	switch {
	case errors.As(err, &pgErr):
		return pgErr.Code, true
	case errors.As(err, &pqErr):
		return string(pqErr.Code), true
	case errors.As(err, &myErr):
		return strconv.FormatUint(uint64(myErr.Number), 10), true
	case errors.As(err, &sqliteErr):
		return strconv.Itoa(sqliteErr.Code()), true
	}
	// Drivers outside the compiled-in set may still expose a code through
	// one of the conventional interfaces.
	if e, ok := asError[interface{ SQLState() string }](err); ok {
		return e.SQLState(), true
	}
	if e, ok := asError[interface{ Code() string }](err); ok {
		return e.Code(), true
	}
	if e, ok := asError[interface{ Number() uint16 }](err); ok {
		return strconv.FormatUint(uint64(e.Number()), 10), true
	}
	return "", false
}

// Classify maps a native driver error to its semantic kind using the
// dialect's diagnostic-code table, falling back to message matching for
// drivers that expose no code. A nil dialect or an unrecognized error
// classifies as Unknown; classification itself never fails.
func Classify(d *dialect.Dialect, err error) sqlmark.ErrorKind {
	if err == nil {
		return sqlmark.Unknown
	}
	if code, ok := Code(err); ok && d != nil {
		if kind := d.Classify(code); kind != sqlmark.Unknown {
			return kind
		}
	}
	msg := err.Error()
	switch {
	case containsAny(msg,
		"violates unique constraint", // Postgres
		"UNIQUE constraint failed",   // SQLite
		"Error 1062",                 // MySQL
	):
		return sqlmark.UniqueViolation
	case containsAny(msg,
		"violates foreign key constraint", // Postgres
		"FOREIGN KEY constraint failed",   // SQLite
		"Error 1451",                      // MySQL: cannot delete or update a parent row
		"Error 1452",                      // MySQL: cannot add or update a child row
	):
		return sqlmark.ForeignKeyViolation
	case containsAny(msg,
		"violates check constraint", // Postgres
		"CHECK constraint failed",   // SQLite
		"Error 3819",                // MySQL
	):
		return sqlmark.CheckViolation
	case containsAny(msg, "deadlock detected", "Deadlock found"):
		return sqlmark.DeadlockDetected
	case containsAny(msg, "Lock wait timeout", "could not obtain lock", "database is locked"):
		return sqlmark.LockTimeout
	}
	return sqlmark.Unknown
}

// Rethrow classifies err against d and wraps it with the offending SQL
// text. Already classified errors pass through unchanged.
func Rethrow(d *dialect.Dialect, err error, query string) error {
	if err == nil {
		return nil
	}
	return sqlmark.Rethrow(Classify(d, err), err, query)
}

// asError attempts to extract an error implementing interface T from the
// error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

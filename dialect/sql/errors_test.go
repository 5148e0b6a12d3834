package sql

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlmark"
	"github.com/syssam/sqlmark/dialect"
)

type sqlStateErr struct{ state string }

func (e *sqlStateErr) Error() string    { return "state " + e.state }
func (e *sqlStateErr) SQLState() string { return e.state }

type numberErr struct{ n uint16 }

func (e *numberErr) Error() string  { return "number" }
func (e *numberErr) Number() uint16 { return e.n }

func TestCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
		ok   bool
	}{
		{"pgconn", &pgconn.PgError{Code: "23505"}, "23505", true},
		{"pq", &pq.Error{Code: "23503"}, "23503", true},
		{"mysql", &mysql.MySQLError{Number: 1062}, "1062", true},
		{"wrapped", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "40P01"}), "40P01", true},
		{"sqlstate interface", &sqlStateErr{state: "23514"}, "23514", true},
		{"number interface", &numberErr{n: 1213}, "1213", true},
		{"plain", errors.New("boom"), "", false},
		{"nil", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, ok := Code(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestClassifyByCode(t *testing.T) {
	t.Parallel()

	pg := pgDialect(t)
	assert.Equal(t, sqlmark.UniqueViolation, Classify(pg, &pgconn.PgError{Code: "23505"}))
	assert.Equal(t, sqlmark.DeadlockDetected, Classify(pg, &pq.Error{Code: "40P01"}))
	assert.Equal(t, sqlmark.Unknown, Classify(pg, &pgconn.PgError{Code: "42601"}))

	my, err := dialect.Lookup(dialect.ServerInfo{Product: "MySQL", Version: "8.0.36"})
	require.NoError(t, err)
	assert.Equal(t, sqlmark.LockTimeout, Classify(my, &mysql.MySQLError{Number: 1205}))
	assert.Equal(t, sqlmark.ForeignKeyViolation, Classify(my, &mysql.MySQLError{Number: 1452}))
}

// Errors without a native code still classify on the message text.
func TestClassifyByMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want sqlmark.ErrorKind
	}{
		{`pq: duplicate key value violates unique constraint "users_pkey"`, sqlmark.UniqueViolation},
		{"UNIQUE constraint failed: users.email", sqlmark.UniqueViolation},
		{`update or delete on table "users" violates foreign key constraint`, sqlmark.ForeignKeyViolation},
		{"FOREIGN KEY constraint failed", sqlmark.ForeignKeyViolation},
		{`new row for relation "users" violates check constraint "age_positive"`, sqlmark.CheckViolation},
		{"deadlock detected", sqlmark.DeadlockDetected},
		{"Deadlock found when trying to get lock; try restarting transaction", sqlmark.DeadlockDetected},
		{"Lock wait timeout exceeded; try restarting transaction", sqlmark.LockTimeout},
		{"database is locked", sqlmark.LockTimeout},
		{"syntax error at or near \"FORM\"", sqlmark.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, Classify(nil, errors.New(tt.msg)))
		})
	}
}

func TestClassifyNil(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sqlmark.Unknown, Classify(pgDialect(t), nil))
}

func TestSQLRethrow(t *testing.T) {
	t.Parallel()

	pg := pgDialect(t)
	query := "DELETE FROM \"orders\" WHERE \"id\" IN (1)"
	native := &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"}

	err := Rethrow(pg, native, query)
	require.Error(t, err)
	assert.True(t, sqlmark.IsForeignKeyViolation(err))
	assert.ErrorIs(t, err, native)

	var dbErr *sqlmark.DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, query, dbErr.SQL())

	// Already classified errors pass through untouched.
	assert.Same(t, err, Rethrow(pg, err, query))
	assert.NoError(t, Rethrow(pg, nil, query))
}

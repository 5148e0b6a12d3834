package sqlmark_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlmark"
)

func TestRethrow(t *testing.T) {
	t.Parallel()

	native := errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`)
	err := sqlmark.Rethrow(sqlmark.UniqueViolation, native, "INSERT INTO users (email) VALUES ('a@b.c')")
	require.Error(t, err)

	var dbErr *sqlmark.DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, sqlmark.UniqueViolation, dbErr.Kind())
	assert.Equal(t, "INSERT INTO users (email) VALUES ('a@b.c')", dbErr.SQL())
	assert.ErrorIs(t, err, native)
}

func TestRethrowNil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, sqlmark.Rethrow(sqlmark.Unknown, nil, "SELECT 1"))
}

// Rethrowing an already classified error must not wrap it again, even when
// it sits deeper in a wrap chain.
func TestRethrowNoDoubleWrap(t *testing.T) {
	t.Parallel()

	native := errors.New("deadlock found when trying to get lock")
	first := sqlmark.Rethrow(sqlmark.DeadlockDetected, native, "UPDATE t SET x = 1")
	second := sqlmark.Rethrow(sqlmark.Unknown, first, "UPDATE t SET x = 1")
	assert.Same(t, first, second)

	wrapped := fmt.Errorf("tx failed: %w", first)
	third := sqlmark.Rethrow(sqlmark.Unknown, wrapped, "UPDATE t SET x = 1")
	assert.Same(t, wrapped, third)
	assert.Equal(t, sqlmark.DeadlockDetected, sqlmark.KindOf(third))
}

func TestKindHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind  sqlmark.ErrorKind
		check func(error) bool
	}{
		{sqlmark.ForeignKeyViolation, sqlmark.IsForeignKeyViolation},
		{sqlmark.UniqueViolation, sqlmark.IsUniqueViolation},
		{sqlmark.CheckViolation, sqlmark.IsCheckViolation},
		{sqlmark.DeadlockDetected, sqlmark.IsDeadlockDetected},
		{sqlmark.LockTimeout, sqlmark.IsLockTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			t.Parallel()

			err := sqlmark.Rethrow(tt.kind, errors.New("native"), "DELETE FROM t")
			assert.True(t, tt.check(err))
			assert.Equal(t, tt.kind, sqlmark.KindOf(err))

			other := sqlmark.Rethrow(sqlmark.Unknown, errors.New("native"), "DELETE FROM t")
			assert.False(t, tt.check(other))
		})
	}
}

func TestKindHelpersNonDatabaseError(t *testing.T) {
	t.Parallel()

	err := errors.New("plain")
	assert.False(t, sqlmark.IsUniqueViolation(err))
	assert.False(t, sqlmark.IsForeignKeyViolation(nil))
	assert.Equal(t, sqlmark.Unknown, sqlmark.KindOf(err))
}

func TestErrorString(t *testing.T) {
	t.Parallel()

	err := sqlmark.Rethrow(sqlmark.CheckViolation, errors.New("boom"), "INSERT INTO t VALUES (1)")
	assert.Equal(t, "sqlmark: check violation: boom", err.Error())
	assert.Equal(t, "unknown", sqlmark.Unknown.String())
}

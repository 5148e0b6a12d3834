package sql

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsDriver(t *testing.T) {
	t.Parallel()

	drv, mock := mockDriver(t, "postgres")
	drv.Use(pgDialect(t))
	mock.ExpectExec("INSERT INTO \"t\" (\"id\") VALUES (1)").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO \"t\" (\"id\") VALUES (1)").WillReturnError(errors.New("boom"))
	mock.ExpectQuery("SELECT \"id\" FROM \"t\"").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	stats := NewStatsDriver(drv)
	ctx := context.Background()
	require.NoError(t, stats.Exec(ctx, "INSERT INTO \"t\" (\"id\") VALUES (1)", []any{}, nil))
	require.Error(t, stats.Exec(ctx, "INSERT INTO \"t\" (\"id\") VALUES (1)", []any{}, nil))
	var rows Rows
	require.NoError(t, stats.Query(ctx, "SELECT \"id\" FROM \"t\"", []any{}, &rows))
	rows.Close()

	snap := stats.QueryStats().Stats()
	assert.EqualValues(t, 2, snap.TotalExecs)
	assert.EqualValues(t, 1, snap.TotalQueries)
	assert.EqualValues(t, 1, snap.Errors)
	assert.Contains(t, snap.String(), "queries=1")

	stats.QueryStats().Reset()
	assert.EqualValues(t, 0, stats.QueryStats().Stats().TotalExecs)
}

func TestStatsDriverSlowHook(t *testing.T) {
	t.Parallel()

	drv, mock := mockDriver(t, "postgres")
	drv.Use(pgDialect(t))
	query := "SELECT \"id\" FROM \"t\""
	mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"id"}))

	var slow []string
	stats := NewStatsDriver(drv,
		// A negative threshold marks every statement slow.
		WithSlowThreshold(-time.Nanosecond),
		WithSlowQueryHook(func(_ context.Context, q string, _ time.Duration) {
			slow = append(slow, q)
		}),
	)
	var rows Rows
	require.NoError(t, stats.Query(context.Background(), query, []any{}, &rows))
	rows.Close()

	require.Len(t, slow, 1)
	assert.Equal(t, query, slow[0])
	assert.EqualValues(t, 1, stats.QueryStats().Stats().SlowQueries)
}

func TestStatsTx(t *testing.T) {
	t.Parallel()

	drv, mock := mockDriver(t, "postgres")
	drv.Use(pgDialect(t))
	query := "UPDATE \"t\" SET \"x\" = 1 WHERE \"id\" = 1"
	mock.ExpectBegin()
	mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	stats := NewStatsDriver(drv)
	tx, err := stats.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), query, []any{}, nil))
	require.NoError(t, tx.Commit())

	assert.EqualValues(t, 1, stats.QueryStats().Stats().TotalExecs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebugDriver(t *testing.T) {
	t.Parallel()

	drv, mock := mockDriver(t, "postgres")
	drv.Use(pgDialect(t))
	query := "INSERT INTO \"t\" (\"id\") VALUES (1)"
	mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectBegin()
	mock.ExpectCommit()

	debug := NewDebugDriver(drv)
	var logged []string
	debug.log = func(_ context.Context, v ...any) {
		var b strings.Builder
		for _, x := range v {
			b.WriteString(x.(string))
		}
		logged = append(logged, b.String())
	}

	require.NoError(t, debug.Exec(context.Background(), query, []any{}, nil))
	tx, err := debug.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.Len(t, logged, 3)
	assert.Equal(t, "exec: "+query, logged[0])
	assert.Equal(t, "begin transaction", logged[1])
	assert.Equal(t, "commit transaction", logged[2])
}

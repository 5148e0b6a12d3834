package dialect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlmark"
	"github.com/syssam/sqlmark/dialect"
	"github.com/syssam/sqlmark/schema"
)

func lookup(t *testing.T, product, version string) *dialect.Dialect {
	t.Helper()
	d, err := dialect.Lookup(dialect.ServerInfo{Product: product, Version: version})
	require.NoError(t, err)
	return d
}

func TestEscapeString(t *testing.T) {
	t.Parallel()

	pg := lookup(t, "PostgreSQL", "16.2")
	assert.Equal(t, "plain", pg.EscapeString("plain"))
	assert.Equal(t, "O''Brien", pg.EscapeString("O'Brien"))
	assert.Equal(t, `a\''b`, pg.EscapeString(`a\'b`))

	my := lookup(t, "MySQL", "8.0.36")
	assert.Equal(t, `a\\''b`, my.EscapeString(`a\'b`))
}

func TestFormatters(t *testing.T) {
	t.Parallel()

	pg := lookup(t, "PostgreSQL", "16.2")
	assert.Equal(t, "2026-08-30 09:30:00", pg.FormatTime(time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, "TRUE", pg.FormatBool(true))
	assert.Equal(t, `'\x0aff'`, pg.FormatBytes([]byte{0x0a, 0xff}))

	ora := lookup(t, "Oracle", "19.0")
	assert.Equal(t, "0", ora.FormatBool(false))
	assert.Equal(t, "X'0aff'", ora.FormatBytes([]byte{0x0a, 0xff}))
}

// Every engine's native diagnostic codes map onto the same semantic kinds.
func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		product string
		version string
		code    string
		want    sqlmark.ErrorKind
	}{
		{"PostgreSQL", "16.2", "23505", sqlmark.UniqueViolation},
		{"PostgreSQL", "16.2", "23503", sqlmark.ForeignKeyViolation},
		{"PostgreSQL", "16.2", "23514", sqlmark.CheckViolation},
		{"PostgreSQL", "16.2", "40P01", sqlmark.DeadlockDetected},
		{"PostgreSQL", "16.2", "55P03", sqlmark.LockTimeout},
		{"MySQL", "8.0.36", "1062", sqlmark.UniqueViolation},
		{"MySQL", "8.0.36", "1452", sqlmark.ForeignKeyViolation},
		{"MySQL", "8.0.36", "1213", sqlmark.DeadlockDetected},
		{"MySQL", "8.0.36", "1205", sqlmark.LockTimeout},
		{"SQLite", "3.39.4", "2067", sqlmark.UniqueViolation},
		{"SQLite", "3.39.4", "787", sqlmark.ForeignKeyViolation},
		{"SQLite", "3.39.4", "5", sqlmark.LockTimeout},
		{"Microsoft SQL Server", "16.0", "2627", sqlmark.UniqueViolation},
		{"Microsoft SQL Server", "16.0", "1205", sqlmark.DeadlockDetected},
		{"Oracle", "19.0", "1", sqlmark.UniqueViolation},
		{"Oracle", "19.0", "2291", sqlmark.ForeignKeyViolation},
		{"Oracle", "19.0", "60", sqlmark.DeadlockDetected},
		{"PostgreSQL", "16.2", "42601", sqlmark.Unknown},
		{"MySQL", "8.0.36", "", sqlmark.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.product+"/"+tt.code, func(t *testing.T) {
			t.Parallel()

			d := lookup(t, tt.product, tt.version)
			assert.Equal(t, tt.want, d.Classify(tt.code))
		})
	}
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	users := schema.NewTable("", "users", schema.Intern("id"))
	data := &dialect.Data{
		Table:   users,
		Records: []schema.Record{schema.NewRow(users).Set(schema.Intern("id"), 1)},
		Columns: []schema.Symbol{schema.Intern("id")},
	}

	// No pipeline registered for the operation.
	bare := dialect.New(dialect.Config{Name: "bare"})
	_, err := bare.Build(dialect.OpInsert, data)
	assert.Error(t, err)

	// Returned keys on an engine without a returned-row clause.
	my := lookup(t, "MySQL", "8.0.36")
	keyed := *data
	keyed.Mode = dialect.ResultKeys
	_, err = my.Build(dialect.OpInsert, &keyed)
	assert.Error(t, err)
}

func TestOpString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "insert", dialect.OpInsert.String())
	assert.Equal(t, "update", dialect.OpUpdate.String())
	assert.Equal(t, "delete", dialect.OpDelete.String())
	assert.Equal(t, "select", dialect.OpSelect.String())
}

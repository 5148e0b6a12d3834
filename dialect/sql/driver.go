// Package sql glues the core to database/sql: a Driver that detects the
// connected server's identity, executes compiled statements, and surfaces
// native driver errors through the semantic classifier.
package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/syssam/sqlmark/dialect"
)

// Driver is a dialect.Driver implementation over database/sql. Execution
// errors surface through the error classifier as *sqlmark.DatabaseError,
// carrying the SQL text that produced them.
type Driver struct {
	Conn
	name string
}

// NewDriver creates a Driver over c for the given database/sql driver name.
func NewDriver(name string, c Conn) *Driver {
	return &Driver{name: name, Conn: c}
}

// Open wraps database/sql.Open. The returned Driver has no Dialect
// descriptor yet; call Detect once connected, or Use to set one directly.
func Open(name, source string) (*Driver, error) {
	db, err := sql.Open(name, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(name, Conn{ExecQuerier: db}), nil
}

// OpenDB wraps an existing database/sql.DB.
func OpenDB(name string, db *sql.DB) *Driver {
	return NewDriver(name, Conn{ExecQuerier: db})
}

// DB returns the underlying *sql.DB instance.
func (d *Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect returns the active Dialect descriptor, nil before Detect or Use.
func (d *Driver) Dialect() *dialect.Dialect {
	return d.dialect
}

// Use sets the Dialect descriptor, bypassing server detection.
func (d *Driver) Use(dd *dialect.Dialect) *Driver {
	d.Conn.dialect = dd
	return d
}

// Detect probes the connected server for its product and version, resolves
// the matching Dialect through the default registry, and attaches it to the
// driver.
func (d *Driver) Detect(ctx context.Context) (*dialect.Dialect, error) {
	info, err := d.serverInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: detect server: %w", err)
	}
	dd, err := dialect.Lookup(info)
	if err != nil {
		return nil, err
	}
	d.Conn.dialect = dd
	return dd, nil
}

// serverInfo issues the product-specific version probe.
func (d *Driver) serverInfo(ctx context.Context) (dialect.ServerInfo, error) {
	var (
		info  dialect.ServerInfo
		probe string
	)
	switch family(d.name) {
	case dialect.Postgres:
		info.Product = "PostgreSQL"
		probe = "SELECT current_setting('server_version')"
	case dialect.MySQL:
		info.Product = "MySQL"
		probe = "SELECT VERSION()"
	case dialect.SQLite:
		info.Product = "SQLite"
		probe = "SELECT sqlite_version()"
	default:
		return info, fmt.Errorf("unsupported driver %q", d.name)
	}
	rows, err := d.ExecQuerier.QueryContext(ctx, probe)
	if err != nil {
		return info, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return info, err
		}
		return info, fmt.Errorf("version probe returned no rows")
	}
	var v string
	if err := rows.Scan(&v); err != nil {
		return info, err
	}
	// MySQL reports MariaDB builds as e.g. "10.6.12-MariaDB".
	if strings.Contains(v, "MariaDB") {
		info.Product = "MariaDB"
	}
	if i := strings.IndexByte(v, '-'); i > 0 {
		v = v[:i]
	}
	info.Version = v
	return info, rows.Err()
}

// family normalizes a database/sql driver name to a dialect family. Wrapped
// driver names ("pgx/v5", "sqlite3") keep their prefix.
func family(name string) string {
	switch {
	case strings.HasPrefix(name, "postgres"), strings.HasPrefix(name, "pgx"):
		return dialect.Postgres
	case strings.HasPrefix(name, "mysql"):
		return dialect.MySQL
	case strings.HasPrefix(name, "sqlite"):
		return dialect.SQLite
	}
	return name
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{ExecQuerier: tx, dialect: d.dialect},
		Tx:   tx,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx implements dialect.Tx.
type Tx struct {
	Conn
	driver.Tx
}

// ExecQuerier wraps the standard Exec and Query methods of database/sql.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.ExecQuerier over an ExecQuerier, classifying
// native errors on the way out.
type Conn struct {
	ExecQuerier
	dialect *dialect.Dialect
}

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string, args, v any) error {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	switch v := v.(type) {
	case nil:
		if _, err := c.ExecContext(ctx, query, argv...); err != nil {
			return Rethrow(c.dialect, err, query)
		}
	case *sql.Result:
		res, err := c.ExecContext(ctx, query, argv...)
		if err != nil {
			return Rethrow(c.dialect, err, query)
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	return nil
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	rows, err := c.QueryContext(ctx, query, argv...)
	if err != nil {
		return Rethrow(c.dialect, err, query)
	}
	*vr = Rows{rows}
	return nil
}

var _ dialect.Driver = (*Driver)(nil)

type (
	// Rows wraps sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// NullBool is an alias to sql.NullBool.
	NullBool = sql.NullBool
	// NullInt64 is an alias to sql.NullInt64.
	NullInt64 = sql.NullInt64
	// NullString is an alias to sql.NullString.
	NullString = sql.NullString
	// NullFloat64 is an alias to sql.NullFloat64.
	NullFloat64 = sql.NullFloat64
	// NullTime represents a time.Time that may be null.
	NullTime = sql.NullTime
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// ColumnScanner is the interface that wraps the standard sql.Rows methods
// used for scanning database rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}

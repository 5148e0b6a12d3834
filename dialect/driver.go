package dialect

import "context"

// ExecQuerier wraps the Exec and Query operations a connection or
// transaction exposes to the core. SQL text is always literal; args exist
// for drivers that still want placeholders and is normally empty.
type ExecQuerier interface {
	// Exec executes a statement that returns no rows. v is an optional
	// *sql.Result destination.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a statement that returns rows into v.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the connection contract the external transaction layer
// provides: synchronous execution plus transaction scoping. The core never
// retries through it; retry policy belongs to the caller.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(ctx context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
}

// Tx is a transaction handle.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

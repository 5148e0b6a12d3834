// Package batch groups records into statement batches that respect the
// dialect's bound-parameter budget and renders each batch through the
// dialect's fragment pipeline.
package batch

import (
	"errors"
	"fmt"
	"iter"

	"github.com/syssam/sqlmark/dialect"
	"github.com/syssam/sqlmark/schema"
)

// Precondition errors, reported before any SQL text is produced. They are
// fatal to the whole assembly, never batch-local, and never retried.
var (
	// ErrMixedTables is returned when the records do not all reference the
	// same table.
	ErrMixedTables = errors.New("batch: records reference different tables")

	// ErrNoChanges is returned when an update batch has no changed columns.
	ErrNoChanges = errors.New("batch: update requires at least one changed column")
)

// MissingKeyError is returned when a record contributing to an update or
// delete holds no value (or a null) for one of its key columns. Rendering
// such a predicate would silently match zero or unintended rows.
type MissingKeyError struct {
	Table  *schema.Table
	Column schema.Symbol
	Index  int // position of the record in the input
}

// Error returns the error string.
func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("batch: record %d of table %s has no value for key column %q",
		e.Index, e.Table, e.Column.Name())
}

// Batch is one compiled statement plus the records it covers. Batches are
// ephemeral: created per assembly call, intended for single-threaded,
// single-use consumption, and never cached.
type Batch struct {
	// Table all records belong to.
	Table *schema.Table
	// Records covered by the statement, in input order.
	Records []schema.Record
	// SQL is the compiled statement text.
	SQL string
	// Columns is the ordered union of changed columns the statement covers.
	Columns []schema.Symbol
	// Mode is the requested result mode.
	Mode dialect.ResultMode
}

// snapshot is the per-record cost and changed set, captured at assembly
// time. Costs are estimates for batch sizing only: engines that add
// implicit casts or extra literals may bind more, and collection cells
// count as a single slot.
type snapshot struct {
	rec     schema.Record
	cost    int
	changed []schema.Symbol
}

// Assemble groups records into parameter-budget-respecting batches for op
// and renders each through d's fragment pipeline. The sequence is lazy:
// each batch's SQL is built when the consumer reaches it, so execution of
// one batch may interleave with compilation of the next. Batches must be
// executed in the order produced. Re-consuming the sequence after mutating
// the records' changed flags is undefined; re-invoke Assemble instead.
func Assemble(d *dialect.Dialect, records []schema.Record, op dialect.Op, mode dialect.ResultMode) iter.Seq2[*Batch, error] {
	return func(yield func(*Batch, error) bool) {
		if len(records) == 0 {
			return
		}
		snaps, err := preflight(records, op)
		if err != nil {
			yield(nil, err)
			return
		}
		table := records[0].Table()
		var (
			acc     []snapshot
			accCost int
		)
		flush := func() bool {
			b, err := render(d, table, acc, op, mode)
			if err != nil {
				return yield(nil, err)
			}
			return yield(b, nil)
		}
		for _, s := range snaps {
			fits := len(acc) == 0 ||
				(accCost+s.cost < d.MaxParams() &&
					(op != dialect.OpUpdate || d.SupportsMultiRowUpdate()))
			if !fits {
				if !flush() {
					return
				}
				acc, accCost = acc[:0], 0
			}
			acc = append(acc, s)
			accCost += s.cost
		}
		if len(acc) > 0 {
			flush()
		}
	}
}

// preflight validates batch preconditions and captures per-record cost
// snapshots: insert costs the record's changed columns, update adds the key
// columns, delete costs the key columns alone.
func preflight(records []schema.Record, op dialect.Op) ([]snapshot, error) {
	table := records[0].Table()
	keys := table.Key().Symbols()
	snaps := make([]snapshot, len(records))
	for i, rec := range records {
		if rec.Table() != table {
			return nil, fmt.Errorf("%w: %s and %s", ErrMixedTables, table, rec.Table())
		}
		var changed []schema.Symbol
		if op == dialect.OpInsert || op == dialect.OpUpdate {
			for _, col := range rec.Columns() {
				if rec.Changed(col) {
					changed = append(changed, col)
				}
			}
		}
		if op == dialect.OpUpdate && len(changed) == 0 {
			return nil, fmt.Errorf("%w: record %d of table %s", ErrNoChanges, i, table)
		}
		if op == dialect.OpUpdate || op == dialect.OpDelete {
			for _, col := range keys {
				if v, ok := rec.Value(col); !ok || v == nil {
					return nil, &MissingKeyError{Table: table, Column: col, Index: i}
				}
			}
		}
		cost := len(changed)
		if op == dialect.OpUpdate || op == dialect.OpDelete {
			cost += len(keys)
		}
		if op == dialect.OpSelect {
			cost = len(keys)
		}
		snaps[i] = snapshot{rec: rec, cost: cost, changed: changed}
	}
	return snaps, nil
}

// render compiles one accumulated batch through the dialect pipeline.
func render(d *dialect.Dialect, table *schema.Table, acc []snapshot, op dialect.Op, mode dialect.ResultMode) (*Batch, error) {
	recs := make([]schema.Record, len(acc))
	var (
		cols []schema.Symbol
		seen = make(map[schema.Symbol]bool)
	)
	for i, s := range acc {
		recs[i] = s.rec
		for _, col := range s.changed {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	if op == dialect.OpSelect {
		// A key-predicate reload covers every column the records carry.
		for _, rec := range recs {
			for _, col := range rec.Columns() {
				if !seen[col] {
					seen[col] = true
					cols = append(cols, col)
				}
			}
		}
	}
	data := &dialect.Data{Table: table, Records: recs, Columns: cols, Mode: mode}
	sql, err := d.Build(op, data)
	if err != nil {
		return nil, err
	}
	return &Batch{Table: table, Records: recs, SQL: sql, Columns: cols, Mode: mode}, nil
}

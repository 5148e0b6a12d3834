package schema

// Record is the read contract the core expects from a mapped entity: column
// cell access with a changed-since-load flag. Records belong to exactly one
// Table. The core never mutates a record; callers own the cells.
type Record interface {
	// Table returns the table the record belongs to.
	Table() *Table

	// Value returns the value of the given column cell. The second return
	// is false when the record holds no cell for the column.
	Value(col Symbol) (any, bool)

	// Changed reports whether the column cell was modified since the record
	// was loaded.
	Changed(col Symbol) bool

	// Columns returns the record's columns in definition order.
	Columns() []Symbol
}

type cell struct {
	value   any
	changed bool
}

// Row is the concrete Record used by the mapping layer and by tests.
// Set marks the cell changed; Load does not, mirroring hydration from a
// result set.
type Row struct {
	table *Table
	cells map[Symbol]*cell
	order []Symbol
}

// NewRow returns an empty Row bound to table.
func NewRow(table *Table) *Row {
	return &Row{table: table, cells: make(map[Symbol]*cell)}
}

// Table returns the table the row belongs to.
func (r *Row) Table() *Table { return r.table }

// Set stores a value and marks the cell changed.
func (r *Row) Set(col Symbol, v any) *Row {
	c, ok := r.cells[col]
	if !ok {
		c = &cell{}
		r.cells[col] = c
		r.order = append(r.order, col)
	}
	c.value = v
	c.changed = true
	return r
}

// Load stores a value without marking the cell changed, as when hydrating
// the row from a database read.
func (r *Row) Load(col Symbol, v any) *Row {
	c, ok := r.cells[col]
	if !ok {
		c = &cell{}
		r.cells[col] = c
		r.order = append(r.order, col)
	}
	c.value = v
	c.changed = false
	return r
}

// Value returns the cell value for col.
func (r *Row) Value(col Symbol) (any, bool) {
	c, ok := r.cells[col]
	if !ok {
		return nil, false
	}
	return c.value, true
}

// Changed reports whether col was modified since load.
func (r *Row) Changed(col Symbol) bool {
	c, ok := r.cells[col]
	return ok && c.changed
}

// Columns returns the row's columns in insertion order.
func (r *Row) Columns() []Symbol {
	out := make([]Symbol, len(r.order))
	copy(out, r.order)
	return out
}

// ChangedColumns returns the columns modified since load, in column order.
func (r *Row) ChangedColumns() []Symbol {
	var out []Symbol
	for _, col := range r.order {
		if r.cells[col].changed {
			out = append(out, col)
		}
	}
	return out
}

// ResetChanged clears all changed flags, as after a successful flush.
func (r *Row) ResetChanged() {
	for _, c := range r.cells {
		c.changed = false
	}
}

var _ Record = (*Row)(nil)

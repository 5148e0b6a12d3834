package schema

import (
	"github.com/go-openapi/inflect"
)

// Table is a schema-qualified table identifier owning an ordered primary-key
// Composite. Tables are constructed once at mapping-definition time and
// never mutated.
type Table struct {
	schema string
	name   string
	key    Composite
}

// NewTable returns a Table in the given schema (empty for the default search
// path) with the given primary-key columns in order.
func NewTable(schema, name string, key ...Symbol) *Table {
	return &Table{schema: schema, name: name, key: NewComposite(key...)}
}

// Schema returns the schema name, or "" when unqualified.
func (t *Table) Schema() string { return t.schema }

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Key returns the primary-key composite.
func (t *Table) Key() Composite { return t.key }

// String returns the dot-joined qualified name without quoting.
func (t *Table) String() string {
	if t.schema == "" {
		return t.name
	}
	return t.schema + "." + t.name
}

// Tableize derives a conventional table name from an entity label,
// e.g. "OrderItem" becomes "order_items".
func Tableize(label string) string {
	return inflect.Tableize(label)
}

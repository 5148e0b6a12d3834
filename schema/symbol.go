package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrArity is returned when a composite key is bound to the wrong number
// of values.
var ErrArity = errors.New("schema: arity mismatch")

// symbols is the process-wide interning pool. It only ever grows, bounded
// by the number of distinct identifiers, and is safe for concurrent use.
var symbols sync.Map // string -> Symbol

// Symbol is an interned column or identifier name. Equality is value-based,
// so the same name interned by independent callers participates correctly
// in set membership (for example, changed-column tracking across templates).
type Symbol struct {
	name string
}

// Intern returns the Symbol for name, pooling equal names. It is idempotent:
// interning the same name any number of times yields equal Symbols.
func Intern(name string) Symbol {
	if s, ok := symbols.Load(name); ok {
		return s.(Symbol)
	}
	s, _ := symbols.LoadOrStore(name, Symbol{name: name})
	return s.(Symbol)
}

// Name returns the identifier name.
func (s Symbol) Name() string { return s.name }

// String returns the identifier name.
func (s Symbol) String() string { return s.name }

// Composite is an ordered, fixed-length list of Symbols forming a possibly
// multi-column key. Immutable once constructed.
type Composite struct {
	syms []Symbol
}

// NewComposite returns a Composite over the given key symbols in order.
func NewComposite(syms ...Symbol) Composite {
	c := Composite{syms: make([]Symbol, len(syms))}
	copy(c.syms, syms)
	return c
}

// Len returns the number of key columns.
func (c Composite) Len() int { return len(c.syms) }

// Symbols returns the key symbols in order.
func (c Composite) Symbols() []Symbol {
	out := make([]Symbol, len(c.syms))
	copy(out, c.syms)
	return out
}

// String returns the comma-joined key column names.
func (c Composite) String() string {
	names := make([]string, len(c.syms))
	for i, s := range c.syms {
		names[i] = s.Name()
	}
	return strings.Join(names, ", ")
}

// Value binds the composite to concrete values, forming a KeyValue usable
// to build WHERE predicates. The number of values must match the composite
// length.
func (c Composite) Value(values ...any) (KeyValue, error) {
	if len(values) != len(c.syms) {
		return KeyValue{}, fmt.Errorf("%w: composite (%s) has %d columns, got %d values",
			ErrArity, c, len(c.syms), len(values))
	}
	kv := KeyValue{key: c, values: make([]any, len(values))}
	copy(kv.values, values)
	return kv, nil
}

// KeyValue is a Composite bound to a tuple of runtime values.
type KeyValue struct {
	key    Composite
	values []any
}

// Key returns the composite the values are bound to.
func (kv KeyValue) Key() Composite { return kv.key }

// Values returns the bound values in key order.
func (kv KeyValue) Values() []any {
	out := make([]any, len(kv.values))
	copy(out, kv.values)
	return out
}

package schema_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlmark/schema"
)

func TestInternIdempotent(t *testing.T) {
	t.Parallel()

	a := schema.Intern("tribe_id")
	b := schema.Intern("tribe_id")
	assert.Equal(t, a, b)
	assert.Equal(t, "tribe_id", a.Name())

	// Value-based equality makes Symbols usable as map keys across
	// independent intern calls.
	seen := map[schema.Symbol]bool{a: true}
	assert.True(t, seen[schema.Intern("tribe_id")])
	assert.False(t, seen[schema.Intern("clan_id")])
}

func TestInternConcurrent(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	out := make([]schema.Symbol, 32)
	for i := range out {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = schema.Intern("concurrent_col")
		}(i)
	}
	wg.Wait()
	for _, s := range out {
		assert.Equal(t, out[0], s)
	}
}

func TestCompositeValue(t *testing.T) {
	t.Parallel()

	c := schema.NewComposite(schema.Intern("org_id"), schema.Intern("user_id"))
	require.Equal(t, 2, c.Len())

	kv, err := c.Value(7, 42)
	require.NoError(t, err)
	assert.Equal(t, []any{7, 42}, kv.Values())
	assert.Equal(t, 2, kv.Key().Len())
}

func TestCompositeArityError(t *testing.T) {
	t.Parallel()

	c := schema.NewComposite(schema.Intern("org_id"), schema.Intern("user_id"))
	_, err := c.Value(7)
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrArity)

	_, err = c.Value(1, 2, 3)
	assert.ErrorIs(t, err, schema.ErrArity)
}

func TestTable(t *testing.T) {
	t.Parallel()

	id := schema.Intern("id")
	users := schema.NewTable("app", "users", id)
	assert.Equal(t, "app", users.Schema())
	assert.Equal(t, "users", users.Name())
	assert.Equal(t, "app.users", users.String())
	assert.Equal(t, []schema.Symbol{id}, users.Key().Symbols())

	plain := schema.NewTable("", "users", id)
	assert.Equal(t, "users", plain.String())
}

func TestTableize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "order_items", schema.Tableize("OrderItem"))
	assert.Equal(t, "users", schema.Tableize("User"))
}

func TestRowChangedTracking(t *testing.T) {
	t.Parallel()

	id := schema.Intern("id")
	name := schema.Intern("name")
	email := schema.Intern("email")
	users := schema.NewTable("", "users", id)

	r := schema.NewRow(users)
	r.Load(id, 1).Load(name, "ariel")
	assert.False(t, r.Changed(id))
	assert.False(t, r.Changed(name))
	assert.Empty(t, r.ChangedColumns())

	r.Set(email, "a8m@example.com")
	assert.True(t, r.Changed(email))
	assert.Equal(t, []schema.Symbol{email}, r.ChangedColumns())
	assert.Equal(t, []schema.Symbol{id, name, email}, r.Columns())

	v, ok := r.Value(email)
	require.True(t, ok)
	assert.Equal(t, "a8m@example.com", v)

	_, ok = r.Value(schema.Intern("missing"))
	assert.False(t, ok)
	assert.False(t, r.Changed(schema.Intern("missing")))

	r.ResetChanged()
	assert.Empty(t, r.ChangedColumns())
}

func TestRowSetOverwrite(t *testing.T) {
	t.Parallel()

	name := schema.Intern("name")
	r := schema.NewRow(schema.NewTable("", "users", schema.Intern("id")))
	r.Load(name, "old")
	r.Set(name, "new")

	v, ok := r.Value(name)
	require.True(t, ok)
	assert.Equal(t, "new", v)
	assert.True(t, r.Changed(name))
	// Column order is stable even when a cell is rewritten.
	assert.Equal(t, []schema.Symbol{name}, r.Columns())
}

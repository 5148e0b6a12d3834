package dialect

import (
	"fmt"
	"strings"

	"github.com/syssam/sqlmark/compiler"
	"github.com/syssam/sqlmark/schema"
)

// The built-in fragment generators. Each appends one clause; dialects
// compose them into per-operation pipelines in ordered slices, so engines
// that place a clause elsewhere (OUTPUT before VALUES on SQL Server)
// reorder the pipeline rather than special-case the generator.

func quotedColumns(d *Dialect, cols []schema.Symbol) ([]string, error) {
	out := make([]string, len(cols))
	for i, col := range cols {
		s, err := compiler.Ident(d, col.Name())
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// cellValue renders the record's literal for col. A record contributing to
// a batch whose changed-column union is wider than its own changed set
// renders NULL for the columns it lacks.
func cellValue(d *Dialect, rec schema.Record, col schema.Symbol) (string, error) {
	v, ok := rec.Value(col)
	if !ok {
		return "NULL", nil
	}
	return compiler.Value(d, v)
}

// keyValue renders the record's literal for a key column. Key cells must
// exist and be non-null: a predicate built from a missing key would match
// zero or unintended rows.
func keyValue(d *Dialect, rec schema.Record, i int, col schema.Symbol) (string, error) {
	v, ok := rec.Value(col)
	if !ok || v == nil {
		return "", fmt.Errorf("dialect: record %d of table %s has no value for key column %q",
			i, rec.Table(), col.Name())
	}
	return compiler.Value(d, v)
}

func insertInto(b *strings.Builder, d *Dialect, data *Data) error {
	t, err := compiler.TableIdent(d, data.Table)
	if err != nil {
		return err
	}
	b.WriteString("INSERT INTO ")
	b.WriteString(t)
	return nil
}

func insertColumns(b *strings.Builder, d *Dialect, data *Data) error {
	cols, err := quotedColumns(d, data.Columns)
	if err != nil {
		return err
	}
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(")")
	return nil
}

func insertValues(b *strings.Builder, d *Dialect, data *Data) error {
	b.WriteString(" VALUES ")
	for i, rec := range data.Records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, col := range data.Columns {
			if j > 0 {
				b.WriteString(", ")
			}
			v, err := cellValue(d, rec, col)
			if err != nil {
				return err
			}
			b.WriteString(v)
		}
		b.WriteString(")")
	}
	return nil
}

// insertAll emulates multi-row INSERT on engines without one by wrapping N
// single-table inserts in the engine's multi-insert construct.
func insertAll(b *strings.Builder, d *Dialect, data *Data) error {
	t, err := compiler.TableIdent(d, data.Table)
	if err != nil {
		return err
	}
	cols, err := quotedColumns(d, data.Columns)
	if err != nil {
		return err
	}
	if len(data.Records) == 1 {
		b.WriteString("INSERT INTO ")
		b.WriteString(t)
		b.WriteString(" (")
		b.WriteString(strings.Join(cols, ", "))
		b.WriteString(")")
		return insertValues(b, d, data)
	}
	b.WriteString("INSERT ALL")
	for _, rec := range data.Records {
		b.WriteString(" INTO ")
		b.WriteString(t)
		b.WriteString(" (")
		b.WriteString(strings.Join(cols, ", "))
		b.WriteString(") VALUES (")
		for j, col := range data.Columns {
			if j > 0 {
				b.WriteString(", ")
			}
			v, err := cellValue(d, rec, col)
			if err != nil {
				return err
			}
			b.WriteString(v)
		}
		b.WriteString(")")
	}
	b.WriteString(" SELECT 1 FROM DUAL")
	return nil
}

// returningKeys appends the RETURNING clause with the primary-key columns
// when the caller requested returned rows.
func returningKeys(b *strings.Builder, d *Dialect, data *Data) error {
	if data.Mode != ResultKeys {
		return nil
	}
	cols, err := quotedColumns(d, data.Table.Key().Symbols())
	if err != nil {
		return err
	}
	b.WriteString(" RETURNING ")
	b.WriteString(strings.Join(cols, ", "))
	return nil
}

// outputKeys is the SQL Server form of returningKeys, placed before the
// VALUES clause in the pipeline.
func outputKeys(b *strings.Builder, d *Dialect, data *Data) error {
	if data.Mode != ResultKeys {
		return nil
	}
	cols, err := quotedColumns(d, data.Table.Key().Symbols())
	if err != nil {
		return err
	}
	b.WriteString(" OUTPUT ")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("INSERTED.")
		b.WriteString(c)
	}
	return nil
}

// updateSet renders the whole UPDATE body. A single record renders the
// plain SET ... WHERE keys form; several records render the row-valued
// UPDATE ... FROM (VALUES ...) form on engines that support it. The batch
// assembler never hands multi-record update batches to engines that don't.
func updateSet(b *strings.Builder, d *Dialect, data *Data) error {
	if len(data.Records) > 1 {
		if !d.multiRowUpdate {
			return fmt.Errorf("dialect: %s cannot update %d rows in one statement",
				d.name, len(data.Records))
		}
		return updateFromValues(b, d, data)
	}
	t, err := compiler.TableIdent(d, data.Table)
	if err != nil {
		return err
	}
	rec := data.Records[0]
	b.WriteString("UPDATE ")
	b.WriteString(t)
	b.WriteString(" SET ")
	for j, col := range data.Columns {
		if j > 0 {
			b.WriteString(", ")
		}
		c, err := compiler.Ident(d, col.Name())
		if err != nil {
			return err
		}
		v, err := cellValue(d, rec, col)
		if err != nil {
			return err
		}
		b.WriteString(c)
		b.WriteString(" = ")
		b.WriteString(v)
	}
	b.WriteString(" WHERE ")
	for j, col := range data.Table.Key().Symbols() {
		if j > 0 {
			b.WriteString(" AND ")
		}
		c, err := compiler.Ident(d, col.Name())
		if err != nil {
			return err
		}
		v, err := keyValue(d, rec, 0, col)
		if err != nil {
			return err
		}
		b.WriteString(c)
		b.WriteString(" = ")
		b.WriteString(v)
	}
	return nil
}

// updateFromValues renders a multi-row UPDATE joined against a VALUES row
// set aliased as "v": key columns first, then the changed columns that are
// not part of the key.
func updateFromValues(b *strings.Builder, d *Dialect, data *Data) error {
	t, err := compiler.TableIdent(d, data.Table)
	if err != nil {
		return err
	}
	keys := data.Table.Key().Symbols()
	inKey := make(map[schema.Symbol]bool, len(keys))
	for _, k := range keys {
		inKey[k] = true
	}
	var setCols []schema.Symbol
	for _, col := range data.Columns {
		if !inKey[col] {
			setCols = append(setCols, col)
		}
	}
	if len(setCols) == 0 {
		return fmt.Errorf("dialect: multi-row update of table %s changes only key columns", data.Table)
	}
	aliasCols := append(append([]schema.Symbol(nil), keys...), setCols...)
	quotedAlias, err := quotedColumns(d, aliasCols)
	if err != nil {
		return err
	}
	quotedSet, err := quotedColumns(d, setCols)
	if err != nil {
		return err
	}
	quotedKeys, err := quotedColumns(d, keys)
	if err != nil {
		return err
	}

	b.WriteString("UPDATE ")
	b.WriteString(t)
	b.WriteString(" SET ")
	for j, c := range quotedSet {
		if j > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c)
		b.WriteString(" = v.")
		b.WriteString(c)
	}
	b.WriteString(" FROM (VALUES ")
	for i, rec := range data.Records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, col := range keys {
			if j > 0 {
				b.WriteString(", ")
			}
			v, err := keyValue(d, rec, i, col)
			if err != nil {
				return err
			}
			b.WriteString(v)
		}
		for _, col := range setCols {
			b.WriteString(", ")
			v, err := cellValue(d, rec, col)
			if err != nil {
				return err
			}
			b.WriteString(v)
		}
		b.WriteString(")")
	}
	b.WriteString(") AS v (")
	b.WriteString(strings.Join(quotedAlias, ", "))
	b.WriteString(") WHERE ")
	for j, c := range quotedKeys {
		if j > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(t)
		b.WriteString(".")
		b.WriteString(c)
		b.WriteString(" = v.")
		b.WriteString(c)
	}
	return nil
}

func deleteFrom(b *strings.Builder, d *Dialect, data *Data) error {
	t, err := compiler.TableIdent(d, data.Table)
	if err != nil {
		return err
	}
	b.WriteString("DELETE FROM ")
	b.WriteString(t)
	return nil
}

// whereKeys appends the key predicate for every record in the batch:
// IN over a single-column key, an OR of conjunctions over a composite one.
func whereKeys(b *strings.Builder, d *Dialect, data *Data) error {
	keys := data.Table.Key().Symbols()
	if len(keys) == 0 {
		return fmt.Errorf("dialect: table %s has no primary key", data.Table)
	}
	b.WriteString(" WHERE ")
	if len(keys) == 1 {
		c, err := compiler.Ident(d, keys[0].Name())
		if err != nil {
			return err
		}
		b.WriteString(c)
		b.WriteString(" IN (")
		for i, rec := range data.Records {
			if i > 0 {
				b.WriteString(", ")
			}
			v, err := keyValue(d, rec, i, keys[0])
			if err != nil {
				return err
			}
			b.WriteString(v)
		}
		b.WriteString(")")
		return nil
	}
	quoted, err := quotedColumns(d, keys)
	if err != nil {
		return err
	}
	for i, rec := range data.Records {
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteString("(")
		for j, col := range keys {
			if j > 0 {
				b.WriteString(" AND ")
			}
			v, err := keyValue(d, rec, i, col)
			if err != nil {
				return err
			}
			b.WriteString(quoted[j])
			b.WriteString(" = ")
			b.WriteString(v)
		}
		b.WriteString(")")
	}
	return nil
}

func selectColumns(b *strings.Builder, d *Dialect, data *Data) error {
	cols, err := quotedColumns(d, data.Columns)
	if err != nil {
		return err
	}
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	return nil
}

func fromTable(b *strings.Builder, d *Dialect, data *Data) error {
	t, err := compiler.TableIdent(d, data.Table)
	if err != nil {
		return err
	}
	b.WriteString(" FROM ")
	b.WriteString(t)
	return nil
}

// standardPipelines is the ANSI-ish pipeline set shared by Postgres and
// SQLite. Other engines start here and override.
func standardPipelines() map[Op][]Fragment {
	return map[Op][]Fragment{
		OpInsert: {insertInto, insertColumns, insertValues, returningKeys},
		OpUpdate: {updateSet, returningKeys},
		OpDelete: {deleteFrom, whereKeys, returningKeys},
		OpSelect: {selectColumns, fromTable, whereKeys},
	}
}

func mysqlPipelines() map[Op][]Fragment {
	return map[Op][]Fragment{
		OpInsert: {insertInto, insertColumns, insertValues, returningKeys},
		OpUpdate: {updateSet, returningKeys},
		OpDelete: {deleteFrom, whereKeys, returningKeys},
		OpSelect: {selectColumns, fromTable, whereKeys},
	}
}

func sqlserverPipelines() map[Op][]Fragment {
	return map[Op][]Fragment{
		OpInsert: {insertInto, insertColumns, outputKeys, insertValues},
		OpUpdate: {updateSet},
		OpDelete: {deleteFrom, whereKeys},
		OpSelect: {selectColumns, fromTable, whereKeys},
	}
}

func oraclePipelines() map[Op][]Fragment {
	return map[Op][]Fragment{
		OpInsert: {insertAll},
		OpUpdate: {updateSet},
		OpDelete: {deleteFrom, whereKeys},
		OpSelect: {selectColumns, fromTable, whereKeys},
	}
}

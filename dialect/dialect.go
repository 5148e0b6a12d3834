// Package dialect provides immutable per-engine capability descriptors and
// the statement fragment pipelines that turn batched records into SQL.
//
// A Dialect is constructed once per detected server identity (see Registry)
// and is safe for concurrent reads. It encodes identifier quoting rules,
// the bound-parameter budget, returned-row and multi-row UPDATE support,
// multi-row INSERT emulation, and the lookup table from native diagnostic
// codes to the semantic error taxonomy in the root package.
package dialect

import (
	"fmt"
	"strings"
	"time"

	"github.com/syssam/sqlmark"
	"github.com/syssam/sqlmark/schema"
)

// Dialect name constants for the built-in engines.
const (
	Postgres  = "postgres"
	MySQL     = "mysql"
	MariaDB   = "mariadb"
	SQLite    = "sqlite"
	SQLServer = "sqlserver"
	Oracle    = "oracle"
)

// Op is a bulk statement operation.
type Op int

const (
	OpInsert Op = iota
	OpUpdate
	OpDelete
	OpSelect
)

// String returns the operation name.
func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpSelect:
		return "select"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// ResultMode selects what a rendered statement returns.
type ResultMode int

const (
	// ResultNone requests no returned rows.
	ResultNone ResultMode = iota
	// ResultKeys requests the primary-key columns of affected rows, via the
	// dialect's returned-row clause (RETURNING, OUTPUT). Building with
	// ResultKeys on a dialect without such a clause is an error.
	ResultKeys
)

// Data is the input to one fragment pipeline run: one batch worth of
// records over a single table.
type Data struct {
	Table *schema.Table
	// Records in input order. All belong to Table.
	Records []schema.Record
	// Columns is the ordered column set the statement covers: for INSERT
	// and UPDATE the union of changed columns across Records, for SELECT
	// the requested columns. Unused for DELETE.
	Columns []schema.Symbol
	Mode    ResultMode
}

// Fragment appends one clause of a statement to b. A dialect's pipeline for
// an operation is an ordered list of fragments invoked in sequence.
type Fragment func(b *strings.Builder, d *Dialect, data *Data) error

// Config carries the capability set a Dialect is built from. All maps and
// slices are copied by New; a constructed Dialect never changes.
type Config struct {
	Name string
	// Quote is the identifier quote rune, 0 for engines without identifier
	// quoting (the renderer then verifies identifiers against the safe
	// character set).
	Quote rune
	// SafeNameChars lists extra characters the server treats as safe in
	// unquoted identifiers, beyond letters, digits and underscore.
	SafeNameChars string
	// MaxParams is the engine's maximum bound-parameter count per
	// statement. The batch assembler uses it as a sizing heuristic; it is
	// an estimate, not an exact bound, since some engines add implicit
	// casts or extra literals.
	MaxParams int
	// Returning reports whether the engine has a returned-row clause.
	Returning bool
	// MultiRowUpdate reports whether one UPDATE statement can modify
	// several rows with distinct values. When false, the batch assembler
	// forces UPDATE batches of exactly one record.
	MultiRowUpdate bool
	// BackslashEscapes marks engines that treat backslash as an escape
	// character inside string literals.
	BackslashEscapes bool
	// NumericBools marks engines without boolean literals (rendered 1/0).
	NumericBools bool
	// HexBytesPrefix renders binary literals as X'..' when true, or the
	// engine-specific '\x..' form when false.
	HexBytesPrefix bool
	// Pipelines maps each operation to its ordered fragment list.
	Pipelines map[Op][]Fragment
	// ErrorCodes maps native diagnostic codes (SQLSTATE or vendor numeric
	// code as decimal string) to semantic error kinds.
	ErrorCodes map[string]sqlmark.ErrorKind
}

// Dialect is an immutable per-connection capability descriptor. Construct
// one with New or obtain a built-in through the Registry.
type Dialect struct {
	name             string
	quote            rune
	safeNameChars    string
	maxParams        int
	returning        bool
	multiRowUpdate   bool
	backslashEscapes bool
	numericBools     bool
	hexBytes         bool
	pipelines        map[Op][]Fragment
	codes            map[string]sqlmark.ErrorKind
}

// New builds a Dialect from cfg.
func New(cfg Config) *Dialect {
	d := &Dialect{
		name:             cfg.Name,
		quote:            cfg.Quote,
		safeNameChars:    cfg.SafeNameChars,
		maxParams:        cfg.MaxParams,
		returning:        cfg.Returning,
		multiRowUpdate:   cfg.MultiRowUpdate,
		backslashEscapes: cfg.BackslashEscapes,
		numericBools:     cfg.NumericBools,
		hexBytes:         cfg.HexBytesPrefix,
		pipelines:        make(map[Op][]Fragment, len(cfg.Pipelines)),
		codes:            make(map[string]sqlmark.ErrorKind, len(cfg.ErrorCodes)),
	}
	for op, frags := range cfg.Pipelines {
		d.pipelines[op] = append([]Fragment(nil), frags...)
	}
	for code, kind := range cfg.ErrorCodes {
		d.codes[code] = kind
	}
	return d
}

// Name returns the dialect name.
func (d *Dialect) Name() string { return d.name }

// QuoteRune returns the identifier quote rune, 0 when quoting is
// unsupported.
func (d *Dialect) QuoteRune() rune { return d.quote }

// SafeNameChars returns the extra unquoted-safe identifier characters.
func (d *Dialect) SafeNameChars() string { return d.safeNameChars }

// MaxParams returns the bound-parameter budget per statement.
func (d *Dialect) MaxParams() int { return d.maxParams }

// SupportsReturning reports whether the engine has a returned-row clause.
func (d *Dialect) SupportsReturning() bool { return d.returning }

// SupportsMultiRowUpdate reports whether one UPDATE can modify several rows
// with distinct values.
func (d *Dialect) SupportsMultiRowUpdate() bool { return d.multiRowUpdate }

// EscapeString escapes s for inclusion in a single-quoted literal: quote
// doubling, plus backslash doubling on engines where backslash escapes.
func (d *Dialect) EscapeString(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	if d.backslashEscapes {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return strings.ReplaceAll(s, "'", "''")
}

// FormatTime renders t in the canonical literal form, without quotes.
func (d *Dialect) FormatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// FormatBool renders a boolean literal.
func (d *Dialect) FormatBool(b bool) string {
	if d.numericBools {
		if b {
			return "1"
		}
		return "0"
	}
	if b {
		return "TRUE"
	}
	return "FALSE"
}

// FormatBytes renders a binary literal including delimiters.
func (d *Dialect) FormatBytes(b []byte) string {
	const hex = "0123456789abcdef"
	var sb strings.Builder
	if d.hexBytes {
		sb.WriteString("X'")
	} else {
		sb.WriteString(`'\x`)
	}
	for _, c := range b {
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}
	sb.WriteByte('\'')
	return sb.String()
}

// Classify maps a native diagnostic code to its semantic kind. Unmapped
// codes classify as Unknown; classification itself never fails.
func (d *Dialect) Classify(code string) sqlmark.ErrorKind {
	if kind, ok := d.codes[code]; ok {
		return kind
	}
	return sqlmark.Unknown
}

// Build runs the ordered fragment pipeline for op over data and returns the
// compiled statement text.
func (d *Dialect) Build(op Op, data *Data) (string, error) {
	frags, ok := d.pipelines[op]
	if !ok {
		return "", fmt.Errorf("dialect: %s has no pipeline for %s", d.name, op)
	}
	if data.Mode == ResultKeys && !d.returning {
		return "", fmt.Errorf("dialect: %s has no returned-row clause", d.name)
	}
	var b strings.Builder
	for _, f := range frags {
		if err := f(&b, d, data); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

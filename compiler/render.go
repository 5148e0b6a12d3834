package compiler

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/sqlmark/schema"
)

// render mode selected by the token modifier.
type mode int

const (
	modeValue mode = iota // quoted and escaped literal
	modeIdent             // quoted identifier
	modeRaw               // unescaped verbatim text
)

// QuoteError is returned when an identifier cannot be represented under the
// dialect's quoting rules: either quoting is unsupported and the identifier
// contains unsafe characters, or the identifier contains the quote character
// itself.
type QuoteError struct {
	Dialect string
	Ident   string
	msg     string
}

// Error returns the error string.
func (e *QuoteError) Error() string {
	return fmt.Sprintf("compiler: cannot quote %q for dialect %s: %s", e.Ident, e.Dialect, e.msg)
}

type quoteResult struct {
	quoted string
	err    error
}

// quoteCache memoizes quoting decisions per (dialect, identifier) pair.
// Append-only, safe for concurrent read and insert.
var quoteCache sync.Map // string -> quoteResult

// Ident renders name as an identifier for d, consulting and populating the
// quoting-decision cache. The cache key covers the dialect's quoting rules,
// not just its name, since a server may override the default quote string.
func Ident(d Dialect, name string) (string, error) {
	key := d.Name() + "\x00" + string(d.QuoteRune()) + d.SafeNameChars() + "\x00" + name
	if r, ok := quoteCache.Load(key); ok {
		res := r.(quoteResult)
		return res.quoted, res.err
	}
	res := quoteIdent(d, name)
	quoteCache.Store(key, res)
	return res.quoted, res.err
}

func quoteIdent(d Dialect, name string) quoteResult {
	q := d.QuoteRune()
	if q == 0 {
		if !safeIdent(name, d.SafeNameChars()) {
			return quoteResult{err: &QuoteError{
				Dialect: d.Name(), Ident: name,
				msg: "identifier contains unsafe characters and the dialect supports no quoting",
			}}
		}
		return quoteResult{quoted: name}
	}
	if strings.ContainsRune(name, q) {
		// No in-band escaping of the quote character is available.
		return quoteResult{err: &QuoteError{
			Dialect: d.Name(), Ident: name,
			msg: "identifier contains the quote character",
		}}
	}
	return quoteResult{quoted: string(q) + name + string(q)}
}

// safeIdent reports whether name consists only of letters, digits,
// underscore and the dialect's extra safe characters.
func safeIdent(name, extra string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		case strings.ContainsRune(extra, r):
		default:
			return false
		}
	}
	return true
}

// TableIdent renders the schema-qualified quoted name of t.
func TableIdent(d Dialect, t *schema.Table) (string, error) {
	name, err := Ident(d, t.Name())
	if err != nil {
		return "", err
	}
	if t.Schema() == "" {
		return name, nil
	}
	prefix, err := Ident(d, t.Schema())
	if err != nil {
		return "", err
	}
	return prefix + "." + name, nil
}

// Value renders v as a quoted value literal for d. It is the entry point
// fragment generators use for single values outside a template.
func Value(d Dialect, v any) (string, error) {
	return render(d, "", "", v, modeValue, "")
}

// render dispatches on the argument variant, first match wins.
func render(d Dialect, tpl, token string, arg any, m mode, name string) (string, error) {
	switch v := arg.(type) {
	case nil:
		if m == modeIdent {
			return "", errf(tpl, "#"+token+"#", "nil argument cannot be rendered as an identifier")
		}
		return "NULL", nil
	case *schema.Table:
		// Tables always render as identifiers, whatever the modifier.
		return TableIdent(d, v)
	case schema.Symbol:
		return Ident(d, v.Name())
	case *Template:
		if v.dialect != nil && v.dialect.Name() != d.Name() {
			return "", errf(tpl, "#"+token+"#", "nested template built for dialect %q, parent uses %q",
				v.dialect.Name(), d.Name())
		}
		sub, err := Compile(d, v.text, v.args...)
		if err != nil {
			return "", err
		}
		return "(" + sub + ")", nil
	case schema.Record:
		if name == "" {
			return "", errf(tpl, "#"+token+"#", "entity argument requires a column name")
		}
		cell, ok := v.Value(schema.Intern(name))
		if !ok {
			return "", errf(tpl, "#"+token+"#", "entity of table %s has no column %q", v.Table(), name)
		}
		return render(d, tpl, token, cell, m, "")
	case []byte:
		return renderScalar(d, tpl, token, v, m)
	case uuid.UUID:
		// An array kind, but rendered as one scalar, not element-wise.
		return renderScalar(d, tpl, token, v, m)
	}

	rv := reflect.ValueOf(arg)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := range parts {
			s, err := render(d, tpl, token, rv.Index(i).Interface(), m, name)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, ", "), nil
	case reflect.Map:
		if name == "" {
			return "", errf(tpl, "#"+token+"#", "map argument requires a key name")
		}
		kv := rv.MapIndex(reflect.ValueOf(name))
		if !kv.IsValid() {
			return "", errf(tpl, "#"+token+"#", "map argument has no key %q", name)
		}
		return render(d, tpl, token, kv.Interface(), m, "")
	}
	return renderScalar(d, tpl, token, arg, m)
}

// renderScalar renders a single scalar under the requested mode. Value mode
// quotes and escapes per the dialect's literal-encoding rules, identifier
// mode delegates to identifier quoting, raw mode emits the string form
// unescaped.
func renderScalar(d Dialect, tpl, token string, arg any, m mode) (string, error) {
	switch v := arg.(type) {
	case string:
		return finishScalar(d, v, m, true)
	case bool:
		return finishScalar(d, d.FormatBool(v), m, false)
	case int:
		return finishScalar(d, strconv.FormatInt(int64(v), 10), m, false)
	case int8:
		return finishScalar(d, strconv.FormatInt(int64(v), 10), m, false)
	case int16:
		return finishScalar(d, strconv.FormatInt(int64(v), 10), m, false)
	case int32:
		return finishScalar(d, strconv.FormatInt(int64(v), 10), m, false)
	case int64:
		return finishScalar(d, strconv.FormatInt(v, 10), m, false)
	case uint:
		return finishScalar(d, strconv.FormatUint(uint64(v), 10), m, false)
	case uint8:
		return finishScalar(d, strconv.FormatUint(uint64(v), 10), m, false)
	case uint16:
		return finishScalar(d, strconv.FormatUint(uint64(v), 10), m, false)
	case uint32:
		return finishScalar(d, strconv.FormatUint(uint64(v), 10), m, false)
	case uint64:
		return finishScalar(d, strconv.FormatUint(v, 10), m, false)
	case float32:
		return finishScalar(d, strconv.FormatFloat(float64(v), 'g', -1, 32), m, false)
	case float64:
		return finishScalar(d, strconv.FormatFloat(v, 'g', -1, 64), m, false)
	case time.Time:
		return finishScalar(d, d.FormatTime(v), m, true)
	case uuid.UUID:
		return finishScalar(d, v.String(), m, true)
	case []byte:
		if m == modeRaw {
			return string(v), nil
		}
		if m == modeIdent {
			return Ident(d, string(v))
		}
		return d.FormatBytes(v), nil
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			return "", errf(tpl, "#"+token+"#", "driver.Valuer failed: %v", err)
		}
		return render(d, tpl, token, dv, m, "")
	case fmt.Stringer:
		return finishScalar(d, v.String(), m, true)
	default:
		return finishScalar(d, fmt.Sprintf("%v", v), m, true)
	}
}

// finishScalar applies the mode to a scalar's string form. quoted reports
// whether value mode must wrap the form in single quotes.
func finishScalar(d Dialect, s string, m mode, quoted bool) (string, error) {
	switch m {
	case modeIdent:
		return Ident(d, s)
	case modeRaw:
		return s, nil
	default:
		if quoted {
			return "'" + d.EscapeString(s) + "'", nil
		}
		return s, nil
	}
}

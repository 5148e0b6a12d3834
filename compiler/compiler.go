// Package compiler expands markup templates into dialect-correct literal SQL.
//
// A template is ordinary SQL text with '#'-delimited tokens referencing
// positional arguments:
//
//	#1#        render argument 1 as a quoted value
//	#:1#       render argument 1 as a quoted identifier
//	#!1#       render argument 1 as raw, unescaped text
//	#1:name#   render the sub-field "name" of argument 1
//	##         a literal '#'
//
// Indexes are 1-based and may be referenced any number of times in any
// order. The produced SQL contains no bound parameters; every argument is
// rendered as a literal under the dialect's quoting and escaping rules.
package compiler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect is the narrow rendering contract the compiler needs from a
// database dialect. *dialect.Dialect implements it.
type Dialect interface {
	// Name identifies the dialect. Quoting decisions are cached per
	// (Name, identifier) pair.
	Name() string

	// QuoteRune returns the identifier quote character, or 0 when the
	// engine supports no identifier quoting.
	QuoteRune() rune

	// SafeNameChars returns extra characters (beyond letters, digits and
	// underscore) the engine treats as safe in unquoted identifiers.
	SafeNameChars() string

	// EscapeString escapes s for inclusion in a single-quoted literal.
	EscapeString(s string) string

	// FormatTime renders t in the engine's canonical literal form,
	// without surrounding quotes.
	FormatTime(t time.Time) string

	// FormatBool renders a boolean literal.
	FormatBool(b bool) string

	// FormatBytes renders a binary literal, including any delimiters.
	FormatBytes(b []byte) string
}

// Error is a template-compilation error. It references the offending
// template text and is never retried.
type Error struct {
	Template string
	Token    string
	msg      string
}

// Error returns the error string.
func (e *Error) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("compiler: %s at %q in template %q", e.msg, e.Token, e.Template)
	}
	return fmt.Sprintf("compiler: %s in template %q", e.msg, e.Template)
}

func errf(tpl, token, format string, args ...any) *Error {
	return &Error{Template: tpl, Token: token, msg: fmt.Sprintf(format, args...)}
}

// Template is a markup string bound to its positional arguments, optionally
// tagged with the dialect it is meant for. Templates may be passed as
// arguments to other templates, in which case they are compiled with the
// parent's dialect and inlined parenthesized, yielding a single statement.
type Template struct {
	text    string
	args    []any
	dialect Dialect
}

// New returns a Template over text and args.
func New(text string, args ...any) *Template {
	return &Template{text: text, args: args}
}

// Dialect tags the template with the dialect it was built for and returns
// the template. A nested template tagged with a different dialect than its
// parent fails compilation.
func (t *Template) Dialect(d Dialect) *Template {
	t.dialect = d
	return t
}

// Text returns the raw markup text.
func (t *Template) Text() string { return t.text }

// Args returns the positional arguments.
func (t *Template) Args() []any { return t.args }

// Compile expands the template against d.
func (t *Template) Compile(d Dialect) (string, error) {
	if t.dialect != nil && t.dialect.Name() != d.Name() {
		return "", errf(t.text, "", "template built for dialect %q compiled with %q",
			t.dialect.Name(), d.Name())
	}
	return Compile(d, t.text, t.args...)
}

// Compile expands the markup template tpl against args into literal SQL
// for d. Malformed tokens, out-of-range indexes and failed sub-field
// lookups return a *Error.
func Compile(d Dialect, tpl string, args ...any) (string, error) {
	var b strings.Builder
	b.Grow(len(tpl))
	for i := 0; i < len(tpl); {
		c := tpl[i]
		if c != '#' {
			b.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(tpl) && tpl[i+1] == '#' {
			b.WriteByte('#')
			i += 2
			continue
		}
		// A '#' opens a token only when a modifier or digit follows, so
		// previously compiled output containing a lone '#' stays literal.
		if i+1 >= len(tpl) || !tokenStart(tpl[i+1]) {
			b.WriteByte('#')
			i++
			continue
		}
		end := strings.IndexByte(tpl[i+1:], '#')
		if end < 0 {
			return "", errf(tpl, tpl[i:], "unterminated token")
		}
		token := tpl[i+1 : i+1+end]
		s, err := expand(d, tpl, token, args)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
		i += end + 2
	}
	return b.String(), nil
}

// tokenStart reports whether c can begin a token body: a render-mode
// modifier or the first digit of the argument index.
func tokenStart(c byte) bool {
	return c == ':' || c == '!' || (c >= '0' && c <= '9')
}

// expand resolves a single token body (the text between the '#' pair).
func expand(d Dialect, tpl, token string, args []any) (string, error) {
	mode := modeValue
	body := token
	switch {
	case strings.HasPrefix(body, ":"):
		mode = modeIdent
		body = body[1:]
	case strings.HasPrefix(body, "!"):
		mode = modeRaw
		body = body[1:]
	}
	name := ""
	if j := strings.IndexByte(body, ':'); j >= 0 {
		name = body[j+1:]
		body = body[:j]
	}
	idx, err := strconv.Atoi(body)
	if err != nil {
		return "", errf(tpl, "#"+token+"#", "non-numeric argument index %q", body)
	}
	if idx < 1 || idx > len(args) {
		return "", errf(tpl, "#"+token+"#", "argument index %d out of range [1, %d]", idx, len(args))
	}
	return render(d, tpl, token, args[idx-1], mode, name)
}

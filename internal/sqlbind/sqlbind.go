// Package sqlbind rewrites named "@name" placeholders in SQL text into the
// positional placeholders a driver understands.
//
// # Lexing
//
// The scanner understands enough PostgreSQL lexical structure to avoid
// touching text that only looks like a placeholder:
//
//   - 'single quoted' literals, with '' escapes
//   - E'escape' strings, where a backslash escapes the next byte
//   - "double quoted" identifiers
//   - $tag$ dollar quoted $tag$ bodies, unless the '$' continues an
//     identifier such as a$b$c
//   - -- line comments and nested /* block */ comments
//
// A placeholder is '@' followed by a letter or underscore, where the
// preceding character is not part of an identifier and not another '@'.
// Operators such as @>, <@ and @@ are left alone.
//
// # Example
//
//	q, names := sqlbind.Rewrite("SELECT * FROM t WHERE a = @a OR b = @a", sqlbind.Dollar)
//	// q     == "SELECT * FROM t WHERE a = $1 OR b = $1"
//	// names == []string{"a"}
package sqlbind

import (
	"strconv"
	"strings"
)

// Placeholder renders the positional placeholder for the n-th distinct
// parameter, starting at 1.
type Placeholder func(n int) string

// Dollar renders PostgreSQL style placeholders: $1, $2, ...
func Dollar(n int) string {
	return "$" + strconv.Itoa(n)
}

// Question renders ODBC/MySQL style placeholders. Every occurrence is a new
// argument, so repeated names are bound once per occurrence.
func Question(int) string {
	return "?"
}

// Rewrite replaces every named placeholder in query with format(n) and
// returns the parameter names in argument order.
//
// With Dollar, repeated names reuse their first position. With Question
// (or any format that yields the same text for every n) each occurrence
// takes its own position and the name appears once per occurrence.
func Rewrite(query string, format Placeholder) (string, []string) {
	reuse := format(1) != format(2)

	var (
		b     strings.Builder
		names []string
		pos   = make(map[string]int)
	)
	b.Grow(len(query))

	last := 0
	for _, tok := range scan(query) {
		b.WriteString(query[last:tok.start])
		last = tok.end

		if reuse {
			n, ok := pos[tok.name]
			if !ok {
				names = append(names, tok.name)
				n = len(names)
				pos[tok.name] = n
			}
			b.WriteString(format(n))
			continue
		}

		names = append(names, tok.name)
		b.WriteString(format(len(names)))
	}
	b.WriteString(query[last:])

	return b.String(), names
}

// Names returns the distinct placeholder names in order of first appearance.
func Names(query string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, tok := range scan(query) {
		if !seen[tok.name] {
			seen[tok.name] = true
			names = append(names, tok.name)
		}
	}
	return names
}

// token is one placeholder occurrence; start and end span the '@' and name.
type token struct {
	name       string
	start, end int
}

func scan(q string) []token {
	var toks []token
	i := 0
	for i < len(q) {
		c := q[i]
		switch {
		case c == '\'' && isEscapePrefix(q, i):
			i = skipEscaped(q, i)
		case c == '\'':
			i = skipQuoted(q, i, '\'')
		case c == '"':
			i = skipQuoted(q, i, '"')
		case c == '-' && i+1 < len(q) && q[i+1] == '-':
			i = skipLine(q, i)
		case c == '/' && i+1 < len(q) && q[i+1] == '*':
			i = skipBlock(q, i)
		case c == '$' && i > 0 && isIdentChar(q[i-1]):
			i++
		case c == '$':
			i = skipDollar(q, i)
		case c == '@':
			if i+1 < len(q) && isIdentStart(q[i+1]) && (i == 0 || !isIdentChar(q[i-1]) && q[i-1] != '@') {
				j := i + 1
				for j < len(q) && isIdentChar(q[j]) {
					j++
				}
				toks = append(toks, token{name: q[i+1 : j], start: i, end: j})
				i = j
				continue
			}
			// Operators like @@ and @> consume the run of '@'.
			for i < len(q) && q[i] == '@' {
				i++
			}
		default:
			i++
		}
	}
	return toks
}

// skipQuoted returns the index after the closing quote. A doubled quote is
// an escaped quote. Unterminated literals run to the end of the input.
func skipQuoted(q string, i int, quote byte) int {
	i++
	for i < len(q) {
		if q[i] == quote {
			if i+1 < len(q) && q[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

// isEscapePrefix reports whether the quote at i opens an E'...' string:
// it follows a standalone E or e.
func isEscapePrefix(q string, i int) bool {
	if i == 0 || (q[i-1] != 'E' && q[i-1] != 'e') {
		return false
	}
	return i == 1 || !isIdentChar(q[i-2]) && q[i-2] != '$'
}

// skipEscaped is skipQuoted for E'...' strings, where a backslash escapes
// the following byte.
func skipEscaped(q string, i int) int {
	i++
	for i < len(q) {
		switch q[i] {
		case '\\':
			i += 2
			continue
		case '\'':
			if i+1 < len(q) && q[i+1] == '\'' {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return min(i, len(q))
}

func skipLine(q string, i int) int {
	if j := strings.IndexByte(q[i:], '\n'); j >= 0 {
		return i + j + 1
	}
	return len(q)
}

// skipBlock handles nested block comments as PostgreSQL does.
func skipBlock(q string, i int) int {
	depth := 0
	for i < len(q) {
		switch {
		case q[i] == '/' && i+1 < len(q) && q[i+1] == '*':
			depth++
			i += 2
		case q[i] == '*' && i+1 < len(q) && q[i+1] == '/':
			depth--
			i += 2
			if depth == 0 {
				return i
			}
		default:
			i++
		}
	}
	return i
}

// skipDollar skips a $tag$...$tag$ body. A '$' that does not open a dollar
// quote (e.g. an existing $1 placeholder) is skipped on its own.
func skipDollar(q string, i int) int {
	j := i + 1
	for j < len(q) && q[j] != '$' {
		if !isIdentChar(q[j]) || (j == i+1 && q[j] >= '0' && q[j] <= '9') {
			return i + 1
		}
		j++
	}
	if j >= len(q) {
		return i + 1
	}

	tag := q[i : j+1]
	if k := strings.Index(q[j+1:], tag); k >= 0 {
		return j + 1 + k + len(tag)
	}
	return len(q)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

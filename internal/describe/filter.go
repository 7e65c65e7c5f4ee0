package describe

import "strings"

// Code marks a value as a code expression. The filter and the renderer
// pass Code through verbatim; it is never quoted.
type Code string

// Description is one plain serializable description object: a column, a
// relation, a table option map. Values are scalars, Code expressions, or
// nested descriptions.
type Description map[string]any

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// Filter returns a copy of d prepared for rendering: nil entries are
// dropped and plain string values are wrapped in single-quote literal
// syntax. Code values, booleans, and numbers pass through untouched;
// nested maps and slices are filtered recursively. Filtering an already
// filtered description is a no-op.
func Filter(d Description) Description {
	out := make(Description, len(d))
	for k, v := range d {
		fv, keep := filterValue(v)
		if !keep {
			continue
		}
		out[k] = fv
	}
	return out
}

func filterValue(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case string:
		return Quote(x), true
	case Code:
		return x, true
	case Description:
		return Filter(x), true
	case map[string]any:
		return Filter(Description(x)), true
	case []any:
		out := make([]any, 0, len(x))
		for _, e := range x {
			if fe, keep := filterValue(e); keep {
				out = append(out, fe)
			}
		}
		return out, true
	case []string:
		out := make([]any, 0, len(x))
		for _, s := range x {
			out = append(out, Quote(s))
		}
		return out, true
	default:
		return v, true
	}
}

// Quote wraps s in single quotes, escaping backslashes and embedded
// single quotes. Already-quoted strings are returned unchanged, which
// keeps the filter idempotent.
func Quote(s string) string {
	if isQuoted(s) {
		return s
	}
	return "'" + quoteEscaper.Replace(s) + "'"
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\''
}

// ClearDefault interprets a raw SQL default clause. A value wrapped in one
// pair of matching single or double quotes is unwrapped with doubled inner
// quotes of the same kind collapsed. Anything else (function calls,
// numeric literals, mismatched quoting) yields no default at all: quoted
// literals are the only defaults carried into model descriptions.
func ClearDefault(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if len(s) < 2 {
		return "", false
	}
	q := s[0]
	if q != '\'' && q != '"' {
		return "", false
	}
	if s[len(s)-1] != q {
		return "", false
	}
	inner := s[1 : len(s)-1]
	return strings.ReplaceAll(inner, string(q)+string(q), string(q)), true
}

package generate

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/leapstack-labs/modelgen/internal/describe"
)

//go:embed templates/model.js.tmpl
var modelTemplateText string

var modelTemplate = template.Must(template.New("model.js.tmpl").Parse(modelTemplateText))

// Canonical key orders. Keys listed here render first, in this order;
// anything else follows alphabetically, so output stays byte-identical
// across runs.
var (
	optionKeyOrder   = []string{"model", "file", "schema", "tableName", "description"}
	columnKeyOrder   = []string{"type", "primaryKey", "unique", "nullable", "autoIncrement", "default", "description", "columnName"}
	relationKeyOrder = []string{"type", "name", "model", "schema", "table", "foreignKey", "otherKey", "through", "constraint", "onUpdate", "onDelete"}
)

// Renderer turns model descriptions into model definition files.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() *Renderer {
	return &Renderer{tmpl: modelTemplate}
}

// Render produces the model file for one description. Descriptions arrive
// filtered, so string values carry their quotes and Code expressions
// render verbatim.
func (r *Renderer) Render(md describe.ModelDescription) ([]byte, error) {
	data := struct {
		Require    string
		Options    string
		Attributes string
		Relations  string
	}{
		Require:    md.TypeVariable,
		Options:    renderOptions(md.Options),
		Attributes: renderAttributes(md.Columns),
		Relations:  renderRelations(md.Relations),
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render model %s: %w", md.Model, err)
	}
	return buf.Bytes(), nil
}

func renderOptions(opts describe.Description) string {
	lines := make([]string, 0, len(opts))
	for _, k := range orderedKeys(opts, optionKeyOrder) {
		lines = append(lines, fmt.Sprintf("  %s: %s,", keyLiteral(k), renderValue(opts[k], 1)))
	}
	return strings.Join(lines, "\n")
}

func renderAttributes(cols []describe.Description) string {
	var b strings.Builder
	for _, c := range cols {
		name, _ := c["name"].(string)
		b.WriteString("    ")
		b.WriteString(keyLiteral(name))
		b.WriteString(": {\n")
		for _, k := range orderedKeys(c, columnKeyOrder) {
			if k == "name" {
				continue
			}
			fmt.Fprintf(&b, "      %s: %s,\n", keyLiteral(k), renderValue(c[k], 3))
		}
		b.WriteString("    },\n")
	}
	return b.String()
}

func renderRelations(rels []describe.Description) string {
	var b strings.Builder
	for _, rel := range rels {
		b.WriteString("    {\n")
		for _, k := range orderedKeys(rel, relationKeyOrder) {
			fmt.Fprintf(&b, "      %s: %s,\n", keyLiteral(k), renderValue(rel[k], 3))
		}
		b.WriteString("    },\n")
	}
	return b.String()
}

// orderedKeys returns the keys of d: the canonical ones present first,
// the rest sorted.
func orderedKeys(d describe.Description, canonical []string) []string {
	keys := make([]string, 0, len(d))
	seen := make(map[string]bool, len(canonical))
	for _, k := range canonical {
		if _, ok := d[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(d))
	for k := range d {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func renderValue(v any, depth int) string {
	switch x := v.(type) {
	case describe.Code:
		return string(x)
	case string:
		return x
	case describe.Description:
		return renderObject(x, depth)
	case map[string]any:
		return renderObject(describe.Description(x), depth)
	case []any:
		return renderArray(x, depth)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func renderObject(d describe.Description, depth int) string {
	if len(d) == 0 {
		return "{}"
	}
	pad := strings.Repeat("  ", depth+1)
	var b strings.Builder
	b.WriteString("{\n")
	for _, k := range orderedKeys(d, nil) {
		b.WriteString(pad)
		b.WriteString(keyLiteral(k))
		b.WriteString(": ")
		b.WriteString(renderValue(d[k], depth+1))
		b.WriteString(",\n")
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("}")
	return b.String()
}

func renderArray(xs []any, depth int) string {
	if len(xs) == 0 {
		return "[]"
	}
	pad := strings.Repeat("  ", depth+1)
	var b strings.Builder
	b.WriteString("[\n")
	for _, x := range xs {
		b.WriteString(pad)
		b.WriteString(renderValue(x, depth+1))
		b.WriteString(",\n")
	}
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("]")
	return b.String()
}

// keyLiteral renders an object key. Plain identifiers appear bare,
// quoted names that unwrap to identifiers lose their quotes, everything
// else keeps (or gains) quoting.
func keyLiteral(k string) string {
	if inner, wasQuoted := unquote(k); wasQuoted {
		if isIdentifier(inner) {
			return inner
		}
		return k
	}
	if isIdentifier(k) {
		return k
	}
	return describe.Quote(k)
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1], true
	}
	return s, false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

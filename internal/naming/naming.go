// Package naming derives model, file, and association accessor names from
// introspected identifiers. All functions are pure; inflection uses the
// fixed rule set shipped with jinzhu/inflection so the same input always
// yields the same name.
package naming

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jinzhu/inflection"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Options carries the per-table settings that shape accessor names. The
// walker resolves them from configuration for each owning table.
type Options struct {
	// CamelCase camel-cases relation accessor names.
	CamelCase bool

	// Prefix is prepended to foreign key columns without an _id suffix.
	Prefix string

	// StripFirstTable strips the owning table's literal name from hasMany
	// accessor names.
	StripFirstTable bool
}

var titler = cases.Title(language.Und, cases.NoLower)

// BelongsTo derives the accessor for the owning side of a foreign key
// column. A case-insensitive _id suffix is stripped to find the base name;
// columns without the suffix (or with nothing before it) fall back to the
// prefixed form instead. The result is cased and singularized.
func BelongsTo(column string, o Options) string {
	name, ok := stripIDSuffix(column)
	if !ok || name == "" {
		name = o.Prefix + "_" + column
	}
	if o.CamelCase {
		name = Camelize(name)
	}
	return inflection.Singular(name)
}

// HasMany derives the accessor for the collection of source rows attached
// to owner. The raw source table name is optionally stripped of the
// owner's literal name, cased, and pluralized.
func HasMany(source, owner string, o Options) string {
	name := source
	if o.StripFirstTable {
		name = stripOwnerPrefix(name, owner)
	}
	if o.CamelCase {
		name = Camelize(name)
	}
	return inflection.Plural(name)
}

// BelongsToMany derives the accessor for a many-to-many association: the
// pluralized belongsTo-name of the junction constraint pointing at the far
// side. Junction-realized hasMany accessors use the same derivation.
func BelongsToMany(farColumn string, o Options) string {
	return inflection.Plural(BelongsTo(farColumn, o))
}

// Model derives the model name for a table.
func Model(schemaName, table string, camelCase, useSchema bool) string {
	name := table
	if useSchema && schemaName != "" {
		name = schemaName + "_" + table
	}
	if camelCase {
		name = Camelize(name)
	}
	return name
}

// File derives the output file name for a table.
func File(schemaName, table string, useSchema bool) string {
	if useSchema && schemaName != "" {
		return schemaName + "_" + table + ".js"
	}
	return table + ".js"
}

// Column derives the attribute accessor for a column.
func Column(column string, camelCase bool) string {
	if camelCase {
		return Camelize(column)
	}
	return column
}

// Camelize joins _-, -- and space-separated segments into camelCase. The
// first segment keeps everything but its leading rune untouched, so names
// that are already camel-cased pass through unchanged.
func Camelize(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	if len(parts) == 0 {
		return name
	}

	var b strings.Builder
	for i, p := range parts {
		if i == 0 {
			r, size := utf8.DecodeRuneInString(p)
			b.WriteRune(unicode.ToLower(r))
			b.WriteString(p[size:])
			continue
		}
		b.WriteString(titler.String(p))
	}
	return b.String()
}

// stripIDSuffix removes a case-insensitive _id suffix. The second return
// reports whether the suffix was present at all.
func stripIDSuffix(column string) (string, bool) {
	const suffix = "_id"
	if len(column) < len(suffix) {
		return column, false
	}
	if strings.EqualFold(column[len(column)-len(suffix):], suffix) {
		return column[:len(column)-len(suffix)], true
	}
	return column, false
}

// stripOwnerPrefix removes the owner table's literal name plus one optional
// separator from the start of name. The original name is kept when nothing
// would remain.
func stripOwnerPrefix(name, owner string) string {
	if owner == "" || len(name) <= len(owner) {
		return name
	}
	if !strings.EqualFold(name[:len(owner)], owner) {
		return name
	}
	rest := strings.TrimLeft(name[len(owner):], "_-")
	if rest == "" {
		return name
	}
	return rest
}

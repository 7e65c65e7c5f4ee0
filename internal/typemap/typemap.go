// Package typemap maps introspected SQL type descriptors to the type
// tokens used in generated model definitions.
package typemap

import "strings"

// tokens maps a normalized SQL type name to its generator token. Dialect
// aliases from PostgreSQL, SQLite, and DuckDB share one table.
var tokens = map[string]string{
	"character varying": "string",
	"varying character": "string",
	"varchar":           "string",
	"nvarchar":          "string",
	"character":         "string",
	"char":              "string",
	"nchar":             "string",
	"bpchar":            "string",
	"enum":              "string",
	"set":               "string",

	"text":       "text",
	"tinytext":   "text",
	"mediumtext": "text",
	"longtext":   "text",
	"ntext":      "text",
	"citext":     "text",
	"clob":       "text",

	"integer":   "integer",
	"int":       "integer",
	"int4":      "integer",
	"int2":      "integer",
	"smallint":  "integer",
	"mediumint": "integer",
	"tinyint":   "integer",
	"serial":    "integer",
	"serial4":   "integer",
	"usmallint": "integer",
	"uinteger":  "integer",

	"bigint":    "bigInteger",
	"int8":      "bigInteger",
	"bigserial": "bigInteger",
	"serial8":   "bigInteger",
	"hugeint":   "bigInteger",
	"ubigint":   "bigInteger",

	"real":             "float",
	"float":            "float",
	"float4":           "float",
	"float8":           "float",
	"double":           "float",
	"double precision": "float",

	"numeric": "decimal",
	"decimal": "decimal",
	"money":   "decimal",

	"boolean": "boolean",
	"bool":    "boolean",
	"bit":     "boolean",

	"date": "date",

	"timestamp":                   "dateTime",
	"timestamptz":                 "dateTime",
	"timestamp with time zone":    "dateTime",
	"timestamp without time zone": "dateTime",
	"datetime":                    "dateTime",
	"smalldatetime":               "dateTime",
	"timestamp_s":                 "dateTime",
	"timestamp_ms":                "dateTime",
	"timestamp_ns":                "dateTime",

	"time":                   "time",
	"timetz":                 "time",
	"time with time zone":    "time",
	"time without time zone": "time",

	"bytea":     "binary",
	"blob":      "binary",
	"binary":    "binary",
	"varbinary": "binary",

	"json":  "json",
	"jsonb": "json",

	"uuid":             "uuid",
	"uniqueidentifier": "uuid",
}

// Token returns the generator token for a raw SQL type descriptor. Length
// and precision arguments are ignored; unrecognized types fall back to
// "string".
func Token(rawType string) string {
	name := normalize(rawType)
	if tok, ok := tokens[name]; ok {
		return tok
	}
	return "string"
}

// normalize lowercases the descriptor, drops length/precision arguments,
// and collapses internal whitespace: "CHARACTER VARYING(255)" becomes
// "character varying".
func normalize(rawType string) string {
	s := strings.ToLower(strings.TrimSpace(rawType))
	if i := strings.IndexByte(s, '('); i >= 0 {
		rest := ""
		if j := strings.IndexByte(s[i:], ')'); j >= 0 {
			rest = s[i+j+1:]
		}
		s = strings.TrimSpace(s[:i]) + rest
	}
	return strings.Join(strings.Fields(s), " ")
}

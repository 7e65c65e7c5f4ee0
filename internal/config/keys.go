package config

// Recognized generation keys. Every key can be overridden per table through
// the derived override path (see Resolved).
const (
	KeyRelationCamelCase   = "generate.relationAccessorCamelCase"
	KeyColumnCamelCase     = "generate.columnAccessorCamelCase"
	KeyModelCamelCase      = "generate.modelCamelCase"
	KeyUseSchemaName       = "generate.useSchemaName"
	KeyPrefixForBelongsTo  = "generate.prefixForBelongsTo"
	KeyStripFirstTable     = "generate.stripFirstTableFromHasMany"
	KeyHasManyThrough      = "generate.hasManyThrough"
	KeyBelongsToMany       = "generate.belongsToMany"
	KeyColumnDefault       = "generate.columnDefault"
	KeyColumnDescription   = "generate.columnDescription"
	KeyColumnAutoIncrement = "generate.columnAutoIncrement"
	KeyDataTypeVariable    = "generate.dataTypeVariable"
	KeySkipTable           = "generate.skipTable"
	KeyTableOptions        = "tableOptions"
)

// Shared defaults. The CLI loader layers Defaults under the file, the
// environment, and the flags; commands reuse the constants directly.
const (
	DefaultOutputDir = "models"
	DefaultWorkers   = 4
)

// Defaults returns the built-in generation defaults, the bottom layer of
// the configuration stack.
func Defaults() map[string]any {
	return map[string]any{
		KeyRelationCamelCase:   true,
		KeyColumnCamelCase:     false,
		KeyModelCamelCase:      true,
		KeyUseSchemaName:       false,
		KeyPrefixForBelongsTo:  "related",
		KeyStripFirstTable:     false,
		KeyHasManyThrough:      false,
		KeyBelongsToMany:       true,
		KeyColumnDefault:       false,
		KeyColumnDescription:   true,
		KeyColumnAutoIncrement: true,
		KeyDataTypeVariable:    "types",
		KeySkipTable:           []string{},
		KeyTableOptions:        map[string]any{},
	}
}

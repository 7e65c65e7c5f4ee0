package describe

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/modelgen/internal/config"
	"github.com/leapstack-labs/modelgen/internal/naming"
	"github.com/leapstack-labs/modelgen/pkg/schema"
)

// ModelDescription is the complete mapping output for one table.
type ModelDescription struct {
	Model  string
	File   string
	Schema string
	Table  string

	// Options is the filtered merge of per-table overrides, general
	// tableOptions, and the computed base options.
	Options Description

	// TypeVariable is the module column type expressions reference,
	// "" when types render as bare quoted tokens.
	TypeVariable string

	Columns       []Description
	HasMany       []Description
	BelongsTo     []Description
	BelongsToMany []Description

	// Relations is the combined list: hasMany, belongsTo, belongsToMany.
	Relations []Description
}

// CollisionError reports two relations on one table resolving to the same
// accessor name after all transformations.
type CollisionError struct {
	Table  string
	Name   string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf(
		"relation name collision on table %s: accessor %q is produced by both %s and %s; rename a column or set a tableOptionsOverride",
		e.Table, e.Name, e.First, e.Second,
	)
}

// Walk maps every retained table of the graph to a ModelDescription. The
// traversal is synchronous and deterministic; the graph is never mutated.
// Skipped tables are returned by qualified name. The first collision or
// configuration error aborts the walk.
func Walk(db *schema.Database, cfg *config.Resolved, logger *slog.Logger) ([]ModelDescription, []string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &walker{
		cfg:    cfg,
		logger: logger,
		skip:   SkipSet(cfg),
		names:  make(map[*schema.Table]tableNames),
	}

	// Names first, for every table: relation descriptions reference other
	// tables' (possibly overridden) model names, junctions included.
	for _, t := range db.AllTables() {
		w.names[t] = w.tableNames(t)
	}

	var models []ModelDescription
	var skipped []string
	for _, t := range db.AllTables() {
		if w.skipped(t) {
			skipped = append(skipped, t.QualifiedName())
			w.logger.Info("skipping table", "table", t.QualifiedName())
			continue
		}
		md, err := w.model(t)
		if err != nil {
			return nil, nil, err
		}
		models = append(models, *md)
	}
	return models, skipped, nil
}

type walker struct {
	cfg    *config.Resolved
	logger *slog.Logger
	skip   map[string]bool
	names  map[*schema.Table]tableNames
}

type tableNames struct {
	model string
	file  string

	// options is the raw (unfiltered) merged option map.
	options Description
}

// SkipSet returns the configured skipTable exclusions keyed exactly as
// written. Entries match either a bare or a schema-qualified table name.
func SkipSet(cfg *config.Resolved) map[string]bool {
	set := make(map[string]bool)
	for _, name := range cfg.Strings("", config.KeySkipTable) {
		set[name] = true
	}
	return set
}

// Skipped reports whether a skip set excludes the table under its bare
// or schema-qualified name.
func Skipped(skip map[string]bool, t *schema.Table) bool {
	return skip[t.Name] || skip[t.QualifiedName()]
}

func (w *walker) skipped(t *schema.Table) bool {
	return Skipped(w.skip, t)
}

// tableNames computes the model and file names for a table and merges its
// option map: override entries win over general tableOptions, which win
// over the computed base options. The merged model and file entries are
// authoritative, so an override renames the model and its output file.
func (w *walker) tableNames(t *schema.Table) tableNames {
	camel := w.cfg.Bool(t.Name, config.KeyModelCamelCase)
	useSchema := w.cfg.Bool(t.Name, config.KeyUseSchemaName)

	computed := Description{
		"model":     naming.Model(t.Schema.Name, t.Name, camel, useSchema),
		"file":      naming.File(t.Schema.Name, t.Name, useSchema),
		"schema":    t.Schema.Name,
		"tableName": t.Name,
	}
	if t.Comment != "" {
		computed["description"] = t.Comment
	}

	merged := Description(w.cfg.TableOptions(t.Name))
	for k, v := range computed {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}

	names := tableNames{options: merged}
	names.model = w.stringOption(t, merged, "model", computed["model"].(string))
	names.file = w.stringOption(t, merged, "file", computed["file"].(string))
	return names
}

// stringOption reads a string entry from the merged options, falling back
// to the computed value when a user override has the wrong type.
func (w *walker) stringOption(t *schema.Table, opts Description, key, computed string) string {
	v := opts[key]
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	if v != nil {
		w.logger.Warn("ignoring non-string table option", "table", t.QualifiedName(), "option", key)
		opts[key] = computed
	}
	return computed
}

// namingOptions resolves the accessor-shaping settings for one table. The
// belongsTo prefix is required as soon as the table participates in any
// relation: resolving it late would surface the missing key only for the
// odd column without an _id suffix.
func (w *walker) namingOptions(t *schema.Table) (naming.Options, error) {
	o := naming.Options{
		CamelCase:       w.cfg.Bool(t.Name, config.KeyRelationCamelCase),
		StripFirstTable: w.cfg.Bool(t.Name, config.KeyStripFirstTable),
	}
	if len(t.ForeignKeys) == 0 && len(t.Incoming) == 0 && len(t.Junctions) == 0 {
		return o, nil
	}
	if _, err := w.cfg.Require(t.Name, config.KeyPrefixForBelongsTo); err != nil {
		return o, err
	}
	o.Prefix = w.cfg.String(t.Name, config.KeyPrefixForBelongsTo)
	return o, nil
}

func (w *walker) typeVariable(t *schema.Table) string {
	v, ok := w.cfg.Lookup(t.Name, config.KeyDataTypeVariable)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// model maps one retained table.
func (w *walker) model(t *schema.Table) (*ModelDescription, error) {
	nopts, err := w.namingOptions(t)
	if err != nil {
		return nil, err
	}

	names := w.names[t]
	md := &ModelDescription{
		Model:   names.model,
		File:    names.file,
		Schema:  t.Schema.Name,
		Table:   t.Name,
		Options: Filter(names.options),
	}

	set := colSettings{
		accessorCamel:  w.cfg.Bool(t.Name, config.KeyColumnCamelCase),
		autoIncrement:  w.cfg.Bool(t.Name, config.KeyColumnAutoIncrement),
		includeDefault: w.cfg.Bool(t.Name, config.KeyColumnDefault),
		includeComment: w.cfg.Bool(t.Name, config.KeyColumnDescription),
		typeVariable:   w.typeVariable(t),
	}
	md.TypeVariable = set.typeVariable
	for _, c := range t.Columns {
		md.Columns = append(md.Columns, columnDescription(c, set))
	}

	through := w.cfg.Bool(t.Name, config.KeyHasManyThrough)
	b2m := w.cfg.Bool(t.Name, config.KeyBelongsToMany)

	// accessor name -> relation path, for collision detection. The
	// through-form hasMany and the belongsToMany of the same junction
	// path describe one association two ways and may share a name.
	seen := make(map[string]string)
	register := func(accessor, path string) error {
		if prev, ok := seen[accessor]; ok {
			if prev == path {
				return nil
			}
			return &CollisionError{Table: t.QualifiedName(), Name: accessor, First: prev, Second: path}
		}
		seen[accessor] = path
		return nil
	}

	for _, fk := range t.Incoming {
		src := fk.Table
		if src.IsJunction() && through {
			j := w.junctionFor(t, fk)
			if j == nil {
				continue
			}
			far := j.Far()
			if w.skipped(src) || w.skipped(far) {
				w.logRelationSkip(t, fk.Name, "hasMany")
				continue
			}
			accessor := naming.BelongsToMany(j.Target.Column.Name, nopts)
			if err := register(accessor, junctionPath(j)); err != nil {
				return nil, err
			}
			md.HasMany = append(md.HasMany, hasManyDescription(fk, far, accessor, w.names[far].model, w.names[j.Table].model))
			continue
		}

		if w.skipped(src) {
			w.logRelationSkip(t, fk.Name, "hasMany")
			continue
		}
		accessor := naming.HasMany(src.Name, t.Name, nopts)
		if err := register(accessor, constraintPath(fk)); err != nil {
			return nil, err
		}
		md.HasMany = append(md.HasMany, hasManyDescription(fk, src, accessor, w.names[src].model, ""))
	}

	if b2m {
		for _, j := range t.Junctions {
			if w.skipped(j.Table) || w.skipped(j.Far()) {
				w.logRelationSkip(t, j.Target.Name, "belongsToMany")
				continue
			}
			accessor := naming.BelongsToMany(j.Target.Column.Name, nopts)
			if err := register(accessor, junctionPath(j)); err != nil {
				return nil, err
			}
			md.BelongsToMany = append(md.BelongsToMany, belongsToManyDescription(j, accessor, w.names[j.Far()].model, w.names[j.Table].model))
		}
	}

	for _, fk := range t.ForeignKeys {
		if w.skipped(fk.RefTable) {
			w.logRelationSkip(t, fk.Name, "belongsTo")
			continue
		}
		accessor := naming.BelongsTo(fk.Column.Name, nopts)
		if err := register(accessor, constraintPath(fk)); err != nil {
			return nil, err
		}
		md.BelongsTo = append(md.BelongsTo, belongsToDescription(fk, accessor, w.names[fk.RefTable].model))
	}

	md.Relations = make([]Description, 0, len(md.HasMany)+len(md.BelongsTo)+len(md.BelongsToMany))
	md.Relations = append(md.Relations, md.HasMany...)
	md.Relations = append(md.Relations, md.BelongsTo...)
	md.Relations = append(md.Relations, md.BelongsToMany...)

	return md, nil
}

// junctionFor finds the junction path on t whose near constraint is fk.
func (w *walker) junctionFor(t *schema.Table, fk *schema.ForeignKey) *schema.Junction {
	for _, j := range t.Junctions {
		if j.Source == fk {
			return j
		}
	}
	return nil
}

func (w *walker) logRelationSkip(t *schema.Table, constraint, kind string) {
	w.logger.Info("skipping relation", "table", t.QualifiedName(), "constraint", constraint, "kind", kind)
}

func constraintPath(fk *schema.ForeignKey) string {
	return "constraint " + fk.Name + " on " + fk.Table.QualifiedName()
}

func junctionPath(j *schema.Junction) string {
	return "junction " + j.Table.QualifiedName() + " via " + j.Target.Name
}

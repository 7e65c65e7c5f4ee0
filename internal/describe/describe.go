// Package describe maps the introspected schema graph to per-table model
// descriptions: column attributes, belongsTo / hasMany / belongsToMany
// associations with derived accessor names, and merged table options.
//
// The package is the pure core of modelgen. It performs no I/O and keeps
// no state: output depends only on the graph and the resolved
// configuration, so the same inputs always produce the same descriptions.
package describe

import (
	"github.com/leapstack-labs/modelgen/internal/naming"
	"github.com/leapstack-labs/modelgen/internal/typemap"
	"github.com/leapstack-labs/modelgen/pkg/schema"
)

// colSettings carries the column-level toggles resolved for one table.
type colSettings struct {
	accessorCamel  bool
	autoIncrement  bool
	includeDefault bool
	includeComment bool
	typeVariable   string
}

// columnDescription builds the attribute description for one column.
// Boolean flags appear only when true; the default only when the raw
// clause clears (see ClearDefault).
func columnDescription(c *schema.Column, set colSettings) Description {
	d := Description{
		"name":       naming.Column(c.Name, set.accessorCamel),
		"columnName": c.Name,
		"type":       typeExpr(c.Type, set.typeVariable),
	}
	if c.PrimaryKey {
		d["primaryKey"] = true
	}
	if c.Unique {
		d["unique"] = true
	}
	if c.Nullable {
		d["nullable"] = true
	}
	if c.AutoIncrement && set.autoIncrement {
		d["autoIncrement"] = true
	}
	if set.includeDefault && c.Default != nil {
		if v, ok := ClearDefault(*c.Default); ok {
			d["default"] = v
		}
	}
	if set.includeComment && c.Comment != "" {
		d["description"] = c.Comment
	}
	return Filter(d)
}

// typeExpr builds the type expression for a column: a Code reference like
// types.integer, or the bare token when no receiver variable is
// configured (then quoted like any string).
func typeExpr(rawType, variable string) any {
	tok := typemap.Token(rawType)
	if variable == "" {
		return tok
	}
	return Code(variable + "." + tok)
}

// hasManyDescription builds a hasMany description. related is the table
// the accessor reaches: the constraint holder for the plain form, the far
// side of the junction for the through form (then throughModel names the
// junction model).
func hasManyDescription(fk *schema.ForeignKey, related *schema.Table, accessor, relatedModel, throughModel string) Description {
	d := Description{
		"type":       "hasMany",
		"name":       accessor,
		"model":      relatedModel,
		"schema":     related.Schema.Name,
		"table":      related.Name,
		"foreignKey": fk.Column.Name,
		"constraint": fk.Name,
	}
	if throughModel != "" {
		d["through"] = throughModel
	}
	if fk.OnUpdate != "" {
		d["onUpdate"] = fk.OnUpdate
	}
	if fk.OnDelete != "" {
		d["onDelete"] = fk.OnDelete
	}
	return Filter(d)
}

// belongsToDescription builds a belongsTo description for an outgoing
// constraint.
func belongsToDescription(fk *schema.ForeignKey, accessor, relatedModel string) Description {
	d := Description{
		"type":       "belongsTo",
		"name":       accessor,
		"model":      relatedModel,
		"schema":     fk.RefTable.Schema.Name,
		"table":      fk.RefTable.Name,
		"foreignKey": fk.Column.Name,
	}
	if fk.OnUpdate != "" {
		d["onUpdate"] = fk.OnUpdate
	}
	if fk.OnDelete != "" {
		d["onDelete"] = fk.OnDelete
	}
	return Filter(d)
}

// belongsToManyDescription builds a belongsToMany description for a
// junction path. foreignKey is the junction column pointing back at the
// owning table, otherKey the one pointing at the far side; the far
// constraint contributes the referential actions.
func belongsToManyDescription(j *schema.Junction, accessor, farModel, throughModel string) Description {
	d := Description{
		"type":       "belongsToMany",
		"name":       accessor,
		"model":      farModel,
		"schema":     j.Far().Schema.Name,
		"table":      j.Far().Name,
		"foreignKey": j.Source.Column.Name,
		"otherKey":   j.Target.Column.Name,
		"through":    throughModel,
	}
	if j.Target.OnUpdate != "" {
		d["onUpdate"] = j.Target.OnUpdate
	}
	if j.Target.OnDelete != "" {
		d["onDelete"] = j.Target.OnDelete
	}
	return Filter(d)
}

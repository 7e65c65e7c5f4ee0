package schema

// Database is the root of an introspected schema graph.
type Database struct {
	Name    string
	Schemas []*Schema
}

// Schema groups the tables of one database schema (namespace).
type Schema struct {
	Name   string
	Tables []*Table
}

// Table is one introspected base table.
type Table struct {
	Schema  *Schema
	Name    string
	Comment string

	// Columns in ordinal order.
	Columns []*Column

	// ForeignKeys holds the table's own (outgoing) constraints, ordered by
	// source column position.
	ForeignKeys []*ForeignKey

	// Incoming holds constraints on other tables that reference this one,
	// ordered by (source schema, source table, constraint name).
	Incoming []*ForeignKey

	// Junctions holds the derived many-to-many paths that start at this
	// table, ordered by (junction table, far constraint name).
	Junctions []*Junction
}

// Column is one introspected table column.
type Column struct {
	Table         *Table
	Name          string
	Type          string
	Position      int
	Nullable      bool
	PrimaryKey    bool
	Unique        bool
	AutoIncrement bool

	// Default is the raw introspected default clause, nil when the column
	// declares none.
	Default *string

	Comment string

	// ForeignKey is the constraint owned by this column, nil for plain
	// columns.
	ForeignKey *ForeignKey
}

// ForeignKey is a single-column foreign key constraint.
type ForeignKey struct {
	Name      string
	Table     *Table
	Column    *Column
	RefTable  *Table
	RefColumn *Column

	// OnUpdate and OnDelete carry the declared referential actions
	// ("CASCADE", "SET NULL", ...). Empty when the action is NO ACTION.
	OnUpdate string
	OnDelete string
}

// Junction is a derived many-to-many path: the owning table reaches the
// far side of Target through a junction table that carries exactly two
// single-column foreign keys.
type Junction struct {
	// Table is the junction table itself.
	Table *Table

	// Source links the junction back to the owning table.
	Source *ForeignKey

	// Target links the junction to the far side.
	Target *ForeignKey
}

// QualifiedName returns "schema.table", or the bare table name when the
// schema is unnamed.
func (t *Table) QualifiedName() string {
	if t.Schema == nil || t.Schema.Name == "" {
		return t.Name
	}
	return t.Schema.Name + "." + t.Name
}

// Column returns the named column, or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// IsJunction reports whether the table qualifies as a junction: exactly
// two foreign keys, both single column by construction.
func (t *Table) IsJunction() bool {
	return len(t.ForeignKeys) == 2
}

// AllTables returns every table in the graph in (schema, table) order.
func (d *Database) AllTables() []*Table {
	var tables []*Table
	for _, s := range d.Schemas {
		tables = append(tables, s.Tables...)
	}
	return tables
}

// Lookup returns the named table, or nil. An empty schema name matches any
// schema holding exactly that table name.
func (d *Database) Lookup(schemaName, tableName string) *Table {
	for _, s := range d.Schemas {
		if schemaName != "" && s.Name != schemaName {
			continue
		}
		for _, t := range s.Tables {
			if t.Name == tableName {
				return t
			}
		}
	}
	return nil
}

// Far returns the table on the far side of the junction path.
func (j *Junction) Far() *Table {
	return j.Target.RefTable
}

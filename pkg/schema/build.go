package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Facts is the flat introspection output of a database adapter, the input
// to Build.
type Facts struct {
	Database    string
	Tables      []TableFact
	Columns     []ColumnFact
	PrimaryKeys []KeyFact
	Uniques     []KeyFact
	ForeignKeys []ForeignKeyFact
}

// TableFact describes one base table.
type TableFact struct {
	Schema  string
	Name    string
	Comment string
}

// ColumnFact describes one column of a table.
type ColumnFact struct {
	Schema        string
	Table         string
	Name          string
	Type          string
	Position      int
	Nullable      bool
	AutoIncrement bool
	Default       *string
	Comment       string
}

// KeyFact marks one column as part of a primary key or as a single-column
// unique constraint.
type KeyFact struct {
	Schema string
	Table  string
	Column string
}

// ForeignKeyFact describes one foreign key constraint. Adapters report the
// full column lists; Build rejects anything that is not single column.
type ForeignKeyFact struct {
	Name       string
	Schema     string
	Table      string
	Columns    []string
	RefSchema  string
	RefTable   string
	RefColumns []string
	OnUpdate   string
	OnDelete   string
}

// CompositeKeyError reports a foreign key spanning more than one column.
// Composite keys cannot be mapped to single-accessor associations and are
// unsupported.
type CompositeKeyError struct {
	Constraint string
	Table      string
	Columns    []string
}

func (e *CompositeKeyError) Error() string {
	return fmt.Sprintf(
		"unsupported composite foreign key %q on table %s (columns: %s): only single-column foreign keys can be mapped to associations",
		e.Constraint, e.Table, strings.Join(e.Columns, ", "),
	)
}

// Build assembles the read-only schema graph from adapter facts.
//
// It validates the facts as it goes: duplicate tables, columns or foreign
// keys pointing at unknown tables, and composite foreign keys all fail the
// build. Schemas and tables come out sorted by name, columns by ordinal
// position, so a given set of facts always produces the same graph.
func Build(facts Facts) (*Database, error) {
	db := &Database{Name: facts.Database}

	schemas := make(map[string]*Schema)
	tables := make(map[string]*Table)

	key := func(schema, table string) string { return schema + "\x00" + table }

	for _, tf := range facts.Tables {
		s, ok := schemas[tf.Schema]
		if !ok {
			s = &Schema{Name: tf.Schema}
			schemas[tf.Schema] = s
			db.Schemas = append(db.Schemas, s)
		}
		if _, exists := tables[key(tf.Schema, tf.Name)]; exists {
			return nil, fmt.Errorf("duplicate table %s.%s in introspection output", tf.Schema, tf.Name)
		}
		t := &Table{Schema: s, Name: tf.Name, Comment: tf.Comment}
		tables[key(tf.Schema, tf.Name)] = t
		s.Tables = append(s.Tables, t)
	}

	sort.Slice(db.Schemas, func(i, j int) bool { return db.Schemas[i].Name < db.Schemas[j].Name })
	for _, s := range db.Schemas {
		sort.Slice(s.Tables, func(i, j int) bool { return s.Tables[i].Name < s.Tables[j].Name })
	}

	for _, cf := range facts.Columns {
		t, ok := tables[key(cf.Schema, cf.Table)]
		if !ok {
			return nil, fmt.Errorf("column %s belongs to unknown table %s.%s", cf.Name, cf.Schema, cf.Table)
		}
		if t.Column(cf.Name) != nil {
			return nil, fmt.Errorf("duplicate column %s on table %s", cf.Name, t.QualifiedName())
		}
		t.Columns = append(t.Columns, &Column{
			Table:         t,
			Name:          cf.Name,
			Type:          cf.Type,
			Position:      cf.Position,
			Nullable:      cf.Nullable,
			AutoIncrement: cf.AutoIncrement,
			Default:       cf.Default,
			Comment:       cf.Comment,
		})
	}
	for _, t := range tables {
		cols := t.Columns
		sort.Slice(cols, func(i, j int) bool {
			if cols[i].Position != cols[j].Position {
				return cols[i].Position < cols[j].Position
			}
			return cols[i].Name < cols[j].Name
		})
	}

	for _, pk := range facts.PrimaryKeys {
		c, err := lookupColumn(tables, key(pk.Schema, pk.Table), pk)
		if err != nil {
			return nil, fmt.Errorf("primary key: %w", err)
		}
		c.PrimaryKey = true
	}
	for _, u := range facts.Uniques {
		c, err := lookupColumn(tables, key(u.Schema, u.Table), u)
		if err != nil {
			return nil, fmt.Errorf("unique constraint: %w", err)
		}
		c.Unique = true
	}

	for _, ff := range facts.ForeignKeys {
		t, ok := tables[key(ff.Schema, ff.Table)]
		if !ok {
			return nil, fmt.Errorf("foreign key %q belongs to unknown table %s.%s", ff.Name, ff.Schema, ff.Table)
		}
		if len(ff.Columns) != 1 || len(ff.RefColumns) != 1 {
			if len(ff.Columns) == 0 {
				return nil, fmt.Errorf("foreign key %q on table %s has no columns", ff.Name, t.QualifiedName())
			}
			return nil, &CompositeKeyError{Constraint: ff.Name, Table: t.QualifiedName(), Columns: ff.Columns}
		}

		col := t.Column(ff.Columns[0])
		if col == nil {
			return nil, fmt.Errorf("foreign key %q references unknown column %s on table %s", ff.Name, ff.Columns[0], t.QualifiedName())
		}
		ref, ok := tables[key(ff.RefSchema, ff.RefTable)]
		if !ok {
			return nil, fmt.Errorf("foreign key %q on table %s references unknown table %s.%s", ff.Name, t.QualifiedName(), ff.RefSchema, ff.RefTable)
		}
		refCol := ref.Column(ff.RefColumns[0])
		if refCol == nil {
			return nil, fmt.Errorf("foreign key %q on table %s references unknown column %s.%s", ff.Name, t.QualifiedName(), ref.QualifiedName(), ff.RefColumns[0])
		}

		fk := &ForeignKey{
			Name:      ff.Name,
			Table:     t,
			Column:    col,
			RefTable:  ref,
			RefColumn: refCol,
			OnUpdate:  normalizeAction(ff.OnUpdate),
			OnDelete:  normalizeAction(ff.OnDelete),
		}
		if col.ForeignKey == nil {
			col.ForeignKey = fk
		}
		t.ForeignKeys = append(t.ForeignKeys, fk)
		ref.Incoming = append(ref.Incoming, fk)
	}

	for _, t := range tables {
		fks := t.ForeignKeys
		sort.Slice(fks, func(i, j int) bool {
			if fks[i].Column.Position != fks[j].Column.Position {
				return fks[i].Column.Position < fks[j].Column.Position
			}
			return fks[i].Name < fks[j].Name
		})
		in := t.Incoming
		sort.Slice(in, func(i, j int) bool {
			a, b := in[i], in[j]
			if a.Table.QualifiedName() != b.Table.QualifiedName() {
				return a.Table.QualifiedName() < b.Table.QualifiedName()
			}
			return a.Name < b.Name
		})
	}

	deriveJunctions(db)

	return db, nil
}

func lookupColumn(tables map[string]*Table, tableKey string, k KeyFact) (*Column, error) {
	t, ok := tables[tableKey]
	if !ok {
		return nil, fmt.Errorf("unknown table %s.%s", k.Schema, k.Table)
	}
	c := t.Column(k.Column)
	if c == nil {
		return nil, fmt.Errorf("unknown column %s on table %s", k.Column, t.QualifiedName())
	}
	return c, nil
}

// deriveJunctions registers a many-to-many path on both endpoint tables of
// every junction. A table with exactly two foreign keys is a junction; a
// junction whose constraints point at the same table yields one path per
// direction.
func deriveJunctions(db *Database) {
	for _, t := range db.AllTables() {
		if !t.IsJunction() {
			continue
		}
		near, far := t.ForeignKeys[0], t.ForeignKeys[1]
		near.RefTable.Junctions = append(near.RefTable.Junctions, &Junction{Table: t, Source: near, Target: far})
		far.RefTable.Junctions = append(far.RefTable.Junctions, &Junction{Table: t, Source: far, Target: near})
	}
	for _, t := range db.AllTables() {
		js := t.Junctions
		sort.Slice(js, func(i, j int) bool {
			a, b := js[i], js[j]
			if a.Table.QualifiedName() != b.Table.QualifiedName() {
				return a.Table.QualifiedName() < b.Table.QualifiedName()
			}
			return a.Target.Name < b.Target.Name
		})
	}
}

// normalizeAction drops the implicit NO ACTION so descriptions only carry
// meaningful referential actions.
func normalizeAction(action string) string {
	a := strings.ToUpper(strings.TrimSpace(action))
	if a == "" || a == "NO ACTION" {
		return ""
	}
	return a
}

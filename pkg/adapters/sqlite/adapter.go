// Package sqlite provides the SQLite introspection adapter for modelgen.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/modelgen/pkg/adapter"
	"github.com/leapstack-labs/modelgen/pkg/schema"

	_ "modernc.org/sqlite" // cgo-free sqlite driver
)

// schemaName is the only schema SQLite exposes through this adapter.
const schemaName = "main"

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Name returns the dialect name for this adapter.
func (a *Adapter) Name() string {
	return "sqlite"
}

// Connect opens the SQLite database at cfg.Path.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// Introspect reads the structural metadata of the database. SQLite exposes
// a single schema, so every table reports under "main" and any other
// requested schema names are ignored.
func (a *Adapter) Introspect(ctx context.Context, schemas []string) (*schema.Facts, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	if len(schemas) > 0 && !(len(schemas) == 1 && schemas[0] == schemaName) {
		a.Logger.Warn("sqlite has a single schema; ignoring schema selection", slog.Any("schemas", schemas))
	}

	tables, err := a.listTables(ctx)
	if err != nil {
		return nil, err
	}

	facts := &schema.Facts{Database: a.databaseName()}
	pks := make(map[string][]string)

	for _, table := range tables {
		facts.Tables = append(facts.Tables, schema.TableFact{Schema: schemaName, Name: table})
		if err := a.introspectColumns(ctx, table, facts, pks); err != nil {
			return nil, err
		}
		if err := a.introspectUniques(ctx, table, facts); err != nil {
			return nil, err
		}
	}

	// Second pass so that implicit references can resolve against the
	// primary keys collected above regardless of table order.
	for _, table := range tables {
		if err := a.introspectForeignKeys(ctx, table, pks, facts); err != nil {
			return nil, err
		}
	}

	a.Logger.Debug("introspected schema",
		slog.Int("tables", len(facts.Tables)),
		slog.Int("columns", len(facts.Columns)),
		slog.Int("foreign_keys", len(facts.ForeignKeys)))
	return facts, nil
}

// databaseName derives a display name for the database, preferring the
// configured name over the file path.
func (a *Adapter) databaseName() string {
	if a.Cfg.Database != "" {
		return a.Cfg.Database
	}
	path := a.Cfg.Path
	if path == "" || path == ":memory:" {
		return "memory"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (a *Adapter) listTables(ctx context.Context) ([]string, error) {
	query := `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := a.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

func (a *Adapter) introspectColumns(ctx context.Context, table string, facts *schema.Facts, pks map[string][]string) error {
	rows, err := a.DB.QueryContext(ctx, "PRAGMA table_info("+quoteIdent(table)+")")
	if err != nil {
		return fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	type pkCol struct {
		ord  int
		name string
	}
	var (
		cols   []schema.ColumnFact
		pkCols []pkCol
	)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			def              sql.NullString
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &def, &pk); err != nil {
			return fmt.Errorf("failed to scan column row of %s: %w", table, err)
		}

		cf := schema.ColumnFact{
			Schema:   schemaName,
			Table:    table,
			Name:     name,
			Type:     typ,
			Position: cid + 1,
			// table_info reports notnull 0 for INTEGER PRIMARY KEY
			// columns even though the rowid alias never holds NULL.
			Nullable: notNull == 0 && pk == 0,
		}
		if def.Valid {
			d := def.String
			cf.Default = &d
		}
		if pk > 0 {
			pkCols = append(pkCols, pkCol{ord: pk, name: name})
		}
		cols = append(cols, cf)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating columns of %s: %w", table, err)
	}

	sort.Slice(pkCols, func(i, j int) bool { return pkCols[i].ord < pkCols[j].ord })
	for _, pc := range pkCols {
		facts.PrimaryKeys = append(facts.PrimaryKeys, schema.KeyFact{Schema: schemaName, Table: table, Column: pc.name})
		pks[table] = append(pks[table], pc.name)
	}

	// A single INTEGER primary key aliases the rowid and auto-assigns on
	// insert.
	if len(pkCols) == 1 {
		for i := range cols {
			if cols[i].Name == pkCols[0].name && strings.EqualFold(cols[i].Type, "INTEGER") {
				cols[i].AutoIncrement = true
			}
		}
	}

	facts.Columns = append(facts.Columns, cols...)
	return nil
}

func (a *Adapter) introspectUniques(ctx context.Context, table string, facts *schema.Facts) error {
	rows, err := a.DB.QueryContext(ctx, "PRAGMA index_list("+quoteIdent(table)+")")
	if err != nil {
		return fmt.Errorf("failed to read indexes of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var uniques []string
	for rows.Next() {
		var (
			seq, unique, partial int
			name, origin         string
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return fmt.Errorf("failed to scan index row of %s: %w", table, err)
		}
		// Primary key indexes are covered by table_info; partial indexes
		// do not constrain the whole table.
		if unique == 1 && origin != "pk" && partial == 0 {
			uniques = append(uniques, name)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating indexes of %s: %w", table, err)
	}

	for _, index := range uniques {
		cols, err := a.indexColumns(ctx, index)
		if err != nil {
			return err
		}
		// Single-column unique indexes mark the column; composite and
		// expression indexes have no column to mark.
		if len(cols) == 1 && cols[0] != "" {
			facts.Uniques = append(facts.Uniques, schema.KeyFact{Schema: schemaName, Table: table, Column: cols[0]})
		}
	}
	return nil
}

func (a *Adapter) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := a.DB.QueryContext(ctx, "PRAGMA index_info("+quoteIdent(index)+")")
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", index, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString // NULL for expression index columns
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, fmt.Errorf("failed to scan index column row of %s: %w", index, err)
		}
		cols = append(cols, name.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index columns of %s: %w", index, err)
	}
	return cols, nil
}

func (a *Adapter) introspectForeignKeys(ctx context.Context, table string, pks map[string][]string, facts *schema.Facts) error {
	rows, err := a.DB.QueryContext(ctx, "PRAGMA foreign_key_list("+quoteIdent(table)+")")
	if err != nil {
		return fmt.Errorf("failed to read foreign keys of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[int]*schema.ForeignKeyFact)
	implicit := make(map[int]bool)
	var order []int

	for rows.Next() {
		var (
			id, seq                                   int
			refTable, from, onUpdate, onDelete, match string
			to                                        sql.NullString
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return fmt.Errorf("failed to scan foreign key row of %s: %w", table, err)
		}

		f, ok := byID[id]
		if !ok {
			f = &schema.ForeignKeyFact{
				Schema:    schemaName,
				Table:     table,
				RefSchema: schemaName,
				RefTable:  refTable,
				OnUpdate:  onUpdate,
				OnDelete:  onDelete,
			}
			byID[id] = f
			order = append(order, id)
		}
		f.Columns = append(f.Columns, from)
		if to.Valid {
			f.RefColumns = append(f.RefColumns, to.String)
		} else {
			implicit[id] = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating foreign keys of %s: %w", table, err)
	}

	for _, id := range order {
		f := byID[id]
		// SQLite does not name foreign key constraints; synthesize a
		// stable name from the table and its columns.
		f.Name = fmt.Sprintf("%s_%s_fkey", table, strings.Join(f.Columns, "_"))

		// A reference without explicit columns targets the primary key of
		// the referenced table.
		if implicit[id] {
			pk := pks[f.RefTable]
			if len(pk) != len(f.Columns) {
				return fmt.Errorf("foreign key %q on table %s references %s without explicit columns, and its primary key could not be resolved",
					f.Name, table, f.RefTable)
			}
			f.RefColumns = pk
		}

		facts.ForeignKeys = append(facts.ForeignKeys, *f)
	}
	return nil
}

// quoteIdent wraps an identifier in double quotes for use in PRAGMA
// statements, which do not accept bound parameters.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)

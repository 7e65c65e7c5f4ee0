// Package postgres provides the PostgreSQL introspection adapter for
// modelgen.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver
	"github.com/leapstack-labs/modelgen/pkg/adapter"
	"github.com/leapstack-labs/modelgen/pkg/schema"
)

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
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
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

// Introspect reads the structural metadata for the given schemas.
func (a *Adapter) Introspect(ctx context.Context, schemas []string) (*schema.Facts, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	if len(schemas) == 0 {
		schemas = []string{"public"}
	}

	facts := &schema.Facts{Database: a.Cfg.Database}

	if err := a.introspectTables(ctx, schemas, facts); err != nil {
		return nil, err
	}
	if err := a.introspectColumns(ctx, schemas, facts); err != nil {
		return nil, err
	}
	if err := a.introspectKeys(ctx, schemas, facts); err != nil {
		return nil, err
	}
	if err := a.introspectForeignKeys(ctx, schemas, facts); err != nil {
		return nil, err
	}

	a.Logger.Debug("introspected schema",
		slog.Int("tables", len(facts.Tables)),
		slog.Int("columns", len(facts.Columns)),
		slog.Int("foreign_keys", len(facts.ForeignKeys)))
	return facts, nil
}

func (a *Adapter) introspectTables(ctx context.Context, schemas []string, facts *schema.Facts) error {
	query := fmt.Sprintf(`
		SELECT n.nspname, c.relname, COALESCE(obj_description(c.oid, 'pg_class'), '')
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'p') AND n.nspname IN (%s)
		ORDER BY n.nspname, c.relname
	`, adapter.DollarPlaceholders(1, len(schemas)))

	rows, err := a.DB.QueryContext(ctx, query, adapter.Args(schemas)...)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var tf schema.TableFact
		if err := rows.Scan(&tf.Schema, &tf.Name, &tf.Comment); err != nil {
			return fmt.Errorf("failed to scan table row: %w", err)
		}
		facts.Tables = append(facts.Tables, tf)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating tables: %w", err)
	}
	return nil
}

func (a *Adapter) introspectColumns(ctx context.Context, schemas []string, facts *schema.Facts) error {
	query := fmt.Sprintf(`
		SELECT c.table_schema, c.table_name, c.column_name, c.data_type,
			c.ordinal_position, c.is_nullable, c.column_default, c.is_identity,
			COALESCE(col_description(pc.oid, c.ordinal_position), '')
		FROM information_schema.columns c
		JOIN pg_catalog.pg_namespace pn ON pn.nspname = c.table_schema
		JOIN pg_catalog.pg_class pc ON pc.relnamespace = pn.oid AND pc.relname = c.table_name
		WHERE c.table_schema IN (%s) AND pc.relkind IN ('r', 'p')
		ORDER BY c.table_schema, c.table_name, c.ordinal_position
	`, adapter.DollarPlaceholders(1, len(schemas)))

	rows, err := a.DB.QueryContext(ctx, query, adapter.Args(schemas)...)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cf       schema.ColumnFact
			nullable string
			def      sql.NullString
			identity string
		)
		if err := rows.Scan(&cf.Schema, &cf.Table, &cf.Name, &cf.Type,
			&cf.Position, &nullable, &def, &identity, &cf.Comment); err != nil {
			return fmt.Errorf("failed to scan column row: %w", err)
		}
		cf.Nullable = nullable == "YES"
		cf.AutoIncrement = identity == "YES"
		if def.Valid && def.String != "" {
			if strings.HasPrefix(def.String, "nextval(") {
				cf.AutoIncrement = true
			}
			d := stripCast(def.String)
			cf.Default = &d
		}
		facts.Columns = append(facts.Columns, cf)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating columns: %w", err)
	}
	return nil
}

func (a *Adapter) introspectKeys(ctx context.Context, schemas []string, facts *schema.Facts) error {
	query := fmt.Sprintf(`
		SELECT tc.table_schema, tc.table_name, kcu.column_name,
			tc.constraint_type, tc.constraint_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = tc.constraint_schema
			AND kcu.constraint_name = tc.constraint_name
		WHERE tc.table_schema IN (%s)
			AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE')
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name, kcu.ordinal_position
	`, adapter.DollarPlaceholders(1, len(schemas)))

	rows, err := a.DB.QueryContext(ctx, query, adapter.Args(schemas)...)
	if err != nil {
		return fmt.Errorf("failed to query key constraints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type keyGroup struct {
		kind string
		cols []schema.KeyFact
	}
	groups := make(map[string]*keyGroup)
	var order []string

	for rows.Next() {
		var schemaName, tableName, columnName, kind, constraint string
		if err := rows.Scan(&schemaName, &tableName, &columnName, &kind, &constraint); err != nil {
			return fmt.Errorf("failed to scan key constraint row: %w", err)
		}
		k := schemaName + "." + constraint
		g, ok := groups[k]
		if !ok {
			g = &keyGroup{kind: kind}
			groups[k] = g
			order = append(order, k)
		}
		g.cols = append(g.cols, schema.KeyFact{Schema: schemaName, Table: tableName, Column: columnName})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating key constraints: %w", err)
	}

	// Every primary key column counts; a unique constraint marks its
	// column only when it spans exactly one.
	for _, k := range order {
		g := groups[k]
		switch {
		case g.kind == "PRIMARY KEY":
			facts.PrimaryKeys = append(facts.PrimaryKeys, g.cols...)
		case len(g.cols) == 1:
			facts.Uniques = append(facts.Uniques, g.cols[0])
		}
	}
	return nil
}

func (a *Adapter) introspectForeignKeys(ctx context.Context, schemas []string, facts *schema.Facts) error {
	query := fmt.Sprintf(`
		SELECT rc.constraint_name,
			kcu.table_schema, kcu.table_name, kcu.column_name,
			rkcu.table_schema, rkcu.table_name, rkcu.column_name,
			rc.update_rule, rc.delete_rule
		FROM information_schema.referential_constraints rc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = rc.constraint_schema
			AND kcu.constraint_name = rc.constraint_name
		JOIN information_schema.key_column_usage rkcu
			ON rkcu.constraint_schema = rc.unique_constraint_schema
			AND rkcu.constraint_name = rc.unique_constraint_name
			AND rkcu.ordinal_position = kcu.position_in_unique_constraint
		WHERE kcu.table_schema IN (%s)
		ORDER BY kcu.table_schema, kcu.table_name, rc.constraint_name, kcu.ordinal_position
	`, adapter.DollarPlaceholders(1, len(schemas)))

	rows, err := a.DB.QueryContext(ctx, query, adapter.Args(schemas)...)
	if err != nil {
		return fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byName := make(map[string]*schema.ForeignKeyFact)
	var order []string

	for rows.Next() {
		var name, schemaName, tableName, columnName string
		var refSchema, refTable, refColumn, updateRule, deleteRule string
		if err := rows.Scan(&name, &schemaName, &tableName, &columnName,
			&refSchema, &refTable, &refColumn, &updateRule, &deleteRule); err != nil {
			return fmt.Errorf("failed to scan foreign key row: %w", err)
		}
		k := schemaName + "." + name
		f, ok := byName[k]
		if !ok {
			f = &schema.ForeignKeyFact{
				Name:      name,
				Schema:    schemaName,
				Table:     tableName,
				RefSchema: refSchema,
				RefTable:  refTable,
				OnUpdate:  updateRule,
				OnDelete:  deleteRule,
			}
			byName[k] = f
			order = append(order, k)
		}
		f.Columns = append(f.Columns, columnName)
		f.RefColumns = append(f.RefColumns, refColumn)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating foreign keys: %w", err)
	}

	// Composite constraints surface with their full column lists; the
	// graph build is where they get rejected.
	for _, k := range order {
		facts.ForeignKeys = append(facts.ForeignKeys, *byName[k])
	}
	return nil
}

// Column defaults arrive with a trailing type cast, like
// "'active'::character varying". The cast never survives into model
// descriptions.
var castSuffix = regexp.MustCompile(`::[a-zA-Z_][a-zA-Z0-9_ ."\[\]]*$`)

func stripCast(def string) string {
	return castSuffix.ReplaceAllString(def, "")
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)

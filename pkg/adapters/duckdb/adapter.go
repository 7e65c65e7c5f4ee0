// Package duckdb provides the DuckDB introspection adapter for modelgen.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/leapstack-labs/modelgen/pkg/adapter"
	"github.com/leapstack-labs/modelgen/pkg/schema"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
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
	return "duckdb"
}

// Connect opens the DuckDB database at cfg.Path.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildDuckDBDSN(cfg)

	a.Logger.Debug("connecting to duckdb", slog.String("path", cfg.Path))

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildDuckDBDSN constructs a DuckDB connection string. Options pass
// through as configuration query parameters, like access_mode=read_only.
func buildDuckDBDSN(cfg adapter.Config) string {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	if len(cfg.Options) == 0 {
		return path
	}

	params := url.Values{}
	for k, v := range cfg.Options {
		params.Set(k, v)
	}
	return path + "?" + params.Encode()
}

// Introspect reads the structural metadata for the given schemas using
// DuckDB's catalog functions.
func (a *Adapter) Introspect(ctx context.Context, schemas []string) (*schema.Facts, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	if len(schemas) == 0 {
		schemas = []string{"main"}
	}

	facts := &schema.Facts{Database: a.databaseName()}

	if err := a.introspectTables(ctx, schemas, facts); err != nil {
		return nil, err
	}
	if err := a.introspectColumns(ctx, schemas, facts); err != nil {
		return nil, err
	}
	if err := a.introspectConstraints(ctx, schemas, facts); err != nil {
		return nil, err
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

func (a *Adapter) introspectTables(ctx context.Context, schemas []string, facts *schema.Facts) error {
	query := fmt.Sprintf(`
		SELECT schema_name, table_name, COALESCE(comment, '')
		FROM duckdb_tables()
		WHERE NOT internal AND schema_name IN (%s)
		ORDER BY schema_name, table_name
	`, adapter.QuestionPlaceholders(len(schemas)))

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
		SELECT schema_name, table_name, column_name, data_type,
			column_index, is_nullable, column_default, COALESCE(comment, '')
		FROM duckdb_columns()
		WHERE NOT internal AND schema_name IN (%s)
		ORDER BY schema_name, table_name, column_index
	`, adapter.QuestionPlaceholders(len(schemas)))

	rows, err := a.DB.QueryContext(ctx, query, adapter.Args(schemas)...)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			cf  schema.ColumnFact
			def sql.NullString
		)
		if err := rows.Scan(&cf.Schema, &cf.Table, &cf.Name, &cf.Type,
			&cf.Position, &cf.Nullable, &def, &cf.Comment); err != nil {
			return fmt.Errorf("failed to scan column row: %w", err)
		}
		if def.Valid && def.String != "" {
			if strings.HasPrefix(def.String, "nextval(") {
				cf.AutoIncrement = true
			}
			d := def.String
			cf.Default = &d
		}
		facts.Columns = append(facts.Columns, cf)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating columns: %w", err)
	}
	return nil
}

// DuckDB reports constraints as SQL fragments; the column lists are parsed
// back out of the text.
var (
	primaryKeyText = regexp.MustCompile(`^PRIMARY KEY\s*\((.+)\)$`)
	uniqueText     = regexp.MustCompile(`^UNIQUE\s*\((.+)\)$`)
	foreignKeyText = regexp.MustCompile(`^FOREIGN KEY\s*\((.+?)\)\s*REFERENCES\s+(.+?)\s*\((.+?)\)`)
)

func (a *Adapter) introspectConstraints(ctx context.Context, schemas []string, facts *schema.Facts) error {
	query := fmt.Sprintf(`
		SELECT schema_name, table_name, constraint_type, constraint_text
		FROM duckdb_constraints()
		WHERE schema_name IN (%s)
		ORDER BY schema_name, table_name, constraint_index
	`, adapter.QuestionPlaceholders(len(schemas)))

	rows, err := a.DB.QueryContext(ctx, query, adapter.Args(schemas)...)
	if err != nil {
		return fmt.Errorf("failed to query constraints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var schemaName, tableName, kind, text string
		if err := rows.Scan(&schemaName, &tableName, &kind, &text); err != nil {
			return fmt.Errorf("failed to scan constraint row: %w", err)
		}
		text = strings.TrimSpace(text)

		switch kind {
		case "PRIMARY KEY":
			m := primaryKeyText.FindStringSubmatch(text)
			if m == nil {
				return fmt.Errorf("failed to parse primary key constraint %q on table %s.%s", text, schemaName, tableName)
			}
			for _, col := range splitColumns(m[1]) {
				facts.PrimaryKeys = append(facts.PrimaryKeys, schema.KeyFact{Schema: schemaName, Table: tableName, Column: col})
			}

		case "UNIQUE":
			m := uniqueText.FindStringSubmatch(text)
			if m == nil {
				return fmt.Errorf("failed to parse unique constraint %q on table %s.%s", text, schemaName, tableName)
			}
			// Only single-column uniques mark a column.
			if cols := splitColumns(m[1]); len(cols) == 1 {
				facts.Uniques = append(facts.Uniques, schema.KeyFact{Schema: schemaName, Table: tableName, Column: cols[0]})
			}

		case "FOREIGN KEY":
			ref, err := parseForeignKey(text, schemaName)
			if err != nil {
				return fmt.Errorf("table %s.%s: %w", schemaName, tableName, err)
			}
			facts.ForeignKeys = append(facts.ForeignKeys, schema.ForeignKeyFact{
				// DuckDB does not name foreign key constraints;
				// synthesize a stable name from the table and columns.
				Name:       fmt.Sprintf("%s_%s_fkey", tableName, strings.Join(ref.Columns, "_")),
				Schema:     schemaName,
				Table:      tableName,
				Columns:    ref.Columns,
				RefSchema:  ref.RefSchema,
				RefTable:   ref.RefTable,
				RefColumns: ref.RefColumns,
				// DuckDB foreign keys carry no ON UPDATE or ON DELETE
				// actions.
			})
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating constraints: %w", err)
	}
	return nil
}

type foreignKeyRef struct {
	Columns    []string
	RefSchema  string
	RefTable   string
	RefColumns []string
}

// parseForeignKey extracts the column lists and referenced table from a
// constraint fragment like "FOREIGN KEY (customer_id) REFERENCES
// customers(id)". An unqualified referenced table lands in defaultSchema.
func parseForeignKey(text, defaultSchema string) (foreignKeyRef, error) {
	m := foreignKeyText.FindStringSubmatch(text)
	if m == nil {
		return foreignKeyRef{}, fmt.Errorf("failed to parse foreign key constraint %q", text)
	}

	ref := foreignKeyRef{
		Columns:    splitColumns(m[1]),
		RefSchema:  defaultSchema,
		RefTable:   strings.Trim(m[2], `"`),
		RefColumns: splitColumns(m[3]),
	}
	if before, after, ok := strings.Cut(ref.RefTable, "."); ok {
		ref.RefSchema = strings.Trim(before, `"`)
		ref.RefTable = strings.Trim(after, `"`)
	}
	if len(ref.Columns) == 0 || len(ref.Columns) != len(ref.RefColumns) {
		return foreignKeyRef{}, fmt.Errorf("unbalanced column lists in foreign key constraint %q", text)
	}
	return ref, nil
}

// splitColumns splits the parenthesized column list of a constraint
// fragment, stripping optional double quotes.
func splitColumns(list string) []string {
	parts := strings.Split(list, ",")
	cols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), `"`)
		if p != "" {
			cols = append(cols, p)
		}
	}
	return cols
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)

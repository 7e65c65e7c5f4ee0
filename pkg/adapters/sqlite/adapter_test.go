package sqlite

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/modelgen/pkg/adapter"
	"github.com/leapstack-labs/modelgen/pkg/schema"
)

func TestName(t *testing.T) {
	assert.Equal(t, "sqlite", New(nil).Name())
}

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"orders", `"orders"`},
		{"order items", `"order items"`},
		{`we"ird`, `"we""ird"`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, quoteIdent(tt.input))
		})
	}
}

func TestDatabaseName(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name:     "configured name wins",
			config:   adapter.Config{Database: "shop", Path: "data/other.db"},
			expected: "shop",
		},
		{
			name:     "file path",
			config:   adapter.Config{Path: "data/shop.db"},
			expected: "shop",
		},
		{
			name:     "in-memory",
			config:   adapter.Config{Path: ":memory:"},
			expected: "memory",
		},
		{
			name:     "empty",
			config:   adapter.Config{},
			expected: "memory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(nil)
			a.Cfg = tt.config
			assert.Equal(t, tt.expected, a.databaseName())
		})
	}
}

func TestIntrospect_NotConnected(t *testing.T) {
	_, err := New(nil).Introspect(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection not established")
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	a := New(nil)
	a.DB = db
	a.Cfg = adapter.Config{Path: "shop.db"}
	return a, mock
}

func tableInfoRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"cid", "name", "type", "notnull", "dflt_value", "pk"})
}

func indexListRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"seq", "name", "unique", "origin", "partial"})
}

func indexInfoRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"seqno", "cid", "name"})
}

func foreignKeyListRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "seq", "table", "from", "to", "on_update", "on_delete", "match"})
}

func TestIntrospect(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery("FROM sqlite_master").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).
			AddRow("customers").
			AddRow("orders"))

	mock.ExpectQuery(`PRAGMA table_info\("customers"\)`).WillReturnRows(
		tableInfoRows().
			AddRow(0, "id", "INTEGER", 0, nil, 1).
			AddRow(1, "email", "TEXT", 1, nil, 0).
			AddRow(2, "status", "TEXT", 0, "'active'", 0))
	mock.ExpectQuery(`PRAGMA index_list\("customers"\)`).WillReturnRows(
		indexListRows().
			AddRow(0, "sqlite_autoindex_customers_1", 1, "u", 0))
	mock.ExpectQuery(`PRAGMA index_info\("sqlite_autoindex_customers_1"\)`).WillReturnRows(
		indexInfoRows().
			AddRow(0, 1, "email"))

	mock.ExpectQuery(`PRAGMA table_info\("orders"\)`).WillReturnRows(
		tableInfoRows().
			AddRow(0, "id", "INTEGER", 0, nil, 1).
			AddRow(1, "customer_id", "INTEGER", 1, nil, 0))
	mock.ExpectQuery(`PRAGMA index_list\("orders"\)`).WillReturnRows(indexListRows())

	mock.ExpectQuery(`PRAGMA foreign_key_list\("customers"\)`).WillReturnRows(foreignKeyListRows())
	mock.ExpectQuery(`PRAGMA foreign_key_list\("orders"\)`).WillReturnRows(
		foreignKeyListRows().
			// "to" is NULL when the reference targets the primary key.
			AddRow(0, 0, "customers", "customer_id", nil, "NO ACTION", "CASCADE", "NONE"))

	facts, err := a.Introspect(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "shop", facts.Database)
	require.Len(t, facts.Tables, 2)
	assert.Equal(t, "main", facts.Tables[0].Schema)

	require.Len(t, facts.Columns, 5)
	id := facts.Columns[0]
	assert.Equal(t, "id", id.Name)
	assert.True(t, id.AutoIncrement, "single INTEGER primary key aliases the rowid")
	assert.False(t, id.Nullable)

	email := facts.Columns[1]
	assert.False(t, email.Nullable)
	status := facts.Columns[2]
	assert.True(t, status.Nullable)
	require.NotNil(t, status.Default)
	assert.Equal(t, "'active'", *status.Default)

	require.Len(t, facts.Uniques, 1)
	assert.Equal(t, schema.KeyFact{Schema: "main", Table: "customers", Column: "email"}, facts.Uniques[0])

	require.Len(t, facts.ForeignKeys, 1)
	fk := facts.ForeignKeys[0]
	assert.Equal(t, "orders_customer_id_fkey", fk.Name)
	assert.Equal(t, "orders", fk.Table)
	assert.Equal(t, []string{"customer_id"}, fk.Columns)
	assert.Equal(t, "customers", fk.RefTable)
	assert.Equal(t, []string{"id"}, fk.RefColumns, "implicit reference resolves to the primary key")
	assert.Equal(t, "NO ACTION", fk.OnUpdate)
	assert.Equal(t, "CASCADE", fk.OnDelete)

	db, err := schema.Build(*facts)
	require.NoError(t, err)
	orders := db.Lookup("main", "orders")
	require.NotNil(t, orders)
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, "id", orders.ForeignKeys[0].RefColumn.Name)
	assert.Equal(t, "", orders.ForeignKeys[0].OnUpdate)
	assert.Equal(t, "CASCADE", orders.ForeignKeys[0].OnDelete)
}

func TestIntrospectExplicitForeignKeyColumns(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery("FROM sqlite_master").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow("notes"))
	mock.ExpectQuery(`PRAGMA table_info\("notes"\)`).WillReturnRows(
		tableInfoRows().
			AddRow(0, "id", "INTEGER", 0, nil, 1).
			AddRow(1, "author_email", "TEXT", 1, nil, 0))
	mock.ExpectQuery(`PRAGMA index_list\("notes"\)`).WillReturnRows(indexListRows())
	mock.ExpectQuery(`PRAGMA foreign_key_list\("notes"\)`).WillReturnRows(
		foreignKeyListRows().
			AddRow(0, 0, "authors", "author_email", "email", "NO ACTION", "NO ACTION", "NONE"))

	facts, err := a.Introspect(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, facts.ForeignKeys, 1)
	assert.Equal(t, []string{"email"}, facts.ForeignKeys[0].RefColumns)
}

func TestIntrospectCompositeForeignKeyGrouping(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery("FROM sqlite_master").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow("line_items"))
	mock.ExpectQuery(`PRAGMA table_info\("line_items"\)`).WillReturnRows(
		tableInfoRows().
			AddRow(0, "order_id", "INTEGER", 1, nil, 1).
			AddRow(1, "line_no", "INTEGER", 1, nil, 2))
	mock.ExpectQuery(`PRAGMA index_list\("line_items"\)`).WillReturnRows(indexListRows())
	mock.ExpectQuery(`PRAGMA foreign_key_list\("line_items"\)`).WillReturnRows(
		foreignKeyListRows().
			AddRow(0, 0, "order_lines", "order_id", "oid", "NO ACTION", "NO ACTION", "NONE").
			AddRow(0, 1, "order_lines", "line_no", "lno", "NO ACTION", "NO ACTION", "NONE"))

	facts, err := a.Introspect(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, facts.ForeignKeys, 1)
	fk := facts.ForeignKeys[0]
	assert.Equal(t, []string{"order_id", "line_no"}, fk.Columns)
	assert.Equal(t, []string{"oid", "lno"}, fk.RefColumns)
	assert.Equal(t, "line_items_order_id_line_no_fkey", fk.Name)

	// Composite primary keys never count as rowid aliases.
	for _, c := range facts.Columns {
		assert.False(t, c.AutoIncrement, c.Name)
	}
}

func TestIntrospectUniquesSkipsCompositeAndPartial(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery("FROM sqlite_master").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow("events"))
	mock.ExpectQuery(`PRAGMA table_info\("events"\)`).WillReturnRows(
		tableInfoRows().
			AddRow(0, "id", "INTEGER", 0, nil, 1).
			AddRow(1, "source", "TEXT", 1, nil, 0).
			AddRow(2, "kind", "TEXT", 1, nil, 0).
			AddRow(3, "slug", "TEXT", 1, nil, 0))
	mock.ExpectQuery(`PRAGMA index_list\("events"\)`).WillReturnRows(
		indexListRows().
			AddRow(0, "idx_events_source_kind", 1, "c", 0).
			AddRow(1, "idx_events_slug_partial", 1, "c", 1).
			AddRow(2, "idx_events_slug", 1, "c", 0).
			AddRow(3, "idx_events_kind", 0, "c", 0))
	mock.ExpectQuery(`PRAGMA index_info\("idx_events_source_kind"\)`).WillReturnRows(
		indexInfoRows().
			AddRow(0, 1, "source").
			AddRow(1, 2, "kind"))
	mock.ExpectQuery(`PRAGMA index_info\("idx_events_slug"\)`).WillReturnRows(
		indexInfoRows().
			AddRow(0, 3, "slug"))
	mock.ExpectQuery(`PRAGMA foreign_key_list\("events"\)`).WillReturnRows(foreignKeyListRows())

	facts, err := a.Introspect(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, facts.Uniques, 1)
	assert.Equal(t, "slug", facts.Uniques[0].Column)
}

func TestIntrospectNonIntegerPrimaryKey(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery("FROM sqlite_master").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow("settings"))
	mock.ExpectQuery(`PRAGMA table_info\("settings"\)`).WillReturnRows(
		tableInfoRows().
			AddRow(0, "key", "TEXT", 1, nil, 1).
			AddRow(1, "value", "TEXT", 0, nil, 0))
	mock.ExpectQuery(`PRAGMA index_list\("settings"\)`).WillReturnRows(indexListRows())
	mock.ExpectQuery(`PRAGMA foreign_key_list\("settings"\)`).WillReturnRows(foreignKeyListRows())

	facts, err := a.Introspect(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, facts.PrimaryKeys, 1)
	assert.Equal(t, "key", facts.PrimaryKeys[0].Column)
	assert.False(t, facts.Columns[0].AutoIncrement, "TEXT primary keys do not alias the rowid")
}

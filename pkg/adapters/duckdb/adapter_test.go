package duckdb

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
	assert.Equal(t, "duckdb", New(nil).Name())
}

func TestBuildDuckDBDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name:     "empty path defaults to memory",
			config:   adapter.Config{},
			expected: ":memory:",
		},
		{
			name:     "file path",
			config:   adapter.Config{Path: "data/analytics.duckdb"},
			expected: "data/analytics.duckdb",
		},
		{
			name: "options become query parameters",
			config: adapter.Config{
				Path:    "warehouse.duckdb",
				Options: map[string]string{"threads": "4", "access_mode": "read_only"},
			},
			expected: "warehouse.duckdb?access_mode=read_only&threads=4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildDuckDBDSN(tt.config))
		})
	}
}

func TestParseForeignKey(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected foreignKeyRef
		wantErr  bool
	}{
		{
			name: "single column",
			text: "FOREIGN KEY (customer_id) REFERENCES customers(id)",
			expected: foreignKeyRef{
				Columns:    []string{"customer_id"},
				RefSchema:  "main",
				RefTable:   "customers",
				RefColumns: []string{"id"},
			},
		},
		{
			name: "composite",
			text: "FOREIGN KEY (order_id, line_no) REFERENCES order_lines(oid, lno)",
			expected: foreignKeyRef{
				Columns:    []string{"order_id", "line_no"},
				RefSchema:  "main",
				RefTable:   "order_lines",
				RefColumns: []string{"oid", "lno"},
			},
		},
		{
			name: "quoted identifiers",
			text: `FOREIGN KEY ("order id") REFERENCES "order headers"("id")`,
			expected: foreignKeyRef{
				Columns:    []string{"order id"},
				RefSchema:  "main",
				RefTable:   "order headers",
				RefColumns: []string{"id"},
			},
		},
		{
			name: "schema qualified reference",
			text: "FOREIGN KEY (sku) REFERENCES warehouse.products(sku)",
			expected: foreignKeyRef{
				Columns:    []string{"sku"},
				RefSchema:  "warehouse",
				RefTable:   "products",
				RefColumns: []string{"sku"},
			},
		},
		{
			name:    "not a foreign key",
			text:    "CHECK((amount > 0))",
			wantErr: true,
		},
		{
			name:    "unbalanced column lists",
			text:    "FOREIGN KEY (a, b) REFERENCES t(x)",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := parseForeignKey(tt.text, "main")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ref)
		})
	}
}

func TestSplitColumns(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, splitColumns(`a, "b c",d`))
	assert.Empty(t, splitColumns(""))
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
	a.Cfg = adapter.Config{Path: "shop.duckdb"}
	return a, mock
}

func TestIntrospect(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery(`FROM duckdb_tables\(\)`).WillReturnRows(
		sqlmock.NewRows([]string{"schema_name", "table_name", "comment"}).
			AddRow("main", "customers", "").
			AddRow("main", "orders", "Customer orders"))

	mock.ExpectQuery(`FROM duckdb_columns\(\)`).WillReturnRows(
		sqlmock.NewRows([]string{"schema_name", "table_name", "column_name", "data_type", "column_index", "is_nullable", "column_default", "comment"}).
			AddRow("main", "customers", "id", "INTEGER", 1, false, "nextval('customers_id_seq')", "").
			AddRow("main", "customers", "email", "VARCHAR", 2, false, nil, "").
			AddRow("main", "customers", "status", "VARCHAR", 3, true, "'active'", "Account status").
			AddRow("main", "orders", "id", "INTEGER", 1, false, nil, "").
			AddRow("main", "orders", "customer_id", "INTEGER", 2, false, nil, ""))

	mock.ExpectQuery(`FROM duckdb_constraints\(\)`).WillReturnRows(
		sqlmock.NewRows([]string{"schema_name", "table_name", "constraint_type", "constraint_text"}).
			AddRow("main", "customers", "PRIMARY KEY", "PRIMARY KEY(id)").
			AddRow("main", "customers", "UNIQUE", "UNIQUE(email)").
			AddRow("main", "customers", "NOT NULL", "NOT NULL(email)").
			AddRow("main", "orders", "PRIMARY KEY", "PRIMARY KEY(id)").
			AddRow("main", "orders", "FOREIGN KEY", "FOREIGN KEY (customer_id) REFERENCES customers(id)"))

	facts, err := a.Introspect(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "shop", facts.Database)
	require.Len(t, facts.Tables, 2)
	assert.Equal(t, "Customer orders", facts.Tables[1].Comment)

	require.Len(t, facts.Columns, 5)
	id := facts.Columns[0]
	assert.True(t, id.AutoIncrement, "sequence defaults mark the column auto-increment")
	status := facts.Columns[2]
	require.NotNil(t, status.Default)
	assert.Equal(t, "'active'", *status.Default)
	assert.Equal(t, "Account status", status.Comment)

	require.Len(t, facts.PrimaryKeys, 2)
	require.Len(t, facts.Uniques, 1)
	assert.Equal(t, "email", facts.Uniques[0].Column)

	require.Len(t, facts.ForeignKeys, 1)
	fk := facts.ForeignKeys[0]
	assert.Equal(t, "orders_customer_id_fkey", fk.Name)
	assert.Equal(t, []string{"customer_id"}, fk.Columns)
	assert.Equal(t, "customers", fk.RefTable)
	assert.Equal(t, []string{"id"}, fk.RefColumns)
	assert.Equal(t, "", fk.OnDelete)

	db, err := schema.Build(*facts)
	require.NoError(t, err)
	orders := db.Lookup("main", "orders")
	require.NotNil(t, orders)
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, "customers", orders.ForeignKeys[0].RefTable.Name)
}

func TestIntrospectCompositeUniqueSkipped(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery(`FROM duckdb_tables\(\)`).WillReturnRows(
		sqlmock.NewRows([]string{"schema_name", "table_name", "comment"}).
			AddRow("main", "events", ""))
	mock.ExpectQuery(`FROM duckdb_columns\(\)`).WillReturnRows(
		sqlmock.NewRows([]string{"schema_name", "table_name", "column_name", "data_type", "column_index", "is_nullable", "column_default", "comment"}).
			AddRow("main", "events", "source", "VARCHAR", 1, false, nil, "").
			AddRow("main", "events", "kind", "VARCHAR", 2, false, nil, ""))
	mock.ExpectQuery(`FROM duckdb_constraints\(\)`).WillReturnRows(
		sqlmock.NewRows([]string{"schema_name", "table_name", "constraint_type", "constraint_text"}).
			AddRow("main", "events", "UNIQUE", "UNIQUE(source, kind)"))

	facts, err := a.Introspect(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, facts.Uniques)
}

func TestIntrospectMalformedConstraint(t *testing.T) {
	a, mock := newMockAdapter(t)

	mock.ExpectQuery(`FROM duckdb_tables\(\)`).WillReturnRows(
		sqlmock.NewRows([]string{"schema_name", "table_name", "comment"}).
			AddRow("main", "events", ""))
	mock.ExpectQuery(`FROM duckdb_columns\(\)`).WillReturnRows(
		sqlmock.NewRows([]string{"schema_name", "table_name", "column_name", "data_type", "column_index", "is_nullable", "column_default", "comment"}).
			AddRow("main", "events", "id", "INTEGER", 1, false, nil, ""))
	mock.ExpectQuery(`FROM duckdb_constraints\(\)`).WillReturnRows(
		sqlmock.NewRows([]string{"schema_name", "table_name", "constraint_type", "constraint_text"}).
			AddRow("main", "events", "PRIMARY KEY", "PRIMARY KEY"))

	_, err := a.Introspect(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse primary key constraint")
}

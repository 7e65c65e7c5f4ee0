package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/modelgen/internal/describe"
)

func customerDescription() describe.ModelDescription {
	return describe.ModelDescription{
		Model:        "customers",
		File:         "customers.js",
		Schema:       "public",
		Table:        "customers",
		TypeVariable: "types",
		Options: describe.Description{
			"model":     "'customers'",
			"file":      "'customers.js'",
			"schema":    "'public'",
			"tableName": "'customers'",
		},
		Columns: []describe.Description{
			{
				"name":          "'id'",
				"columnName":    "'id'",
				"type":          describe.Code("types.integer"),
				"primaryKey":    true,
				"autoIncrement": true,
			},
			{
				"name":       "'email'",
				"columnName": "'email'",
				"type":       describe.Code("types.string"),
				"unique":     true,
			},
		},
		Relations: []describe.Description{
			{
				"type":       "'hasMany'",
				"name":       "'orders'",
				"model":      "'orders'",
				"schema":     "'public'",
				"table":      "'orders'",
				"foreignKey": "'customer_id'",
				"constraint": "'orders_customer_id_fkey'",
				"onDelete":   "'CASCADE'",
			},
		},
	}
}

func TestRenderModelFile(t *testing.T) {
	got, err := NewRenderer().Render(customerDescription())
	require.NoError(t, err)

	want := `// Code generated by modelgen. DO NOT EDIT.

'use strict';

const types = require('./types');

module.exports = {
  model: 'customers',
  file: 'customers.js',
  schema: 'public',
  tableName: 'customers',

  attributes: {
    id: {
      type: types.integer,
      primaryKey: true,
      autoIncrement: true,
      columnName: 'id',
    },
    email: {
      type: types.string,
      unique: true,
      columnName: 'email',
    },
  },

  relations: [
    {
      type: 'hasMany',
      name: 'orders',
      model: 'orders',
      schema: 'public',
      table: 'orders',
      foreignKey: 'customer_id',
      constraint: 'orders_customer_id_fkey',
      onDelete: 'CASCADE',
    },
  ],
};
`
	assert.Equal(t, want, string(got))
}

func TestRenderWithoutTypeVariable(t *testing.T) {
	md := describe.ModelDescription{
		Model:   "settings",
		File:    "settings.js",
		Schema:  "main",
		Table:   "settings",
		Options: describe.Description{"model": "'settings'"},
		Columns: []describe.Description{
			{"name": "'key'", "columnName": "'key'", "type": "'text'"},
		},
	}

	got, err := NewRenderer().Render(md)
	require.NoError(t, err)

	want := `// Code generated by modelgen. DO NOT EDIT.

'use strict';

module.exports = {
  model: 'settings',

  attributes: {
    key: {
      type: 'text',
      columnName: 'key',
    },
  },
};
`
	assert.Equal(t, want, string(got))
}

func TestRenderCustomOptions(t *testing.T) {
	md := describe.ModelDescription{
		Model:        "events",
		File:         "events.js",
		Table:        "events",
		TypeVariable: "types",
		Options: describe.Description{
			"model":      "'events'",
			"tableName":  "'events'",
			"timestamps": true,
			"hooks": describe.Description{
				"beforeCreate": "'stamp'",
			},
			"scopes": []any{"'active'", "'archived'"},
		},
		Columns: []describe.Description{
			{"name": "'id'", "columnName": "'id'", "type": describe.Code("types.integer"), "primaryKey": true},
		},
	}

	got, err := NewRenderer().Render(md)
	require.NoError(t, err)

	// Canonical keys lead, custom entries follow alphabetically; nested
	// values indent under their key.
	want := `// Code generated by modelgen. DO NOT EDIT.

'use strict';

const types = require('./types');

module.exports = {
  model: 'events',
  tableName: 'events',
  hooks: {
    beforeCreate: 'stamp',
  },
  scopes: [
    'active',
    'archived',
  ],
  timestamps: true,

  attributes: {
    id: {
      type: types.integer,
      primaryKey: true,
      columnName: 'id',
    },
  },
};
`
	assert.Equal(t, want, string(got))
}

func TestRenderDeterministic(t *testing.T) {
	r := NewRenderer()
	first, err := r.Render(customerDescription())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := r.Render(customerDescription())
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestKeyLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"'id'", "id"},
		{"'created_at'", "created_at"},
		{"'created at'", "'created at'"},
		{"model", "model"},
		{"$raw", "$raw"},
		{"1st", "'1st'"},
		{"has space", "'has space'"},
	}

	for _, tt := range tests {
		if got := keyLiteral(tt.in); got != tt.want {
			t.Errorf("keyLiteral(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Package schema defines the introspected-schema graph shared by the
// modelgen system.
//
// This package contains:
//   - Graph entities (Database, Schema, Table, Column, ForeignKey, Junction)
//   - Flat introspection facts (Facts) produced by database adapters
//   - Build, which assembles and validates the graph from facts
//
// The graph is read only: adapters produce it once through Build and the
// mapping engine walks it without mutation. The Golden Rule: pkg/schema
// imports ONLY the standard library. Adapters depend on schema, never the
// reverse.
package schema

// Package adapter defines the database adapter contract: connecting to a
// database and introspecting its structural metadata into flat schema
// facts. Concrete implementations live in pkg/adapters/ subdirectories
// and register themselves by dialect name in their init() functions.
package adapter

import (
	"context"

	"github.com/leapstack-labs/modelgen/pkg/schema"
)

// Config holds the connection settings for a database adapter.
type Config struct {
	Dialect  string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Options  map[string]string
}

// Adapter is the interface every database adapter implements. An adapter
// connects, reports schema facts, and closes; graph assembly and model
// mapping happen above it.
type Adapter interface {
	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Name returns the dialect name the adapter registered under.
	Name() string

	// Introspect reads tables, columns, keys, and foreign key
	// constraints for the given schemas. An empty list selects the
	// dialect's default schema.
	Introspect(ctx context.Context, schemas []string) (*schema.Facts, error)
}

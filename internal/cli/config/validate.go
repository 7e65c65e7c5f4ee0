package config

import (
	"fmt"

	"github.com/leapstack-labs/modelgen/pkg/adapter"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Dialect == "" {
		return fmt.Errorf("database.dialect is required\nHint: Set database.dialect in modelgen.yaml to one of: %v", adapter.ListAdapters())
	}
	if !adapter.IsRegistered(c.Database.Dialect) {
		return &adapter.UnknownAdapterError{Dialect: c.Database.Dialect, Available: adapter.ListAdapters()}
	}
	if c.Output.Workers < 1 {
		return fmt.Errorf("output.workers must be at least 1, got %d", c.Output.Workers)
	}
	switch c.Format {
	case "auto", "text", "markdown", "json":
	default:
		return fmt.Errorf("unknown output format %q (expected auto, text, markdown, or json)", c.Format)
	}
	return nil
}

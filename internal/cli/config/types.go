// Package config provides configuration management for the modelgen CLI.
//
// It layers built-in defaults, modelgen.yaml, MODELGEN_ environment
// variables, and command-line flags with koanf, then snapshots the
// generation keys into the immutable view the mapping engine consumes.
package config

import (
	intconfig "github.com/leapstack-labs/modelgen/internal/config"
	"github.com/leapstack-labs/modelgen/pkg/adapter"
)

// Config holds all CLI configuration options.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Output   OutputConfig   `koanf:"output"`
	Format   string         `koanf:"format"`
	Verbose  bool           `koanf:"verbose"`

	// Generate is the immutable snapshot of the generation keys, taken
	// from the fully layered tree.
	Generate *intconfig.Resolved `koanf:"-"`
}

// DatabaseConfig holds the connection settings for the introspected
// database.
type DatabaseConfig struct {
	Dialect  string            `koanf:"dialect"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Database string            `koanf:"database"`
	Path     string            `koanf:"path"`
	Schemas  []string          `koanf:"schemas"`
	Options  map[string]string `koanf:"options"`
}

// AdapterConfig converts the database block into the adapter connection
// configuration.
func (d DatabaseConfig) AdapterConfig() adapter.Config {
	return adapter.Config{
		Dialect:  d.Dialect,
		Path:     d.Path,
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		Username: d.User,
		Password: d.Password,
		Options:  d.Options,
	}
}

// OutputConfig holds where and how model files get written.
type OutputConfig struct {
	Dir     string `koanf:"dir"`
	Workers int    `koanf:"workers"`
}

// Default configuration values.
const (
	DefaultConfigFile = "modelgen.yaml"
	DefaultFormat     = "auto" // Auto-detect: TTY=text, non-TTY=markdown
)

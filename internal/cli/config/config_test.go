package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intconfig "github.com/leapstack-labs/modelgen/internal/config"
	"github.com/leapstack-labs/modelgen/pkg/adapter"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/modelgen/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/modelgen/pkg/adapters/sqlite"
)

// chtmp moves the test into a fresh directory holding the given
// modelgen.yaml content, and resets the loader state.
func chtmp(t *testing.T, configYAML string) string {
	t.Helper()
	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	if configYAML != "" {
		require.NoError(t, os.WriteFile(filepath.Join(resolved, "modelgen.yaml"), []byte(configYAML), 0o600))
	}
	t.Chdir(resolved)
	ResetConfig()
	t.Cleanup(ResetConfig)
	return resolved
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := chtmp(t, "database:\n  dialect: sqlite\n")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Dialect)
	assert.Equal(t, filepath.Join(dir, "models"), cfg.Output.Dir)
	assert.Equal(t, 4, cfg.Output.Workers)
	assert.Equal(t, "auto", cfg.Format)
	assert.False(t, cfg.Verbose)

	require.NotNil(t, cfg.Generate)
	assert.True(t, cfg.Generate.Bool("", intconfig.KeyRelationCamelCase))
	assert.Equal(t, "related", cfg.Generate.String("", intconfig.KeyPrefixForBelongsTo))
}

func TestLoadConfigFile(t *testing.T) {
	dir := chtmp(t, `
database:
  dialect: postgres
  host: db.internal
  port: 5433
  user: reporting
  database: shop
  schemas: [public, archive]
output:
  dir: generated
  workers: 2
format: markdown
generate:
  prefixForBelongsTo: fk
  skipTable: [migrations]
generateOverride:
  orders:
    columnDefault: true
tableOptions:
  timestamps: false
`)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, []string{"public", "archive"}, cfg.Database.Schemas)
	assert.Equal(t, filepath.Join(dir, "generated"), cfg.Output.Dir)
	assert.Equal(t, 2, cfg.Output.Workers)
	assert.Equal(t, "markdown", cfg.Format)

	assert.Equal(t, "fk", cfg.Generate.String("", intconfig.KeyPrefixForBelongsTo))
	assert.Equal(t, []string{"migrations"}, cfg.Generate.Strings("", intconfig.KeySkipTable))
	assert.True(t, cfg.Generate.Bool("orders", intconfig.KeyColumnDefault), "override applies to orders")
	assert.False(t, cfg.Generate.Bool("customers", intconfig.KeyColumnDefault), "other tables keep the general value")
	assert.Equal(t, map[string]any{"timestamps": false}, cfg.Generate.TableOptions("customers"))
}

func TestLoadConfigFlagsWinOverFile(t *testing.T) {
	chtmp(t, "database:\n  dialect: sqlite\noutput:\n  workers: 2\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("dialect", "", "")
	flags.Int("workers", 4, "")
	flags.String("output", "", "")
	require.NoError(t, flags.Parse([]string{"--dialect", "postgres", "--workers", "8", "--output", "json"}))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Dialect)
	assert.Equal(t, 8, cfg.Output.Workers)
	assert.Equal(t, "json", cfg.Format)
}

func TestLoadConfigUnchangedFlagsIgnored(t *testing.T) {
	chtmp(t, "database:\n  dialect: sqlite\noutput:\n  workers: 2\n")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", 4, "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Output.Workers, "flag default must not shadow the config file")
}

func TestLoadConfigEnv(t *testing.T) {
	chtmp(t, "")
	t.Setenv("MODELGEN_DATABASE_DIALECT", "sqlite")
	t.Setenv("MODELGEN_GENERATE_PREFIXFORBELONGSTO", "fk")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Dialect)
	assert.Equal(t, "fk", cfg.Generate.String("", intconfig.KeyPrefixForBelongsTo),
		"env var resolves to the canonical camelCase key")
}

func TestLoadConfigEnvVarExpansion(t *testing.T) {
	chtmp(t, "database:\n  dialect: postgres\n  password: ${TEST_DB_PASSWORD}\n  host: ${TEST_DB_HOST}\n")
	t.Setenv("TEST_DB_PASSWORD", "s3cret")
	t.Setenv("TEST_DB_HOST", "db.prod.internal")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "db.prod.internal", cfg.Database.Host)
}

func TestLoadConfigExplicitFile(t *testing.T) {
	dir := chtmp(t, "")
	sub := filepath.Join(dir, "conf")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	cfgPath := filepath.Join(sub, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  dialect: sqlite\noutput:\n  dir: out\n"), 0o600))

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, cfgPath, GetConfigFileUsed())
	assert.Equal(t, filepath.Join(sub, "out"), cfg.Output.Dir,
		"relative paths resolve against the config file's directory")
}

func TestLoadConfigExplicitFileMissing(t *testing.T) {
	chtmp(t, "")
	_, err := LoadConfig("nope.yaml", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestLoadConfigFindsConfigUpward(t *testing.T) {
	root := chtmp(t, "database:\n  dialect: sqlite\n")
	sub := filepath.Join(root, "app", "src")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	t.Chdir(sub)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "models"), cfg.Output.Dir)
}

func TestLoadConfigMissingDialect(t *testing.T) {
	chtmp(t, "")
	_, err := LoadConfig("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.dialect is required")
}

func TestLoadConfigUnknownDialect(t *testing.T) {
	chtmp(t, "database:\n  dialect: mysql\n")
	_, err := LoadConfig("", nil)
	require.Error(t, err)

	var unknownErr *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "mysql", unknownErr.Dialect)
}

func TestValidateWorkers(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Dialect: "sqlite"},
		Output:   OutputConfig{Workers: 0},
		Format:   "auto",
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.workers must be at least 1")
}

func TestValidateFormat(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Dialect: "sqlite"},
		Output:   OutputConfig{Workers: 4},
		Format:   "yaml",
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestFlagKey(t *testing.T) {
	tests := map[string]string{
		"dialect":    "database.dialect",
		"host":       "database.host",
		"port":       "database.port",
		"user":       "database.user",
		"password":   "database.password",
		"database":   "database.database",
		"db-path":    "database.path",
		"schema":     "database.schemas",
		"output":     "format",
		"output-dir": "output.dir",
		"workers":    "output.workers",
		"verbose":    "verbose",
	}
	for flag, key := range tests {
		assert.Equal(t, key, flagKey(flag), flag)
	}
}

func TestGetLoggerFallback(t *testing.T) {
	logger := GetLogger(context.Background())
	require.NotNil(t, logger)
}

func TestAdapterConfig(t *testing.T) {
	d := DatabaseConfig{
		Dialect:  "postgres",
		Host:     "localhost",
		Port:     5432,
		User:     "app",
		Password: "pw",
		Database: "shop",
		Options:  map[string]string{"sslmode": "require"},
	}
	ac := d.AdapterConfig()
	assert.Equal(t, "postgres", ac.Dialect)
	assert.Equal(t, "app", ac.Username)
	assert.Equal(t, "require", ac.Options["sslmode"])
}

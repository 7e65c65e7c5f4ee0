package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/leapstack-labs/modelgen/internal/config"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for
// config files.
const maxUpwardSearchLevels = 10

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// findConfigFile finds the config file to use.
// Priority: explicit path > modelgen.yaml > modelgen.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat("modelgen.yaml"); err == nil {
		return "modelgen.yaml"
	}
	if _, err := os.Stat("modelgen.yml"); err == nil {
		return "modelgen.yml"
	}
	return ""
}

// configExistsIn checks if a modelgen config file exists in the directory.
func configExistsIn(dir string) bool {
	for _, name := range []string{"modelgen.yaml", "modelgen.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for a modelgen
// config file. Returns empty string if not found within
// maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not
// absolute. Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and
// flags, then validates it.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Reset koanf for fresh load
	k = koanf.New(".")

	// Determine the project root: the explicit config file's directory,
	// or the nearest directory up the tree holding a modelgen.yaml.
	// Relative paths in the config resolve against it, so running from a
	// subdirectory writes models where running from the root would.
	projectRoot := ""
	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}
	if projectRoot == "" {
		if cwd, err := os.Getwd(); err == nil {
			projectRoot = findProjectRootUpward(cwd)
		}
	}
	if projectRoot == "" {
		cwd, _ := os.Getwd()
		if cwd == "" {
			cwd = "."
		}
		projectRoot = cwd
	}

	// Paths provided as flags are relative to the CWD, not the project
	// root; pin them down before resolution.
	var flagOutputDir, flagDBPath string
	if flags != nil {
		if flags.Changed("output-dir") {
			if v, _ := flags.GetString("output-dir"); v != "" {
				flagOutputDir, _ = filepath.Abs(v)
			}
		}
		if flags.Changed("db-path") {
			if v, _ := flags.GetString("db-path"); v != "" {
				if v != ":memory:" {
					flagDBPath, _ = filepath.Abs(v)
				} else {
					flagDBPath = v
				}
			}
		}
	}

	// 1. Load defaults
	defaults := intconfig.Defaults()
	defaults["output.dir"] = intconfig.DefaultOutputDir
	defaults["output.workers"] = intconfig.DefaultWorkers
	defaults["format"] = DefaultFormat
	defaults["verbose"] = false
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	if cfgFile == "" {
		for _, name := range []string{"modelgen.yaml", "modelgen.yml"} {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	}
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (MODELGEN_ prefix)
	if err := k.Load(env.Provider("MODELGEN_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve relative paths against the project root. Flag-provided
	// paths were already pinned to the CWD.
	if flagOutputDir != "" {
		cfg.Output.Dir = flagOutputDir
	} else {
		cfg.Output.Dir = resolvePathRelativeTo(cfg.Output.Dir, projectRoot)
	}
	if flagDBPath != "" {
		cfg.Database.Path = flagDBPath
	} else if cfg.Database.Path != ":memory:" {
		cfg.Database.Path = resolvePathRelativeTo(cfg.Database.Path, projectRoot)
	}

	// 7. Expand environment variables in sensitive connection fields
	expandDatabaseEnvVars(&cfg.Database)

	// 8. Snapshot the layered tree for the mapping engine
	generate, err := intconfig.NewResolved(k)
	if err != nil {
		return nil, err
	}
	cfg.Generate = generate

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// envKey maps MODELGEN_DATABASE_DIALECT to database.dialect. Generation
// keys are camelCase, so the lowercased form maps back to its canonical
// spelling.
func envKey(s string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "MODELGEN_")), "_", ".")
	if canonical, ok := canonicalKeys[key]; ok {
		return canonical
	}
	return key
}

var canonicalKeys = func() map[string]string {
	keys := []string{
		intconfig.KeyRelationCamelCase,
		intconfig.KeyColumnCamelCase,
		intconfig.KeyModelCamelCase,
		intconfig.KeyUseSchemaName,
		intconfig.KeyPrefixForBelongsTo,
		intconfig.KeyStripFirstTable,
		intconfig.KeyHasManyThrough,
		intconfig.KeyBelongsToMany,
		intconfig.KeyColumnDefault,
		intconfig.KeyColumnDescription,
		intconfig.KeyColumnAutoIncrement,
		intconfig.KeyDataTypeVariable,
		intconfig.KeySkipTable,
	}
	m := make(map[string]string, len(keys))
	for _, key := range keys {
		m[strings.ToLower(key)] = key
	}
	return m
}()

// flagKey maps a CLI flag to its configuration key. Connection flags nest
// under database, writer flags under output.
func flagKey(name string) string {
	switch name {
	case "dialect", "host", "port", "user", "password", "database":
		return "database." + name
	case "schema":
		return "database.schemas"
	case "db-path":
		return "database.path"
	case "output":
		return "format"
	case "output-dir":
		return "output.dir"
	case "workers":
		return "output.workers"
	default:
		return strings.ReplaceAll(name, "-", "_")
	}
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

// expandEnvVars expands ${VAR} patterns in a string with environment
// variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandDatabaseEnvVars expands environment variables in sensitive
// connection fields.
func expandDatabaseEnvVars(d *DatabaseConfig) {
	d.Host = expandEnvVars(d.Host)
	d.User = expandEnvVars(d.User)
	d.Password = expandEnvVars(d.Password)
	d.Database = expandEnvVars(d.Database)
	d.Path = expandEnvVars(d.Path)
}

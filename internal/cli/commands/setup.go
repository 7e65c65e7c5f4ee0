package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/modelgen/internal/cli/config"
	"github.com/leapstack-labs/modelgen/internal/cli/output"
	intconfig "github.com/leapstack-labs/modelgen/internal/config"
	"github.com/leapstack-labs/modelgen/pkg/adapter"

	// Register the built-in database adapters.
	_ "github.com/leapstack-labs/modelgen/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/modelgen/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/modelgen/pkg/adapters/sqlite"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Adapter  adapter.Adapter
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a connected database
// adapter. Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cmdCtx := NewCommandContextWithoutDatabase(cmd)

	adp, err := adapter.New(cmdCtx.Cfg.Database.Dialect, cmdCtx.Logger)
	if err != nil {
		return nil, nil, err
	}
	if err := adp.Connect(cmd.Context(), cmdCtx.Cfg.Database.AdapterConfig()); err != nil {
		return nil, nil, err
	}

	cmdCtx.Adapter = adp
	cleanup := func() {
		_ = adp.Close()
	}
	return cmdCtx, cleanup, nil
}

// NewCommandContextWithoutDatabase creates a CommandContext without
// connecting. Useful for commands that don't need database access.
func NewCommandContextWithoutDatabase(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.Format)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// getConfig returns the current configuration, falling back to built-in
// defaults when no load has happened (help paths and tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}

	generate, _ := intconfig.ResolvedFromMap(intconfig.Defaults())
	return &config.Config{
		Output: config.OutputConfig{
			Dir:     intconfig.DefaultOutputDir,
			Workers: intconfig.DefaultWorkers,
		},
		Format:   config.DefaultFormat,
		Generate: generate,
	}
}

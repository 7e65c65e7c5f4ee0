package commands

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/modelgen/internal/cli/config"
	"github.com/leapstack-labs/modelgen/internal/cli/output"
	"github.com/spf13/cobra"
)

//go:embed templates/modelgen.yaml
var configTemplate []byte

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter modelgen.yaml",
		Long: `Write a commented modelgen.yaml with the built-in defaults spelled out.

The file documents the database connection settings, the generation
keys, and the per-table override sections. Edit the database section,
then run 'modelgen generate'.`,
		Example: `  # Initialize in the current directory
  modelgen init

  # Initialize in a new directory
  modelgen init my-project

  # Overwrite an existing configuration
  modelgen init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(getConfig().Format))
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.DefaultConfigFile)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.DefaultConfigFile)
	}

	if err := os.WriteFile(configPath, configTemplate, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	r.StatusLine(configPath, "success", "")
	r.Println("")
	r.Success("modelgen project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Set database.dialect and the connection details in " + config.DefaultConfigFile)
	r.Println("  2. Run 'modelgen list' to survey the schema")
	r.Println("  3. Run 'modelgen generate' to write model files")

	return nil
}

package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/leapstack-labs/modelgen/internal/cli/output"
	"github.com/leapstack-labs/modelgen/internal/generate"
	"github.com/leapstack-labs/modelgen/pkg/schema"
	"github.com/spf13/cobra"
)

// GenerateOptions holds the generate command flags.
type GenerateOptions struct {
	DryRun bool
}

// generateSummary is the JSON shape of a generation run report.
type generateSummary struct {
	RunID      string   `json:"run_id"`
	Tables     int      `json:"tables"`
	Files      []string `json:"files"`
	Skipped    []string `json:"skipped"`
	OutputDir  string   `json:"output_dir"`
	DryRun     bool     `json:"dry_run"`
	DurationMS int64    `json:"duration_ms"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate model definition files from the database schema",
		Long: `Generate one JavaScript model definition file per database table.

The command introspects the configured database, derives model, column,
and relation names, and writes one file per table into the output
directory. The output directory is wiped and recreated on every run, so
it must not contain hand-edited files.

Tables listed under skipTable in modelgen.yaml are excluded. When two
tables resolve to the same model or file name, the run aborts before
any file is written.

Use --output to override the report format: auto, text, markdown, json`,
		Example: `  # Generate model files into the configured output directory
  modelgen generate

  # Report what would be written without touching the filesystem
  modelgen generate --dry-run

  # More write workers, custom directory
  modelgen generate --workers 8 --output-dir src/models

  # Machine-readable run report
  modelgen generate --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Validate and report without writing files")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *GenerateOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	facts, err := cmdCtx.Adapter.Introspect(ctx, cfg.Database.Schemas)
	if err != nil {
		return fmt.Errorf("failed to introspect database: %w", err)
	}

	db, err := schema.Build(*facts)
	if err != nil {
		return fmt.Errorf("failed to build schema graph: %w", err)
	}

	gen := generate.New(generate.Config{
		OutputDir: cfg.Output.Dir,
		Workers:   cfg.Output.Workers,
		DryRun:    opts.DryRun,
		Resolved:  cfg.Generate,
		Logger:    cmdCtx.Logger,
	})

	res, err := gen.Run(ctx, db)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return generateJSON(r, res, cfg.Output.Dir, opts.DryRun)
	}
	return generateReport(r, res, cfg.Output.Dir, opts.DryRun)
}

// generateReport prints per-file status lines and a run summary.
func generateReport(r *output.Renderer, res *generate.Result, outputDir string, dryRun bool) error {
	status := "success"
	if dryRun {
		status = "pending"
	}
	for _, f := range res.Files {
		r.StatusLine(filepath.Join(outputDir, f), status, "")
	}
	for _, t := range res.Skipped {
		r.StatusLine(t, "skipped", "skipTable")
	}

	summary := fmt.Sprintf("Wrote %d model files in %s",
		len(res.Files), res.Duration.Round(time.Millisecond))
	if dryRun {
		summary = fmt.Sprintf("Would write %d model files (dry run)", len(res.Files))
	}
	if len(res.Skipped) > 0 {
		summary += fmt.Sprintf(", %d tables skipped", len(res.Skipped))
	}

	r.Println("")
	r.Success(summary)
	return nil
}

// generateJSON emits the run report for scripts and agents.
func generateJSON(r *output.Renderer, res *generate.Result, outputDir string, dryRun bool) error {
	out := generateSummary{
		RunID:      res.RunID,
		Tables:     res.Tables,
		Files:      res.Files,
		Skipped:    res.Skipped,
		OutputDir:  outputDir,
		DryRun:     dryRun,
		DurationMS: res.Duration.Milliseconds(),
	}
	if out.Files == nil {
		out.Files = []string{}
	}
	if out.Skipped == nil {
		out.Skipped = []string{}
	}

	enc := json.NewEncoder(r.Writer())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

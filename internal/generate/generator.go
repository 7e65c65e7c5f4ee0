// Package generate orchestrates a generation run: walking the schema
// graph into model descriptions, rendering them through the embedded
// template, and rewriting the output directory with a bounded worker
// pool.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/modelgen/internal/config"
	"github.com/leapstack-labs/modelgen/internal/describe"
	"github.com/leapstack-labs/modelgen/pkg/schema"
)

// Config carries the one-shot settings for a generation run. The resolved
// configuration is immutable; nothing reloads it mid-run.
type Config struct {
	OutputDir string
	Workers   int
	DryRun    bool
	Resolved  *config.Resolved
	Logger    *slog.Logger
}

// Result summarizes a completed run.
type Result struct {
	RunID    string
	Tables   int
	Files    []string
	Skipped  []string
	Duration time.Duration
}

// Generator runs the full mapping pipeline against a schema graph.
type Generator struct {
	cfg      Config
	renderer *Renderer
	logger   *slog.Logger
}

func New(cfg Config) *Generator {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = config.DefaultOutputDir
	}
	if cfg.Workers <= 0 {
		cfg.Workers = config.DefaultWorkers
	}
	return &Generator{cfg: cfg, renderer: NewRenderer(), logger: cfg.Logger}
}

// Run maps the graph to model files under the output directory.
//
// The walk and the rendering happen up front, synchronously; only when
// every file is ready does Run wipe and rewrite the output directory.
// Writes go through a worker pool bounded at cfg.Workers, the first
// error cancels the pool, and Run returns only after every started
// write has finished. File write order is not defined; the file set and
// every byte in it are.
func (g *Generator) Run(ctx context.Context, db *schema.Database) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	logger := g.logger.With("run_id", runID)

	logger.Info("starting generation",
		"database", db.Name,
		"output_dir", g.cfg.OutputDir,
		"workers", g.cfg.Workers,
		"dry_run", g.cfg.DryRun)

	models, skipped, err := describe.Walk(db, g.cfg.Resolved, logger)
	if err != nil {
		return nil, err
	}

	rendered := make([][]byte, len(models))
	for i, md := range models {
		out, err := g.renderer.Render(md)
		if err != nil {
			return nil, err
		}
		rendered[i] = out
	}

	if err := validateFiles(models); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:   runID,
		Tables:  len(models),
		Files:   make([]string, 0, len(models)),
		Skipped: skipped,
	}
	for _, md := range models {
		res.Files = append(res.Files, md.File)
	}
	sort.Strings(res.Files)

	if g.cfg.DryRun {
		logger.Info("dry run, skipping writes", "files", len(res.Files))
		res.Duration = time.Since(start)
		return res, nil
	}

	if err := g.resetOutputDir(); err != nil {
		return nil, err
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Workers)
	for i := range models {
		md, out := models[i], rendered[i]
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(g.cfg.OutputDir, md.File)
			if err := os.WriteFile(path, out, 0o600); err != nil {
				return fmt.Errorf("failed to write model %s: %w", md.Model, err)
			}
			logger.Debug("wrote model file", "model", md.Model, "file", md.File)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	logger.Info("generation completed",
		"tables", res.Tables,
		"files", len(res.Files),
		"skipped", len(res.Skipped),
		"duration", res.Duration)
	return res, nil
}

// validateFiles rejects descriptions whose file names leave the output
// directory or land on the same path as another table's model.
func validateFiles(models []describe.ModelDescription) error {
	byFile := make(map[string]string, len(models))
	for _, md := range models {
		table := md.Table
		if md.Schema != "" {
			table = md.Schema + "." + md.Table
		}
		if md.File == "" || md.File != filepath.Base(md.File) || strings.HasPrefix(md.File, ".") {
			return fmt.Errorf("invalid file name %q for table %s: must be a plain file name", md.File, table)
		}
		if prev, ok := byFile[md.File]; ok {
			return fmt.Errorf("output file %s claimed by both %s and %s: enable useSchemaName or set a file override", md.File, prev, table)
		}
		byFile[md.File] = table
	}
	return nil
}

func (g *Generator) resetOutputDir() error {
	if err := os.RemoveAll(g.cfg.OutputDir); err != nil {
		return fmt.Errorf("failed to clear output directory %s: %w", g.cfg.OutputDir, err)
	}
	if err := os.MkdirAll(g.cfg.OutputDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", g.cfg.OutputDir, err)
	}
	return nil
}

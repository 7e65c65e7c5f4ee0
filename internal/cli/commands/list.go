package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/leapstack-labs/modelgen/internal/cli/output"
	"github.com/leapstack-labs/modelgen/internal/describe"
	"github.com/leapstack-labs/modelgen/pkg/schema"
	"github.com/spf13/cobra"
)

// listSummary is the JSON shape of the table survey.
type listSummary struct {
	Database string      `json:"database"`
	Tables   []tableInfo `json:"tables"`
}

type tableInfo struct {
	Schema      string `json:"schema"`
	Name        string `json:"name"`
	Columns     int    `json:"columns"`
	ForeignKeys int    `json:"foreign_keys"`
	Junction    bool   `json:"junction"`
	Skipped     bool   `json:"skipped"`
	Comment     string `json:"comment,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List database tables and how generation will treat them",
		Long: `List the tables the configured database exposes, with column and
foreign key counts, junction detection, and skipTable status.

The survey reads only the schema. It never fails on naming collisions,
so it is the place to look when generate aborts.

Use --output to override the report format: auto, text, markdown, json`,
		Example: `  # Survey the configured database
  modelgen list

  # Restrict to one schema
  modelgen list --schema analytics

  # Machine-readable survey
  modelgen list --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	facts, err := cmdCtx.Adapter.Introspect(cmd.Context(), cfg.Database.Schemas)
	if err != nil {
		return fmt.Errorf("failed to introspect database: %w", err)
	}

	db, err := schema.Build(*facts)
	if err != nil {
		return fmt.Errorf("failed to build schema graph: %w", err)
	}

	skip := describe.SkipSet(cfg.Generate)
	tables := make([]tableInfo, 0, len(db.AllTables()))
	for _, t := range db.AllTables() {
		tables = append(tables, tableInfo{
			Schema:      t.Schema.Name,
			Name:        t.Name,
			Columns:     len(t.Columns),
			ForeignKeys: len(t.ForeignKeys),
			Junction:    t.IsJunction(),
			Skipped:     describe.Skipped(skip, t),
			Comment:     t.Comment,
		})
	}

	if r.EffectiveMode() == output.ModeJSON {
		enc := json.NewEncoder(r.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(listSummary{Database: db.Name, Tables: tables})
	}
	return listReport(r, db.Name, tables)
}

// listReport renders the survey as a table.
func listReport(r *output.Renderer, database string, tables []tableInfo) error {
	r.Header(1, fmt.Sprintf("Tables in %s (%d total)", database, len(tables)))
	r.Println("")

	rows := make([][]string, 0, len(tables))
	for _, t := range tables {
		name := t.Name
		if t.Schema != "" {
			name = t.Schema + "." + t.Name
		}
		rows = append(rows, []string{
			name,
			strconv.Itoa(t.Columns),
			strconv.Itoa(t.ForeignKeys),
			yesNo(t.Junction),
			yesNo(t.Skipped),
		})
	}
	r.Table([]string{"Table", "Columns", "Foreign Keys", "Junction", "Skipped"}, rows)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridcell/internal/cli/config"
	"github.com/leapstack-labs/gridcell/internal/cli/output"
	"github.com/leapstack-labs/gridcell/internal/rowstore"
	"github.com/leapstack-labs/gridcell/internal/schema"
	"github.com/leapstack-labs/gridcell/internal/state"
	"github.com/leapstack-labs/gridcell/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// Template loads and validates the schema template.
func (c *CommandContext) Template() (*core.Template, error) {
	src, err := c.Source()
	if err != nil {
		return nil, err
	}
	return src.Template(), nil
}

// Source opens the schema template for watching.
func (c *CommandContext) Source() (*schema.Source, error) {
	if err := c.Cfg.RequireSchema(); err != nil {
		return nil, err
	}
	src, err := schema.Open(c.Cfg.SchemaPath, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	return src, nil
}

// OpenState opens the commit log and view database, creating its directory.
func (c *CommandContext) OpenState(ctx context.Context) (*state.SQLiteStore, error) {
	if c.Cfg.StatePath != ":memory:" {
		if dir := filepath.Dir(c.Cfg.StatePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}
	store := state.NewSQLiteStore(c.Logger)
	if err := store.Open(ctx, c.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state: %w", err)
	}
	return store, nil
}

// OpenRows connects to the configured row store, or returns nil when none is set.
func (c *CommandContext) OpenRows(ctx context.Context) (*rowstore.Applier, error) {
	if c.Cfg.RowStore.Provider == "" {
		return nil, nil
	}
	return rowstore.Open(ctx, c.Cfg.RowStore, c.Logger)
}

// LoadRows reads rows from a JSON file (an array of objects), or from the
// row store when path is empty.
func (c *CommandContext) LoadRows(ctx context.Context, tpl *core.Template, table, path string, limit int) ([]core.Row, error) {
	if path != "" {
		return readRowsFile(path)
	}
	rows, err := c.OpenRows(ctx)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		return nil, fmt.Errorf("no rows: pass --data or configure rowstore.provider in %s", config.ConfigFileName)
	}
	defer func() { _ = rows.Close() }()
	return rows.Rows(ctx, tpl, table, limit)
}

func readRowsFile(path string) ([]core.Row, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-supplied data file
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	var rows []core.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse rows in %s: %w", path, err)
	}
	return rows, nil
}

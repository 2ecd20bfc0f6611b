package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridcell/internal/server"
	"github.com/leapstack-labs/gridcell/internal/state"
	"github.com/leapstack-labs/gridcell/internal/tui"
	"github.com/leapstack-labs/gridcell/pkg/bridge"
	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/session"
	"github.com/leapstack-labs/gridcell/pkg/view"
)

// NewEditCommand creates the edit command.
func NewEditCommand() *cobra.Command {
	var (
		rf     rowFlags
		viewID string
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "edit <table>",
		Short: "Edit a table in the terminal",
		Long: `Open a terminal grid editor on a table.

Keys:
  arrows, tab   move between cells
  enter         edit the cell, or commit the edit
  esc           cancel the edit
  space         toggle a Boolean cell
  + / -         step a Counter or Progress cell
  q             quit

Commits are recorded in the state database and applied to the row store.
With --data and --save, the edited rows are written back to the file on exit.`,
		Example: `  gridcell edit items
  gridcell edit items --data items.json --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, args[0], rf, viewID, save)
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&viewID, "view", "", "Apply a saved view layout")
	cmd.Flags().BoolVar(&save, "save", false, "Write edited rows back to the --data file")
	return cmd
}

func runEdit(cmd *cobra.Command, table string, rf rowFlags, viewID string, save bool) error {
	ctx := cmd.Context()
	c := NewCommandContext(cmd)
	if save && rf.data == "" {
		return errors.New("--save needs --data")
	}

	tpl, rows, err := rf.tableRows(cmd, c, table)
	if err != nil {
		return err
	}

	store, err := c.OpenState(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var cfg core.ViewConfig
	if viewID != "" {
		saved, err := store.LoadView(ctx, viewID)
		switch {
		case err == nil:
			cfg = saved.Config
		case errors.Is(err, state.ErrViewNotFound):
			c.Renderer.Warning("view %q not found, using the default layout", viewID)
		default:
			return err
		}
	}

	keyColumn := core.IDColumn
	var writer server.RowWriter
	if rf.data == "" {
		applier, err := c.OpenRows(ctx)
		if err != nil {
			return err
		}
		if applier != nil {
			defer func() { _ = applier.Close() }()
			keyColumn = applier.KeyColumn()
			writer = applier
		}
	}

	resolver := view.Resolver{Template: tpl, Options: c.Cfg.Tables}
	opts := []session.Option{
		session.WithLogger(c.Logger),
		session.WithColumns(resolver),
	}
	if c.Cfg.Session.WarnDuration > 0 {
		opts = append(opts, session.WithWarnDuration(c.Cfg.Session.WarnDuration))
	}
	if c.Cfg.Session.EmitUnchanged {
		opts = append(opts, session.WithEmitUnchanged())
	}
	sessions := session.New(opts...)
	sessions.OnCommit(func(ev core.CommitEvent) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := store.AppendCommit(pctx, ev); err != nil {
			c.Logger.Error("failed to record commit", "event", ev.ID, "error", err)
		}
		if writer != nil {
			if err := writer.Apply(pctx, ev); err != nil {
				c.Logger.Error("failed to apply commit", "event", ev.ID, "error", err)
			}
		}
	})

	model := tui.New(tui.Config{
		Table:     table,
		Columns:   view.Describe(tpl, table, cfg, rows, c.Cfg.Tables[table]),
		Rows:      rows,
		KeyColumn: keyColumn,
		Bridge:    bridge.New(sessions, bridge.WithLogger(c.Logger)),
		Logger:    c.Logger,
	})

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("editor: %w", err)
	}
	done, ok := final.(tui.Model)
	if !ok {
		return nil
	}

	if save {
		if err := writeRowsFile(rf.data, done.Rows()); err != nil {
			return err
		}
	}
	c.Renderer.Success("%d commits to %s", done.Commits(), table)
	return nil
}

func writeRowsFile(path string, rows []core.Row) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to save rows: %w", err)
	}
	return nil
}

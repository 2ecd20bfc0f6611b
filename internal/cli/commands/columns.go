package commands

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridcell/internal/cli/output"
	"github.com/leapstack-labs/gridcell/internal/state"
	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/view"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the schema template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			tpl, err := c.Template()
			if err != nil {
				return err
			}

			type tableInfo struct {
				Name    string `json:"tableName"`
				Columns int    `json:"columns"`
			}
			var tables []tableInfo
			for _, name := range tpl.TableNames() {
				tables = append(tables, tableInfo{Name: name, Columns: len(tpl.Columns(name))})
			}

			if c.Renderer.EffectiveMode() == output.ModeJSON {
				return c.Renderer.JSON(tables)
			}
			rows := make([][]string, len(tables))
			for i, t := range tables {
				rows[i] = []string{t.Name, strconv.Itoa(t.Columns)}
			}
			c.Renderer.Table([]string{"Table", "Columns"}, rows)
			return nil
		},
	}
}

// NewColumnsCommand creates the columns command.
func NewColumnsCommand() *cobra.Command {
	var (
		viewID string
		all    bool
	)
	cmd := &cobra.Command{
		Use:   "columns <table>",
		Short: "Describe the columns of a table",
		Long: `Describe the columns of a table in display order: header, field type,
width, pin and whether the column is read-only or hidden.

With --view the saved layout of that view is applied.`,
		Example: `  gridcell columns items
  gridcell columns items --view items-default --all
  gridcell columns items -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			tpl, err := c.Template()
			if err != nil {
				return err
			}
			table := args[0]
			if !slices.Contains(tpl.TableNames(), table) {
				return fmt.Errorf("unknown table %q", table)
			}

			var cfg core.ViewConfig
			if viewID != "" {
				store, err := c.OpenState(cmd.Context())
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()

				saved, err := store.LoadView(cmd.Context(), viewID)
				if err != nil && !errors.Is(err, state.ErrViewNotFound) {
					return err
				}
				if err == nil {
					cfg = saved.Config
				} else {
					c.Renderer.Warning("view %q not found, using the default layout", viewID)
				}
			}

			cols := view.Describe(tpl, table, cfg, nil, c.Cfg.Tables[table])
			if !all {
				cols = slices.DeleteFunc(cols, func(d core.ColumnDescriptor) bool { return d.Hidden })
			}

			if c.Renderer.EffectiveMode() == output.ModeJSON {
				return c.Renderer.JSON(cols)
			}
			rows := make([][]string, len(cols))
			for i, d := range cols {
				rows[i] = []string{
					d.Name, d.DisplayName, string(d.Type), strconv.Itoa(d.Width),
					string(d.Pin), flag(d.Readonly, "readonly"), flag(d.Hidden, "hidden"),
				}
			}
			c.Renderer.Table([]string{"Column", "Header", "Type", "Width", "Pin", "", ""}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&viewID, "view", "", "Apply a saved view layout")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include hidden columns")
	return cmd
}

func flag(set bool, name string) string {
	if set {
		return name
	}
	return ""
}

package commands

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridcell/internal/cli/output"
	"github.com/leapstack-labs/gridcell/pkg/aggregate"
	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/grouping"
)

// rowFlags select where a command reads table rows from.
type rowFlags struct {
	data  string
	limit int
}

func (f *rowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.data, "data", "", "JSON file with an array of rows (default: the configured row store)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Maximum rows to read from the row store (0 for all)")
}

// tableRows loads the template and the rows of table.
func (f *rowFlags) tableRows(cmd *cobra.Command, c *CommandContext, table string) (*core.Template, []core.Row, error) {
	tpl, err := c.Template()
	if err != nil {
		return nil, nil, err
	}
	if !slices.Contains(tpl.TableNames(), table) {
		return nil, nil, fmt.Errorf("unknown table %q", table)
	}
	rows, err := c.LoadRows(cmd.Context(), tpl, table, f.data, f.limit)
	if err != nil {
		return nil, nil, err
	}
	return tpl, rows, nil
}

// NewGroupCommand creates the group command.
func NewGroupCommand() *cobra.Command {
	var rf rowFlags
	cmd := &cobra.Command{
		Use:   "group <table> <column>...",
		Short: "Group rows by the values of one or more columns",
		Long: `Group rows by a derived key of each column, outermost first. Select options
are sorted and joined, related rows are labelled by their display field, and
null cells fall into the "(empty)" group. Further columns split each group.`,
		Example: `  gridcell group items status --data items.json
  gridcell group documents customer_ status -o json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			table, columns := args[0], args[1:]
			tpl, rows, err := rf.tableRows(cmd, c, table)
			if err != nil {
				return err
			}
			keys := make([]string, len(columns))
			for i, column := range columns {
				if _, err := tpl.FieldType(table, column); err != nil {
					return err
				}
				keys[i] = grouping.KeyColumn(column)
			}

			groups := grouping.GroupRows(tpl, table, columns, rows)
			if c.Renderer.EffectiveMode() == output.ModeJSON {
				return c.Renderer.JSON(map[string]any{
					"columns": keys,
					"groups":  groups,
				})
			}
			var out [][]string
			flattenGroups(groups, "", &out)
			c.Renderer.Table([]string{"Group", "Rows"}, out)
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

// flattenGroups lists nested groups as "outer / inner" paths.
func flattenGroups(groups []grouping.Group, prefix string, out *[][]string) {
	for _, g := range groups {
		path := g.Key
		if prefix != "" {
			path = prefix + " / " + g.Key
		}
		*out = append(*out, []string{path, strconv.Itoa(len(g.Rows))})
		flattenGroups(g.Groups, path, out)
	}
}

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand() *cobra.Command {
	var (
		rf   rowFlags
		aggs []string
	)
	cmd := &cobra.Command{
		Use:   "aggregate <table>",
		Short: "Compute column footer summaries",
		Long: `Compute footer aggregations over the rows of a table. Each --agg names
a column and an aggregation as column=kind. A kind that does not apply to
the column's field type yields an empty result.

Run "gridcell field types" for the aggregations of each field type.`,
		Example: `  gridcell aggregate items --data items.json --agg price=sum --agg status=unique`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			config, err := parseAggregates(aggs)
			if err != nil {
				return err
			}
			tpl, rows, err := rf.tableRows(cmd, c, args[0])
			if err != nil {
				return err
			}

			summaries := aggregate.Summarize(tpl, args[0], rows, config)
			if c.Renderer.EffectiveMode() == output.ModeJSON {
				return c.Renderer.JSON(summaries)
			}
			out := make([][]string, len(summaries))
			for i, s := range summaries {
				out[i] = []string{s.Column, s.Label, s.Text}
			}
			c.Renderer.Table([]string{"Column", "Aggregation", "Value"}, out)
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringArrayVar(&aggs, "agg", nil, "Aggregation as column=kind (repeatable)")
	_ = cmd.MarkFlagRequired("agg")
	return cmd
}

func parseAggregates(specs []string) (map[string]aggregate.Kind, error) {
	out := make(map[string]aggregate.Kind, len(specs))
	for _, s := range specs {
		column, kind, ok := strings.Cut(s, "=")
		if !ok || column == "" {
			return nil, fmt.Errorf("invalid --agg %q: want column=kind", s)
		}
		k := aggregate.Kind(strings.TrimSpace(kind))
		if !k.Known() {
			return nil, fmt.Errorf("unknown aggregation %q", kind)
		}
		out[strings.TrimSpace(column)] = k
	}
	return out, nil
}

package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/gridcell/internal/cli/output"
	"github.com/leapstack-labs/gridcell/pkg/aggregate"
	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/field"
)

// errInvalidValue is returned after an invalid value has been reported.
var errInvalidValue = errors.New("invalid value")

// FieldResult is the JSON output of the field commands.
type FieldResult struct {
	Type    core.FieldType `json:"fieldType"`
	Input   string         `json:"input"`
	Valid   bool           `json:"valid"`
	Value   *core.Value    `json:"value,omitempty"`
	Display string         `json:"display,omitempty"`
	Problem string         `json:"problem,omitempty"`
}

// NewFieldCommand creates the field command group.
func NewFieldCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Run values through a field type pipeline",
		Long: `Inspect how a field type sanitizes, validates, stores and displays values.

Type names ignore case, spaces and underscores: "multi_select" and
"Multi select" are the same type. Unknown types fall back to Text.`,
	}
	cmd.AddCommand(newFieldCheckCommand(), newFieldFormatCommand(), newFieldTypesCommand())
	return cmd
}

func newFieldCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <type> <input>...",
		Short: "Canonicalize typed input the way a commit would",
		Example: `  gridcell field check Float '$1,234.50'
  gridcell field check Url www.example.com
  gridcell field check Date 2024-02-30`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			col := descriptor(c.Renderer, args[0])
			input := strings.Join(args[1:], " ")

			res := FieldResult{Type: col.Type, Input: input}
			v, err := field.Canonicalize(col, core.StringValue(input))
			if err != nil {
				var ve *core.ValidationError
				if !errors.As(err, &ve) {
					return err
				}
				res.Problem = ve.Reason
			} else {
				res.Valid = true
				res.Value = &v
				res.Display = field.Display(col, v)
			}
			return writeFieldResult(c.Renderer, res)
		},
	}
}

func newFieldFormatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "format <type> <stored-json>",
		Short: "Display a stored value and check it still satisfies the type",
		Example: `  gridcell field format Progress 42
  gridcell field format 'Multi select' '["b","a"]'
  gridcell field format Relationship '{"id":7,"name":"Acme"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			col := descriptor(c.Renderer, args[0])

			var v core.Value
			if err := json.Unmarshal([]byte(args[1]), &v); err != nil {
				// Bare words are strings.
				v = core.StringValue(args[1])
			}
			res := FieldResult{
				Type:    col.Type,
				Input:   args[1],
				Valid:   field.For(col.Type).Valid(v, col),
				Value:   &v,
				Display: field.Display(col, v),
			}
			if !res.Valid {
				res.Problem = fmt.Sprintf("stored value does not satisfy %s", col.Type)
			}
			return writeFieldResult(c.Renderer, res)
		},
	}
}

func newFieldTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List field types and their footer aggregates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := NewCommandContext(cmd).Renderer

			type typeInfo struct {
				Type       core.FieldType   `json:"fieldType"`
				Editable   bool             `json:"editable"`
				Aggregates []aggregate.Kind `json:"aggregates"`
			}
			var infos []typeInfo
			for _, ft := range field.Types() {
				infos = append(infos, typeInfo{Type: ft, Editable: ft.Editable(), Aggregates: aggregate.Available(ft)})
			}

			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(infos)
			}
			rows := make([][]string, len(infos))
			for i, info := range infos {
				kinds := make([]string, len(info.Aggregates))
				for j, k := range info.Aggregates {
					kinds[j] = string(k)
				}
				rows[i] = []string{string(info.Type), fmt.Sprint(info.Editable), strings.Join(kinds, ", ")}
			}
			r.Table([]string{"Type", "Editable", "Aggregates"}, rows)
			return nil
		},
	}
}

// descriptor builds a column for a type name, warning on unknown names.
func descriptor(r *output.Renderer, name string) core.ColumnDescriptor {
	ft, ok := core.ParseFieldType(name)
	if !ok {
		r.Warning("unknown field type %q, using Text", name)
	}
	return core.ColumnDescriptor{Name: "value", DisplayName: "Value", Type: ft, Range: field.DefaultRange(ft)}
}

func writeFieldResult(r *output.Renderer, res FieldResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(res); err != nil {
			return err
		}
	} else if res.Valid {
		raw, err := json.Marshal(res.Value)
		if err != nil {
			return err
		}
		r.Success("%s", res.Display)
		r.Muted("stored as %s", raw)
	} else {
		r.Error("%s", res.Problem)
	}
	if !res.Valid {
		return errInvalidValue
	}
	return nil
}

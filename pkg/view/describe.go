package view

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/field"
)

// DefaultHidden lists columns hidden unless a view enables them.
var DefaultHidden = []string{"row_order", "comments_"}

// Column widths in pixels.
const (
	IDWidth         = 120
	MinContentWidth = 100
	MaxColumnWidth  = 400
	charWidth       = 8
	numericPadding  = 5
	headerReserve   = 65
	widthSampleRows = 10
)

// TableOptions are per-table layout preferences from configuration.
type TableOptions struct {
	PreferredOrder []string `koanf:"preferred_order" json:"preferredOrder,omitempty"`
	HiddenColumns  []string `koanf:"hidden_columns" json:"hiddenColumns,omitempty"`
	// ReadonlyColumns blocks editing in addition to the schema's readonly flags.
	ReadonlyColumns []string `koanf:"readonly_columns" json:"readonlyColumns,omitempty"`
}

// Row is one loaded table row keyed by column name.
type Row = core.Row

// IsHidden reports whether a column is hidden by default: foreign keys
// (*_id), bookkeeping columns and any extra names.
func IsHidden(column string, extra []string) bool {
	if strings.HasSuffix(strings.ToLower(column), "_id") {
		return true
	}
	return slices.Contains(DefaultHidden, column) || slices.Contains(extra, column)
}

// DisplayName turns a column name into a header: underscores become spaces
// and words are title-cased.
func DisplayName(column string) string {
	// Casers are stateful; one per call.
	caser := cases.Title(language.English)
	return strings.TrimSpace(caser.String(strings.ReplaceAll(column, "_", " ")))
}

var (
	nonSQLChars  = regexp.MustCompile(`[^a-z0-9]+`)
	sqlStartChar = regexp.MustCompile(`^[a-z_]`)
)

// SQLName converts a display name into a column name usable in SQL:
// lowercase, non-alphanumerics collapsed to one underscore, a col_ prefix when
// it would not start with a letter, and at most 63 characters.
func SQLName(name string) string {
	s := nonSQLChars.ReplaceAllString(strings.ToLower(name), "_")
	s = strings.Trim(s, "_")
	if !sqlStartChar.MatchString(s) {
		s = "col_" + s
	}
	if len(s) > 63 {
		s = s[:63]
	}
	return s
}

// BaseWidth is the type-driven default width of a column.
func BaseWidth(t core.FieldType) int {
	switch t {
	case core.FieldNumber, core.FieldFloat, core.FieldBoolean, core.FieldImage, core.FieldCounter:
		return 120
	case core.FieldDate:
		return 170
	case core.FieldMultiSelect, core.FieldProgress, core.FieldRelationship:
		return 175
	case core.FieldText:
		return 200
	case core.FieldJSON, core.FieldURL:
		return 225
	case core.FieldLongText:
		return 250
	default:
		return 130
	}
}

// Width estimates a column width from its type, header and the first rows.
// Text and numeric columns size to their longest sampled value.
func Width(column string, t core.FieldType, rows []Row) int {
	if column == core.IDColumn {
		return IDWidth
	}
	base := BaseWidth(t)

	switch t {
	case core.FieldText, core.FieldNumber, core.FieldFloat:
		if len(rows) == 0 {
			break
		}
		longest := utf8.RuneCountInString(column)
		for _, row := range rows[:min(len(rows), widthSampleRows)] {
			longest = max(longest, utf8.RuneCountInString(row[column].Text()))
		}
		pad := 0
		if t != core.FieldText {
			pad = numericPadding
		}
		content := min(max(longest*charWidth+pad, MinContentWidth), MaxColumnWidth)
		return max(base, content)
	}

	header := utf8.RuneCountInString(column)*charWidth + headerReserve
	return min(max(header, base), MaxColumnWidth)
}

// Describe builds the column descriptors of a table in view order.
// Columns the schema does not know are described as Text.
func Describe(tpl *core.Template, table string, cfg core.ViewConfig, rows []Row, opts TableOptions) []core.ColumnDescriptor {
	order := cfg.ColumnOrder
	if len(order) == 0 {
		order = NewReconciler(tpl).Reconcile(cfg, tpl.Columns(table), opts.PreferredOrder).ColumnOrder
	}

	out := make([]core.ColumnDescriptor, 0, len(order))
	for _, name := range order {
		out = append(out, DescribeColumn(tpl, table, name, cfg, rows, opts))
	}
	return out
}

// DescribeColumn builds the descriptor of one column.
func DescribeColumn(tpl *core.Template, table, name string, cfg core.ViewConfig, rows []Row, opts TableOptions) core.ColumnDescriptor {
	ft, _ := tpl.FieldType(table, name)

	d := core.ColumnDescriptor{
		Name:        name,
		DisplayName: DisplayName(name),
		Type:        ft,
		Range:       field.DefaultRange(ft),
		Pin:         cfg.PinOf(name),
	}

	if ts, ok := tpl.Table(table); ok {
		if fs, ok := ts.Fields[name]; ok {
			if fs.DisplayName != "" {
				d.DisplayName = fs.DisplayName
			}
			d.Readonly = fs.Readonly
			if d.Range != nil && fs.HasRange() {
				d.Range = withBounds(*d.Range, fs)
			}
		}
	}
	if _, local, _, ok := tpl.Relation(table, name); ok {
		d.Relation = true
		if local.Name != "" {
			d.DisplayName = local.Name
		}
	}

	d.Hidden = IsHidden(name, opts.HiddenColumns)
	for _, vc := range cfg.VisibleColumns {
		if vc.Name == name {
			d.Hidden = !vc.Enabled
		}
	}

	if name == core.IDColumn {
		d.Readonly = true
		d.Hidden = false
		if d.Pin == core.PinNone {
			d.Pin = core.PinStart
		}
	}
	if !ft.Editable() || slices.Contains(opts.ReadonlyColumns, name) {
		d.Readonly = true
	}

	d.Width = Width(name, ft, rows)
	return d
}

// withBounds overlays the schema's bounds on a type's default range.
func withBounds(r core.NumericRange, fs core.FieldSchema) *core.NumericRange {
	if fs.Min != nil {
		r.Min = *fs.Min
	}
	if fs.Max != nil {
		r.Max = *fs.Max
	}
	if fs.Step != nil && *fs.Step > 0 {
		r.Step = *fs.Step
	}
	return &r
}

// Resolver answers column lookups for one schema, for use by edit stores.
type Resolver struct {
	Template *core.Template
	Options  map[string]TableOptions
}

// Column returns the descriptor of table.column, or a SchemaMismatchError.
func (r Resolver) Column(table, column string) (core.ColumnDescriptor, error) {
	if _, err := r.Template.FieldType(table, column); err != nil {
		return core.ColumnDescriptor{}, err
	}
	return DescribeColumn(r.Template, table, column, core.ViewConfig{}, nil, r.Options[table]), nil
}

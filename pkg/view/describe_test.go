package view

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

func itemsTemplate() *core.Template {
	return &core.Template{
		Tables: map[string]*core.TableSchema{
			"items": {
				Fields: map[string]core.FieldSchema{
					"description": {Type: core.FieldText, DisplayName: "Item"},
					"quantity":    {Type: core.FieldCounter},
					"progress":    {Type: core.FieldProgress},
					"document_id": {Type: core.FieldNumber},
					"row_order":   {Type: core.FieldNumber},
					"rating":      {Type: "Stars"},
					"stock":       {Type: core.FieldCounter, Min: ptr(-5), Step: ptr(0.5)},
					"sku":         {Type: core.FieldText, Readonly: true},
					"note":        {Type: core.FieldText},
				},
				FieldOrder: []string{"rating", "quantity", "description", "progress", "document_id", "row_order"},
			},
			"documents": {Fields: map[string]core.FieldSchema{"title": {Type: core.FieldText}}},
		},
		Relations: []core.Relation{{
			Type:       core.RelationOneToMany,
			Source:     core.RelationEnd{Table: "documents", As: "items_", Name: "Items", Relation: "hasMany"},
			Target:     core.RelationEnd{Table: "items", As: "document_", Name: "Document", Relation: "belongsTo"},
			ForeignKey: "document_id",
		}},
	}
}

func TestDescribe(t *testing.T) {
	tpl := itemsTemplate()
	opts := TableOptions{PreferredOrder: []string{"id", "description", "quantity"}}

	cols := Describe(tpl, "items", core.ViewConfig{}, nil, opts)
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "description", "quantity", "rating", "progress", "document_id", "row_order", "document_"}, names)

	byName := map[string]core.ColumnDescriptor{}
	for _, c := range cols {
		byName[c.Name] = c
	}

	id := byName["id"]
	assert.True(t, id.Readonly)
	assert.Equal(t, core.PinStart, id.Pin)
	assert.Equal(t, IDWidth, id.Width)

	assert.Equal(t, "Item", byName["description"].DisplayName)
	assert.Equal(t, core.FieldText, byName["rating"].Type, "unknown type falls back to text")

	qty := byName["quantity"]
	require.NotNil(t, qty.Range)
	assert.Equal(t, core.NumericRange{Min: 0, Max: 100, Step: 1}, *qty.Range)
	require.NotNil(t, byName["progress"].Range)
	assert.InDelta(t, 5, byName["progress"].Range.Step, 1e-9)

	assert.True(t, byName["document_id"].Hidden)
	assert.True(t, byName["row_order"].Hidden)
	assert.False(t, byName["description"].Hidden)

	rel := byName["document_"]
	assert.True(t, rel.Relation)
	assert.True(t, rel.Readonly)
	assert.Equal(t, "Document", rel.DisplayName)
	assert.Equal(t, core.FieldRelationship, rel.Type)
}

func TestDescribe_ViewOverrides(t *testing.T) {
	tpl := itemsTemplate()
	cfg := core.ViewConfig{
		ColumnOrder:    []string{"quantity", "id", "row_order", "ghost"},
		VisibleColumns: []core.ColumnVisibility{{Name: "row_order", Enabled: true}, {Name: "quantity", Enabled: false}},
		Pinned:         core.PinnedColumns{End: []string{"quantity"}},
	}
	cols := Describe(tpl, "items", cfg, nil, TableOptions{})
	require.Len(t, cols, 4)
	assert.True(t, cols[0].Hidden)
	assert.Equal(t, core.PinEnd, cols[0].Pin)
	assert.False(t, cols[2].Hidden)
	assert.Equal(t, core.FieldText, cols[3].Type)
	assert.Equal(t, "Ghost", cols[3].DisplayName)
}

func ptr(f float64) *float64 { return &f }

func TestDescribeColumn_SchemaBoundsAndReadonly(t *testing.T) {
	tpl := itemsTemplate()
	opts := TableOptions{ReadonlyColumns: []string{"note"}}

	stock := DescribeColumn(tpl, "items", "stock", core.ViewConfig{}, nil, opts)
	require.NotNil(t, stock.Range)
	assert.Equal(t, core.NumericRange{Min: -5, Max: 100, Step: 0.5}, *stock.Range, "unset bounds keep type defaults")
	assert.False(t, stock.Readonly)

	assert.True(t, DescribeColumn(tpl, "items", "sku", core.ViewConfig{}, nil, opts).Readonly)
	assert.True(t, DescribeColumn(tpl, "items", "note", core.ViewConfig{}, nil, opts).Readonly)
	assert.False(t, DescribeColumn(tpl, "items", "description", core.ViewConfig{}, nil, opts).Readonly)

	qty := DescribeColumn(tpl, "items", "quantity", core.ViewConfig{}, nil, opts)
	require.NotNil(t, qty.Range)
	assert.Equal(t, core.NumericRange{Min: 0, Max: 100, Step: 1}, *qty.Range)
}

func TestWidth(t *testing.T) {
	rows := []Row{
		{"description": core.StringValue(strings.Repeat("x", 30))},
		{"description": core.StringValue("short")},
	}
	assert.Equal(t, 240, Width("description", core.FieldText, rows))
	assert.Equal(t, 200, Width("description", core.FieldText, []Row{{"description": core.StringValue("ab")}}))
	assert.Equal(t, MaxColumnWidth, Width("description", core.FieldText, []Row{{"description": core.StringValue(strings.Repeat("y", 80))}}))
	assert.Equal(t, 120, Width("n", core.FieldNumber, []Row{{"n": core.StringValue("12")}}))
	assert.Equal(t, 170, Width("due", core.FieldDate, nil))
	assert.Equal(t, 65+8*len("a_very_long_relation_column_name"), Width("a_very_long_relation_column_name", core.FieldRelationship, nil))
	assert.Equal(t, IDWidth, Width("id", core.FieldText, rows))
}

func TestDisplayAndSQLNames(t *testing.T) {
	assert.Equal(t, "Document Number", DisplayName("document_number"))
	assert.Equal(t, "Customer", DisplayName("customer_"))

	assert.Equal(t, "unit_price", SQLName("Unit  Price!"))
	assert.Equal(t, "col_2024_sales", SQLName("2024 Sales"))
	assert.Equal(t, "a_b", SQLName("__A--b__"))
	assert.Len(t, SQLName(strings.Repeat("abc ", 40)), 63)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("customer_ID", nil))
	assert.True(t, IsHidden("comments_", nil))
	assert.True(t, IsHidden("secret", []string{"secret"}))
	assert.False(t, IsHidden("identity", nil))
}

func TestResolver(t *testing.T) {
	r := Resolver{Template: itemsTemplate()}

	col, err := r.Column("items", "progress")
	require.NoError(t, err)
	assert.Equal(t, core.FieldProgress, col.Type)

	_, err = r.Column("items", "ghost")
	var sme *core.SchemaMismatchError
	assert.True(t, errors.As(err, &sme))
}

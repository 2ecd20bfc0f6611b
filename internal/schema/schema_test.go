package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridcell/internal/testutil"
	"github.com/leapstack-labs/gridcell/pkg/core"
)

func TestLoad(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()

	tpl, err := Load(filepath.Join("testdata", "sales.yaml"), logger)
	require.NoError(t, err)
	require.NoError(t, Validate(tpl))

	docs, ok := tpl.Table("documents")
	require.True(t, ok)
	assert.Equal(t, "document_number", docs.DisplayField)
	assert.Equal(t, "Transactional", docs.Category)
	assert.Equal(t, []string{"document_number", "status", "tags", "website", "rating", "total"}, docs.OrderedFields())

	assert.Equal(t, core.FieldSingleSelect, docs.Fields["status"].Type)
	assert.Equal(t, core.FieldMultiSelect, docs.Fields["tags"].Type)
	assert.Equal(t, core.FieldText, docs.Fields["rating"].Type)
	assert.Equal(t, "Number", docs.Fields["document_number"].DisplayName)
	assert.Contains(t, logs.String(), "type=Stars")

	require.Len(t, tpl.Relations, 1)
	assert.Equal(t, core.RelationOneToMany, tpl.Relations[0].Type)
	assert.Equal(t, "customer_id", tpl.Relations[0].ForeignKey)

	ft, err := tpl.FieldType("documents", "customer_")
	require.NoError(t, err)
	assert.Equal(t, core.FieldRelationship, ft)
}

func TestParse_JSON(t *testing.T) {
	data := []byte(`{"tables": {"items": {"fields": {"b": {"type": "Counter"}, "a": {"type": "Progress"}}}, "empty": null}, "relations": []}`)
	tpl, err := Parse(data, testutil.NewTestLogger(t))
	require.NoError(t, err)

	items, _ := tpl.Table("items")
	assert.Equal(t, []string{"b", "a"}, items.OrderedFields())
	assert.Equal(t, core.FieldCounter, items.Fields["b"].Type)

	empty, ok := tpl.Table("empty")
	require.True(t, ok)
	assert.Empty(t, empty.Fields)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(""), nil)
	assert.Error(t, err)

	_, err = Parse([]byte("tables: [1, 2"), nil)
	assert.Error(t, err)

	_, err = Parse([]byte("tables: 7"), nil)
	assert.Error(t, err)

	_, err = Load(filepath.Join("testdata", "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tpl := &core.Template{
		Tables: map[string]*core.TableSchema{
			"a": {DisplayField: "nope", Fields: map[string]core.FieldSchema{"b_": {Type: core.FieldText}}},
		},
		Relations: []core.Relation{
			{Type: core.RelationManyToMany, Source: core.RelationEnd{Table: "a", As: "b_"}, Target: core.RelationEnd{Table: "ghost", As: "a_"}},
		},
	}
	err := Validate(tpl)
	require.Error(t, err)
	for _, want := range []string{`unknown table "ghost"`, "a.b_ is also a field", "through table", `display field "nope"`} {
		assert.Contains(t, err.Error(), want)
	}
	assert.Error(t, Validate(nil))
}

func TestParse_FieldBounds(t *testing.T) {
	data := []byte(`
tables:
  items:
    fields:
      stock: {type: Counter, min: -5, max: 10, step: 0.5}
      sku: {type: Text, readonly: true}
`)
	tpl, err := Parse(data, testutil.NewTestLogger(t))
	require.NoError(t, err)
	require.NoError(t, Validate(tpl))

	items, _ := tpl.Table("items")
	stock := items.Fields["stock"]
	require.True(t, stock.HasRange())
	assert.InDelta(t, -5, *stock.Min, 1e-9)
	assert.InDelta(t, 10, *stock.Max, 1e-9)
	assert.InDelta(t, 0.5, *stock.Step, 1e-9)
	assert.True(t, items.Fields["sku"].Readonly)
	assert.False(t, items.Fields["sku"].HasRange())
}

func TestValidate_FieldBounds(t *testing.T) {
	ptr := func(f float64) *float64 { return &f }
	tests := []struct {
		name  string
		field core.FieldSchema
		want  string
	}{
		{"min above max", core.FieldSchema{Type: core.FieldCounter, Min: ptr(5), Max: ptr(1)}, "greater than max"},
		{"zero step", core.FieldSchema{Type: core.FieldProgress, Step: ptr(0)}, "step must be positive"},
		{"not ranged", core.FieldSchema{Type: core.FieldText, Max: ptr(3)}, "only to Counter and Progress"},
		{"valid", core.FieldSchema{Type: core.FieldCounter, Min: ptr(-1), Max: ptr(1)}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := &core.Template{Tables: map[string]*core.TableSchema{
				"items": {Fields: map[string]core.FieldSchema{"x": tt.field}},
			}}
			err := Validate(tpl)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "items.x")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSource_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "template.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tables:\n  items:\n    fields:\n      name: {type: Text}\n"), 0o644))

	src, err := Open(path, testutil.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, path, src.Path())

	reloaded := make(chan *core.Template, 4)
	src.OnReload(func(tpl *core.Template) { reloaded <- tpl })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Watch(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("tables:\n  items:\n    fields:\n      qty: {type: Counter}\n"), 0o644))

	select {
	case tpl := <-reloaded:
		items, _ := tpl.Table("items")
		assert.Equal(t, []string{"qty"}, items.OrderedFields())
	case <-time.After(3 * time.Second):
		t.Fatal("template was not reloaded")
	}
	items, _ := src.Template().Table("items")
	assert.Equal(t, core.FieldCounter, items.Fields["qty"].Type)
}

func TestSource_ReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "template.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tables:\n  items: {}\n"), 0o644))

	src, err := Open(path, nil)
	require.NoError(t, err)
	before := src.Template()

	require.NoError(t, os.WriteFile(path, []byte("tables: [oops"), 0o644))
	assert.Error(t, src.Reload())
	assert.Same(t, before, src.Template())

	static := Static(before)
	assert.NoError(t, static.Reload())
	assert.Empty(t, static.Path())
}

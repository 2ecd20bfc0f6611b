package field

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

func TestRegistry_CoversEveryFieldType(t *testing.T) {
	for _, ft := range core.FieldTypes() {
		p, err := Lookup(ft)
		require.NoError(t, err, "missing pipeline for %s", ft)
		assert.Equal(t, ft, p.Type())
	}
	assert.Len(t, Types(), len(core.FieldTypes()))
}

func TestFor_UnknownFallsBackToText(t *testing.T) {
	p := For("Stars")
	assert.Equal(t, core.FieldText, p.Type())

	_, err := Lookup("Stars")
	var ufe *UnknownFieldTypeError
	require.True(t, errors.As(err, &ufe))
	assert.Contains(t, ufe.Error(), "Stars")
}

func TestText_KeepsInput(t *testing.T) {
	col := core.ColumnDescriptor{Name: "notes", Type: core.FieldLongText}
	got, err := Canonicalize(col, core.StringValue("  hello\nworld "))
	require.NoError(t, err)
	s, _ := got.Str()
	assert.Equal(t, "  hello\nworld ", s)

	got, err = Canonicalize(col, core.NumberValue(3))
	require.NoError(t, err)
	s, _ = got.Str()
	assert.Equal(t, "3", s)
}

func TestRelation_Display(t *testing.T) {
	rec := core.RecordOf("id", 7, "customer_id", 3, "created_at", "2024", "name", "Acme")
	assert.Equal(t, "Acme", RecordDisplay(rec, ""))
	assert.Equal(t, "7", RecordDisplay(rec, "missing"))
	assert.Equal(t, "2024", RecordDisplay(rec, "created_at"))
	assert.Equal(t, "7", RecordDisplay(core.RecordOf("id", 7, "meta", core.RecordOf("a", 1)), ""))
	assert.Equal(t, "", RecordDisplay(core.RecordOf("meta", nil), ""))

	many := core.RecordsValue([]*core.Record{
		core.RecordOf("id", 1, "name", "Zed"),
		core.RecordOf("id", 2, "name", "Amy"),
	})
	assert.Equal(t, "Amy, Zed", DisplayRelation(many, ""))
}

func TestRelation_RejectsEdits(t *testing.T) {
	col := core.ColumnDescriptor{Name: "customer_", Type: core.FieldRelationship}
	_, err := Canonicalize(col, core.StringValue("x"))
	assert.True(t, core.IsValidationError(err))
}

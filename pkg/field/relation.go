package field

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// InternalFields never serve as a relation's display value.
var InternalFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"row_order":  true,
	"createdAt":  true,
	"updatedAt":  true,
}

func init() {
	Register(relationPipeline{})
}

// relationPipeline renders embedded related rows. Edits are rejected;
// relations change through their own linking flow.
type relationPipeline struct{}

func (relationPipeline) Type() core.FieldType { return core.FieldRelationship }

func (relationPipeline) Sanitize(input string) string { return input }

func (relationPipeline) Parse(input string, col core.ColumnDescriptor) (core.Value, error) {
	return core.Null(), invalid(col, core.FieldRelationship, input, "relationship cells are read-only")
}

func (p relationPipeline) Normalize(v core.Value, col core.ColumnDescriptor) (core.Value, error) {
	return p.Parse(v.Text(), col)
}

func (relationPipeline) Display(v core.Value) string {
	return DisplayRelation(v, "")
}

func (relationPipeline) Valid(v core.Value, _ core.ColumnDescriptor) bool {
	switch v.Kind() {
	case core.KindNull, core.KindRecord, core.KindRecords:
		return true
	}
	return false
}

// RecordDisplay picks the display value of one related row: the configured
// display field, else the first primitive property that is neither internal
// nor a foreign key, else the id. Returns "" when nothing qualifies.
func RecordDisplay(rec *core.Record, displayField string) string {
	if rec == nil {
		return ""
	}
	if displayField != "" {
		if v, ok := rec.Get(displayField); ok && IsDisplayable(v) {
			return core.FormatPrimitive(v)
		}
	}
	for _, key := range rec.Keys() {
		if InternalFields[key] || isForeignKey(key) {
			continue
		}
		if v, _ := rec.Get(key); IsDisplayable(v) {
			return core.FormatPrimitive(v)
		}
	}
	if v, ok := rec.Get(core.IDColumn); ok && core.IsPrimitive(v) {
		return core.FormatPrimitive(v)
	}
	return ""
}

// DisplayRelation renders a relationship cell: a single display value, or the
// sorted display values of a has-many list joined with ", ".
func DisplayRelation(v core.Value, displayField string) string {
	switch v.Kind() {
	case core.KindRecord:
		return RecordDisplay(v.Record(), displayField)
	case core.KindRecords:
		var parts []string
		for _, rec := range v.Records() {
			if s := RecordDisplay(rec, displayField); s != "" {
				parts = append(parts, s)
			}
		}
		sort.Strings(parts)
		return strings.Join(parts, ", ")
	}
	return ""
}

// IsDisplayable reports whether a property value can label a related row.
func IsDisplayable(v any) bool {
	if !core.IsPrimitive(v) {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

func isForeignKey(key string) bool {
	return strings.HasSuffix(key, "_id") || strings.HasSuffix(key, "Id")
}

package field

import (
	"math"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

func init() {
	Register(booleanPipeline{})
}

// booleanPipeline coerces by truthiness. Null reads as false.
type booleanPipeline struct{}

func (booleanPipeline) Type() core.FieldType { return core.FieldBoolean }

// Sanitize keeps the input as typed: any non-empty text is true.
func (booleanPipeline) Sanitize(input string) string { return input }

func (p booleanPipeline) Parse(input string, _ core.ColumnDescriptor) (core.Value, error) {
	return core.BoolValue(Truthy(core.StringValue(p.Sanitize(input)))), nil
}

func (p booleanPipeline) Normalize(v core.Value, col core.ColumnDescriptor) (core.Value, error) {
	return core.BoolValue(Truthy(v)), nil
}

func (booleanPipeline) Display(v core.Value) string {
	if Truthy(v) {
		return "true"
	}
	return "false"
}

func (booleanPipeline) Valid(v core.Value, _ core.ColumnDescriptor) bool {
	k := v.Kind()
	return k == core.KindNull || k == core.KindBool
}

// Truthy coerces any value to a boolean. Strings are true when non-empty,
// numbers when neither zero nor NaN, and lists or records whenever present,
// even when empty.
func Truthy(v core.Value) bool {
	switch v.Kind() {
	case core.KindNull:
		return false
	case core.KindBool:
		b, _ := v.Bool()
		return b
	case core.KindString:
		s, _ := v.Str()
		return s != ""
	case core.KindNumber:
		n, _ := v.Num()
		return n != 0 && !math.IsNaN(n)
	}
	return true
}

package field

import "github.com/leapstack-labs/gridcell/pkg/core"

func init() {
	for _, t := range []core.FieldType{
		core.FieldText, core.FieldLongText, core.FieldBadge, core.FieldImage, core.FieldJSON,
	} {
		Register(textPipeline{typ: t})
	}
}

// textPipeline stores free text unchanged.
type textPipeline struct {
	typ core.FieldType
}

func (p textPipeline) Type() core.FieldType { return p.typ }

func (textPipeline) Sanitize(input string) string { return input }

func (textPipeline) Parse(input string, _ core.ColumnDescriptor) (core.Value, error) {
	return core.StringValue(input), nil
}

func (p textPipeline) Normalize(v core.Value, col core.ColumnDescriptor) (core.Value, error) {
	switch v.Kind() {
	case core.KindNull:
		return core.Null(), nil
	case core.KindString:
		s, _ := v.Str()
		return p.Parse(s, col)
	}
	return core.StringValue(v.Text()), nil
}

func (textPipeline) Display(v core.Value) string { return v.Text() }

func (textPipeline) Valid(core.Value, core.ColumnDescriptor) bool { return true }

package field

import (
	"strings"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

func init() {
	Register(numberPipeline{typ: core.FieldNumber})
	Register(numberPipeline{typ: core.FieldFloat})
}

// numberPipeline keeps numbers as the sanitized text the user entered,
// so "1.50" stays "1.50".
type numberPipeline struct {
	typ core.FieldType
}

func (p numberPipeline) Type() core.FieldType { return p.typ }

func (numberPipeline) Sanitize(input string) string { return SanitizeNumber(input) }

func (p numberPipeline) Parse(input string, col core.ColumnDescriptor) (core.Value, error) {
	s := SanitizeNumber(input)
	if s == "" {
		return core.Null(), nil
	}
	if reason := numberProblem(s); reason != "" {
		return core.Null(), invalid(col, p.typ, input, reason)
	}
	return core.StringValue(s), nil
}

func (p numberPipeline) Normalize(v core.Value, col core.ColumnDescriptor) (core.Value, error) {
	switch v.Kind() {
	case core.KindNull:
		return core.Null(), nil
	case core.KindString:
		s, _ := v.Str()
		return p.Parse(s, col)
	case core.KindNumber:
		n, _ := v.Num()
		return core.StringValue(core.FormatNumber(n)), nil
	}
	return core.Null(), invalid(col, p.typ, v.Text(), "not a number")
}

func (numberPipeline) Display(v core.Value) string {
	if n, ok := v.Num(); ok {
		return core.FormatNumber(n)
	}
	return v.Text()
}

func (numberPipeline) Valid(v core.Value, _ core.ColumnDescriptor) bool {
	switch v.Kind() {
	case core.KindNull, core.KindNumber:
		return true
	case core.KindString:
		s, _ := v.Str()
		return s == "" || (s == SanitizeNumber(s) && numberProblem(s) == "")
	}
	return false
}

// SanitizeNumber removes every character except digits, '.' and '-'.
func SanitizeNumber(input string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, input)
}

// numberProblem explains why sanitized text is not a number, or returns "".
func numberProblem(s string) string {
	if strings.Count(s, ".") > 1 {
		return "more than one decimal point"
	}
	if i := strings.LastIndex(s, "-"); i > 0 || strings.Count(s, "-") > 1 {
		return "minus sign must come first"
	}
	if !strings.ContainsAny(s, "0123456789") {
		return "no digits"
	}
	return ""
}

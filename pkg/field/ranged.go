package field

import (
	"math"
	"strconv"
	"strings"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// Default bounds for ranged types.
const (
	DefaultMin          = 0
	DefaultMax          = 100
	DefaultCounterStep  = 1
	DefaultProgressStep = 5
)

// Progress band colours.
const (
	ProgressLow  = "#eb690fcc"
	ProgressMid  = "#f9be06c9"
	ProgressHigh = "#2fb560ab"
)

func init() {
	Register(rangedPipeline{typ: core.FieldCounter})
	Register(rangedPipeline{typ: core.FieldProgress})
}

// rangedPipeline clamps and step-rounds Counter and Progress numbers.
type rangedPipeline struct {
	typ core.FieldType
}

func (p rangedPipeline) Type() core.FieldType { return p.typ }

func (rangedPipeline) Sanitize(input string) string { return SanitizeNumber(input) }

func (p rangedPipeline) Parse(input string, col core.ColumnDescriptor) (core.Value, error) {
	s := SanitizeNumber(input)
	if s == "" || s == "-" {
		return p.snap(0, col), nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return core.Null(), invalid(col, p.typ, input, "not a number")
	}
	return p.snap(n, col), nil
}

func (p rangedPipeline) Normalize(v core.Value, col core.ColumnDescriptor) (core.Value, error) {
	switch v.Kind() {
	case core.KindNull:
		return core.Null(), nil
	case core.KindNumber:
		n, _ := v.Num()
		return p.snap(n, col), nil
	case core.KindString:
		s, _ := v.Str()
		return p.Parse(s, col)
	}
	return core.Null(), invalid(col, p.typ, v.Text(), "not a number")
}

func (p rangedPipeline) snap(n float64, col core.ColumnDescriptor) core.Value {
	return core.NumberValue(Snap(n, RangeOf(col)))
}

func (rangedPipeline) Display(v core.Value) string {
	if n, ok := v.Num(); ok {
		return core.FormatNumber(n)
	}
	return v.Text()
}

func (rangedPipeline) Valid(v core.Value, col core.ColumnDescriptor) bool {
	switch v.Kind() {
	case core.KindNull:
		return true
	case core.KindNumber:
		n, _ := v.Num()
		r := RangeOf(col)
		return n >= r.Min && n <= r.Max
	case core.KindString:
		s, _ := v.Str()
		_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return err == nil
	}
	return false
}

// DefaultRange returns the default bounds for a ranged type, or nil.
func DefaultRange(t core.FieldType) *core.NumericRange {
	switch t {
	case core.FieldCounter:
		return &core.NumericRange{Min: DefaultMin, Max: DefaultMax, Step: DefaultCounterStep}
	case core.FieldProgress:
		return &core.NumericRange{Min: DefaultMin, Max: DefaultMax, Step: DefaultProgressStep}
	}
	return nil
}

// RangeOf returns the column's bounds, filling gaps with the type defaults.
func RangeOf(col core.ColumnDescriptor) core.NumericRange {
	r := core.NumericRange{Min: DefaultMin, Max: DefaultMax, Step: DefaultCounterStep}
	if d := DefaultRange(col.Type); d != nil {
		r = *d
	}
	if col.Range != nil {
		r.Min, r.Max = col.Range.Min, col.Range.Max
		if col.Range.Step > 0 {
			r.Step = col.Range.Step
		}
	}
	if r.Max < r.Min {
		r.Min, r.Max = r.Max, r.Min
	}
	return r
}

// Clamp limits n to [r.Min, r.Max].
func Clamp(n float64, r core.NumericRange) float64 {
	return math.Min(math.Max(n, r.Min), r.Max)
}

// Snap rounds n to the nearest multiple of r.Step, then clamps.
func Snap(n float64, r core.NumericRange) float64 {
	if r.Step > 0 {
		n = math.Round(n/r.Step) * r.Step
	}
	return Clamp(n, r)
}

// Increment adds one step to the current value and clamps.
func Increment(v core.Value, r core.NumericRange) core.Value {
	n, _ := v.Num()
	return core.NumberValue(Clamp(n+r.Step, r))
}

// Decrement subtracts one step from the current value and clamps.
func Decrement(v core.Value, r core.NumericRange) core.Value {
	n, _ := v.Num()
	return core.NumberValue(Clamp(n-r.Step, r))
}

// ProgressColor returns the band colour for a progress percentage.
func ProgressColor(n float64) string {
	switch {
	case n <= 25:
		return ProgressLow
	case n < 75:
		return ProgressMid
	default:
		return ProgressHigh
	}
}

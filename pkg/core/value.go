package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// =============================================================================
// Value
// =============================================================================

// Kind identifies which variant a Value holds.
type Kind uint8

// Value kinds. Each maps to one raw storage shape.
const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindRecord
	KindRecords
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	case KindRecords:
		return "records"
	default:
		return "unknown"
	}
}

// Value is a canonical cell value. The zero value is null.
//
// Storage shapes:
//   - string: Text, Long Text, Url, Badge, Number, Float, Date
//   - number: Progress, Counter
//   - bool: Boolean
//   - list of strings: Single select, Multi select
//   - record or list of records: Relationship
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []string
	rec  *Record
	recs []*Record
}

// Null returns the null value.
func Null() Value { return Value{} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps a number.
func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// ListValue wraps a list of option strings. An empty list is not null.
func ListValue(items ...string) Value {
	list := make([]string, len(items))
	copy(list, items)
	return Value{kind: KindList, list: list}
}

// RecordValue wraps an embedded related row. A nil record is null.
func RecordValue(r *Record) Value {
	if r == nil {
		return Null()
	}
	return Value{kind: KindRecord, rec: r}
}

// RecordsValue wraps a list of embedded related rows.
func RecordsValue(rs []*Record) Value {
	out := make([]*Record, len(rs))
	copy(out, rs)
	return Value{kind: KindRecords, recs: out}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// List returns a copy of the option list, or nil for other kinds.
func (v Value) List() []string {
	if v.kind != KindList {
		return nil
	}
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out
}

// Record returns the embedded record, or nil.
func (v Value) Record() *Record {
	if v.kind != KindRecord {
		return nil
	}
	return v.rec
}

// Records returns the embedded records, or nil.
func (v Value) Records() []*Record {
	if v.kind != KindRecords {
		return nil
	}
	out := make([]*Record, len(v.recs))
	copy(out, v.recs)
	return out
}

// IsEmpty reports whether v counts as empty: null, "", an empty list or an empty record.
func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == ""
	case KindList:
		return len(v.list) == 0
	case KindRecord:
		return v.rec.Len() == 0
	case KindRecords:
		return len(v.recs) == 0
	}
	return false
}

// Equal reports whether two values are the same variant with the same payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	}
	a, errA := json.Marshal(v)
	b, errB := json.Marshal(o)
	return errA == nil && errB == nil && string(a) == string(b)
}

// Text returns the plain string form used by search, grouping fallbacks and the CLI.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return FormatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		return strings.Join(v.list, ", ")
	case KindRecord, KindRecords:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

// Raw returns the storage form: nil, string, float64, bool, []string, *Record or []*Record.
func (v Value) Raw() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		return v.List()
	case KindRecord:
		return v.rec
	case KindRecords:
		return v.Records()
	}
	return nil
}

// String implements fmt.Stringer for logs.
func (v Value) String() string {
	if v.kind == KindNull {
		return "null"
	}
	return v.Text()
}

// MarshalJSON writes the raw storage form.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindList && v.list == nil {
		return []byte("[]"), nil
	}
	if v.kind == KindRecords && v.recs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.Raw())
}

// UnmarshalJSON reads any raw storage form.
func (v *Value) UnmarshalJSON(data []byte) error {
	raw, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	out, err := FromRaw(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// FromRaw converts a decoded raw cell (from JSON, a database row or YAML) into a Value.
// Arrays of objects become records; other arrays are flattened into option strings.
func FromRaw(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case string:
		return StringValue(x), nil
	case []byte:
		return StringValue(string(x)), nil
	case bool:
		return BoolValue(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Null(), fmt.Errorf("invalid number %q: %w", x.String(), err)
		}
		return NumberValue(f), nil
	case float64:
		return NumberValue(x), nil
	case float32:
		return NumberValue(float64(x)), nil
	case int:
		return NumberValue(float64(x)), nil
	case int32:
		return NumberValue(float64(x)), nil
	case int64:
		return NumberValue(float64(x)), nil
	case []string:
		return ListValue(x...), nil
	case *Record:
		return RecordValue(x), nil
	case map[string]any:
		return RecordValue(recordFromMap(x)), nil
	case []*Record:
		return RecordsValue(x), nil
	case []any:
		return fromSlice(x), nil
	}
	return Null(), fmt.Errorf("unsupported raw value of type %T", raw)
}

func fromSlice(items []any) Value {
	if len(items) == 0 {
		return ListValue()
	}

	recs := make([]*Record, 0, len(items))
	for _, item := range items {
		switch r := item.(type) {
		case *Record:
			recs = append(recs, r)
		case map[string]any:
			recs = append(recs, recordFromMap(r))
		}
	}
	if len(recs) == len(items) {
		return RecordsValue(recs)
	}

	return ListValue(flattenStrings(items)...)
}

func flattenStrings(items []any) []string {
	var out []string
	for _, item := range items {
		switch x := item.(type) {
		case nil:
			continue
		case []any:
			out = append(out, flattenStrings(x)...)
		case []string:
			out = append(out, x...)
		default:
			if IsPrimitive(x) {
				out = append(out, FormatPrimitive(x))
			}
		}
	}
	return out
}

// FormatNumber renders a number in fixed-point notation with no trailing zeros.
// Exponent notation is never produced.
func FormatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Row is one loaded table row keyed by column name.
type Row map[string]Value

package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_ZeroIsNull(t *testing.T) {
	var v Value
	assert.True(t, v.IsNull())
	assert.True(t, v.IsEmpty())
	assert.Equal(t, "null", v.String())
	assert.Nil(t, v.Raw())
}

func TestValue_IsEmpty(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  bool
	}{
		{"null", Null(), true},
		{"empty string", StringValue(""), true},
		{"string", StringValue("x"), false},
		{"zero", NumberValue(0), false},
		{"false", BoolValue(false), false},
		{"empty list", ListValue(), true},
		{"list", ListValue("a"), false},
		{"empty record", RecordValue(NewRecord()), true},
		{"record", RecordValue(RecordOf("id", 1)), false},
		{"no records", RecordsValue(nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.value.IsEmpty())
		})
	}
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, ListValue("a", "b").Equal(ListValue("a", "b")))
	assert.False(t, ListValue("a", "b").Equal(ListValue("b", "a")))
	assert.False(t, StringValue("1").Equal(NumberValue(1)))
	assert.True(t, Null().Equal(Value{}))
	assert.True(t, RecordValue(RecordOf("id", 1, "name", "x")).Equal(RecordValue(RecordOf("id", 1, "name", "x"))))
}

func TestValue_JSONShapes(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"null", Null(), `null`},
		{"string", StringValue("12345.6700"), `"12345.6700"`},
		{"number", NumberValue(65), `65`},
		{"bool", BoolValue(true), `true`},
		{"list", ListValue("a", "b"), `["a","b"]`},
		{"empty list", ListValue(), `[]`},
		{"record keeps order", RecordValue(RecordOf("name", "Acme", "id", 7)), `{"name":"Acme","id":7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestValue_UnmarshalJSON(t *testing.T) {
	t.Run("array of objects becomes records", func(t *testing.T) {
		var v Value
		require.NoError(t, json.Unmarshal([]byte(`[{"z":1,"a":2},{"id":3}]`), &v))
		require.Equal(t, KindRecords, v.Kind())
		recs := v.Records()
		require.Len(t, recs, 2)
		assert.Equal(t, []string{"z", "a"}, recs[0].Keys())
	})

	t.Run("nested arrays flatten to options", func(t *testing.T) {
		var v Value
		require.NoError(t, json.Unmarshal([]byte(`["a",["b","c"],null,1]`), &v))
		assert.Equal(t, []string{"a", "b", "c", "1"}, v.List())
	})

	t.Run("number", func(t *testing.T) {
		var v Value
		require.NoError(t, json.Unmarshal([]byte(`12.5`), &v))
		n, ok := v.Num()
		require.True(t, ok)
		assert.InDelta(t, 12.5, n, 1e-9)
	})
}

func TestFormatNumber_NoExponent(t *testing.T) {
	assert.Equal(t, "0.0000001", FormatNumber(1e-7))
	assert.Equal(t, "100000000000000000000", FormatNumber(1e20))
	assert.Equal(t, "12.5", FormatNumber(12.50))
	assert.Equal(t, "65", FormatNumber(65))
}

func TestRecord_RoundTrip(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"b":1,"a":{"x":true},"c":null}`), &r))
	assert.Equal(t, []string{"b", "a", "c"}, r.Keys())

	nested, ok := r.Get("a")
	require.True(t, ok)
	assert.IsType(t, &Record{}, nested)

	out, err := json.Marshal(&r)
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a":{"x":true},"c":null}`, string(out))
}

func TestFromRaw_Unsupported(t *testing.T) {
	_, err := FromRaw(struct{}{})
	assert.Error(t, err)
}

// Package aggregate computes column footer summaries over loaded rows.
//
// Each Kind is gated by field type: numeric statistics apply to Number,
// Float, Counter and Progress; lexical min/max to Text, Long Text, Url,
// Badge and Date; boolean counts to Boolean. An inapplicable combination
// yields null rather than an error.
package aggregate

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/field"
)

// Kind names a footer aggregation.
type Kind string

// Aggregations.
const (
	Empty         Kind = "empty"
	Filled        Kind = "filled"
	PercentEmpty  Kind = "percent_empty"
	PercentFilled Kind = "percent_filled"
	Unique        Kind = "unique"
	Min           Kind = "min"
	Max           Kind = "max"
	Sum           Kind = "sum"
	Avg           Kind = "avg"
	Median        Kind = "median"
	TrueCount     Kind = "true_count"
	FalseCount    Kind = "false_count"
	PercentTrue   Kind = "percent_true"
	PercentFalse  Kind = "percent_false"
)

var labels = map[Kind]string{
	Empty:         "Empty",
	Filled:        "Filled",
	PercentEmpty:  "% Empty",
	PercentFilled: "% Filled",
	Unique:        "Unique",
	Min:           "Min",
	Max:           "Max",
	Sum:           "Sum",
	Avg:           "Average",
	Median:        "Median",
	TrueCount:     "True Count",
	FalseCount:    "False Count",
	PercentTrue:   "% True",
	PercentFalse:  "% False",
}

// Label returns the menu label of k, or k itself when unknown.
func (k Kind) Label() string {
	if l, ok := labels[k]; ok {
		return l
	}
	return string(k)
}

// Known reports whether k is a supported aggregation.
func (k Kind) Known() bool {
	_, ok := labels[k]
	return ok
}

// Category groups k for menus: Counts, Percentages, Statistics or Boolean.
func (k Kind) Category() string {
	switch k {
	case PercentEmpty, PercentFilled:
		return "Percentages"
	case TrueCount, FalseCount, PercentTrue, PercentFalse:
		return "Boolean"
	case Min, Max, Sum, Avg, Median:
		return "Statistics"
	}
	return "Counts"
}

var base = []Kind{Empty, Filled, PercentEmpty, PercentFilled}

// Available lists the aggregations offered for a field type, in menu order.
func Available(t core.FieldType) []Kind {
	switch {
	case t.IsNumeric():
		return append(slices.Clone(base), Min, Max, Sum, Avg, Median, Unique)
	case isLexical(t) && t != core.FieldDate:
		return append(slices.Clone(base), Unique)
	case t == core.FieldDate:
		return append(slices.Clone(base), Min, Max, Unique)
	case t == core.FieldBoolean:
		return append(slices.Clone(base), TrueCount, FalseCount, PercentTrue, PercentFalse)
	case t.IsSelect(), t == core.FieldRelationship:
		return append(slices.Clone(base), Unique)
	}
	return slices.Clone(base)
}

// ByCategory groups Available(t) by Category, dropping empty categories.
func ByCategory(t core.FieldType) map[string][]Kind {
	out := make(map[string][]Kind)
	for _, k := range Available(t) {
		out[k.Category()] = append(out[k.Category()], k)
	}
	return out
}

func isLexical(t core.FieldType) bool {
	switch t {
	case core.FieldText, core.FieldLongText, core.FieldURL, core.FieldBadge, core.FieldDate:
		return true
	}
	return false
}

// =============================================================================
// Compute
// =============================================================================

// Compute runs one aggregation over the values of a column of type t.
// Counts and statistics are numbers; lexical min/max are strings.
func Compute(values []core.Value, k Kind, t core.FieldType) core.Value {
	var filled []core.Value
	for _, v := range values {
		if !v.IsEmpty() {
			filled = append(filled, v)
		}
	}
	total := len(values)
	empty := total - len(filled)

	switch k {
	case Empty:
		return count(empty)
	case Filled:
		return count(len(filled))
	case PercentEmpty:
		return percent(empty, total)
	case PercentFilled:
		return percent(len(filled), total)
	case Unique:
		seen := make(map[string]struct{}, len(filled))
		for _, v := range filled {
			seen[uniqueKey(v)] = struct{}{}
		}
		return count(len(seen))
	case Min, Max:
		return extreme(filled, k == Max, t)
	case Sum, Avg, Median:
		if !t.IsNumeric() {
			return core.Null()
		}
		return stat(filled, k)
	case TrueCount, FalseCount, PercentTrue, PercentFalse:
		if t != core.FieldBoolean {
			return core.Null()
		}
		return booleans(filled, k)
	}
	return core.Null()
}

func count(n int) core.Value { return core.NumberValue(float64(n)) }

func percent(n, total int) core.Value {
	if total == 0 {
		return core.NumberValue(0)
	}
	return core.NumberValue(float64(n) / float64(total) * 100)
}

func uniqueKey(v core.Value) string {
	switch v.Kind() {
	case core.KindString, core.KindNumber, core.KindBool:
		return v.Text()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v.Text()
	}
	return string(b)
}

// numbers converts filled values to floats, skipping anything non-numeric.
func numbers(filled []core.Value) []float64 {
	out := make([]float64, 0, len(filled))
	for _, v := range filled {
		if f, ok := v.Num(); ok {
			out = append(out, f)
			continue
		}
		if s, ok := v.Str(); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				out = append(out, f)
			}
		}
	}
	return out
}

func extreme(filled []core.Value, isMax bool, t core.FieldType) core.Value {
	switch {
	case isLexical(t):
		if len(filled) == 0 {
			return core.Null()
		}
		best := filled[0].Text()
		for _, v := range filled[1:] {
			s := v.Text()
			if (isMax && s > best) || (!isMax && s < best) {
				best = s
			}
		}
		return core.StringValue(best)
	case t.IsNumeric():
		nums := numbers(filled)
		if len(nums) == 0 {
			return core.Null()
		}
		if isMax {
			return core.NumberValue(slices.Max(nums))
		}
		return core.NumberValue(slices.Min(nums))
	}
	return core.Null()
}

func stat(filled []core.Value, k Kind) core.Value {
	nums := numbers(filled)
	switch k {
	case Sum:
		var sum float64
		for _, n := range nums {
			sum += n
		}
		return core.NumberValue(sum)
	case Avg:
		if len(filled) == 0 {
			return core.NumberValue(0)
		}
		var sum float64
		for _, n := range nums {
			sum += n
		}
		// Non-numeric filled cells count toward the divisor.
		return core.NumberValue(sum / float64(len(filled)))
	case Median:
		if len(nums) == 0 {
			return core.Null()
		}
		slices.Sort(nums)
		mid := len(nums) / 2
		if len(nums)%2 == 0 {
			return core.NumberValue((nums[mid-1] + nums[mid]) / 2)
		}
		return core.NumberValue(nums[mid])
	}
	return core.Null()
}

func booleans(filled []core.Value, k Kind) core.Value {
	var trues, falses int
	for _, v := range filled {
		if b, ok := v.Bool(); ok {
			if b {
				trues++
			} else {
				falses++
			}
			continue
		}
		switch s, _ := v.Str(); s {
		case "true":
			trues++
		case "false":
			falses++
		}
	}
	switch k {
	case TrueCount:
		return count(trues)
	case FalseCount:
		return count(falses)
	case PercentTrue:
		return percent(trues, len(filled))
	case PercentFalse:
		return percent(falses, len(filled))
	}
	return core.Null()
}

// =============================================================================
// Format
// =============================================================================

var printer = message.NewPrinter(language.English)

// Format renders a computed aggregation for a footer cell. Null renders as "-".
func Format(v core.Value, k Kind, t core.FieldType) string {
	if v.IsNull() {
		return "-"
	}
	f, isNum := v.Num()

	switch k {
	case PercentEmpty, PercentFilled, PercentTrue, PercentFalse:
		if isNum {
			return fmt.Sprintf("%.0f%%", f)
		}
	case Avg, Median:
		if isNum {
			return fmt.Sprintf("%.2f", f)
		}
	case Sum:
		if isNum {
			return printer.Sprint(number.Decimal(f, number.MaxFractionDigits(3)))
		}
	case Min, Max:
		if s, ok := v.Str(); ok && t == core.FieldDate {
			if d, ok := field.ParseDate(s); ok {
				if tm, err := time.Parse(field.DateLayout, d); err == nil {
					return tm.Format("1/2/2006")
				}
			}
			return s
		}
	}
	return v.Text()
}

// Summary is one computed footer cell.
type Summary struct {
	Column string     `json:"column"`
	Kind   Kind       `json:"kind"`
	Label  string     `json:"label"`
	Value  core.Value `json:"value"`
	Text   string     `json:"text"`
}

// Summarize computes the configured aggregation of every column in config
// over rows, sorted by column. Unknown kinds are skipped.
func Summarize(tpl *core.Template, table string, rows []core.Row, config map[string]Kind) []Summary {
	columns := make([]string, 0, len(config))
	for c := range config {
		columns = append(columns, c)
	}
	slices.Sort(columns)

	out := make([]Summary, 0, len(columns))
	for _, c := range columns {
		k := config[c]
		if !k.Known() {
			continue
		}
		ft, _ := tpl.FieldType(table, c)
		values := make([]core.Value, len(rows))
		for i, row := range rows {
			values[i] = row[c]
		}
		v := Compute(values, k, ft)
		out = append(out, Summary{Column: c, Kind: k, Label: k.Label(), Value: v, Text: Format(v, k, ft)})
	}
	return out
}

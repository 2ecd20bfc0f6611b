package field

import (
	"strings"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// Palette is the fixed option colour sequence.
var Palette = []string{
	"pink", "yellow", "purple", "orange", "teal", "blue", "lime",
	"ruby", "indigo", "cyan", "green", "red", "gray",
}

// FallbackColor is used for values that are not a known option.
const FallbackColor = "gray"

func init() {
	Register(selectPipeline{multi: false})
	Register(selectPipeline{multi: true})
}

// selectPipeline stores options as an array of strings.
// Single select keeps at most one element.
type selectPipeline struct {
	multi bool
}

func (p selectPipeline) Type() core.FieldType {
	if p.multi {
		return core.FieldMultiSelect
	}
	return core.FieldSingleSelect
}

func (selectPipeline) Sanitize(input string) string { return strings.TrimSpace(input) }

// Parse reads typed or pasted text. Multi select splits on commas.
func (p selectPipeline) Parse(input string, col core.ColumnDescriptor) (core.Value, error) {
	s := p.Sanitize(input)
	if s == "" {
		return core.ListValue(), nil
	}
	if !p.multi {
		return core.ListValue(s), nil
	}
	var items []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return core.ListValue(dedupe(items)...), nil
}

func (p selectPipeline) Normalize(v core.Value, col core.ColumnDescriptor) (core.Value, error) {
	switch v.Kind() {
	case core.KindNull:
		return core.ListValue(), nil
	case core.KindString:
		s, _ := v.Str()
		return p.Parse(s, col)
	case core.KindList:
		items := dedupe(v.List())
		if !p.multi && len(items) > 1 {
			return core.Null(), invalid(col, p.Type(), v.Text(), "single select holds one option")
		}
		return core.ListValue(items...), nil
	}
	return core.Null(), invalid(col, p.Type(), v.Text(), "not an option list")
}

func (selectPipeline) Display(v core.Value) string {
	return strings.Join(v.List(), ", ")
}

func (p selectPipeline) Valid(v core.Value, _ core.ColumnDescriptor) bool {
	switch v.Kind() {
	case core.KindNull:
		return true
	case core.KindList:
		return p.multi || len(v.List()) <= 1
	}
	return false
}

// Option is a select option with its assigned colour.
type Option struct {
	Value string `json:"value"`
	Color string `json:"color"`
}

// Options collects the distinct option values present in a column, in
// first-seen order, and assigns palette colours by that order.
func Options(values []core.Value) []Option {
	seen := make(map[string]bool)
	var out []Option
	for _, v := range values {
		var items []string
		switch v.Kind() {
		case core.KindList:
			items = v.List()
		case core.KindString:
			s, _ := v.Str()
			items = []string{s}
		}
		for _, item := range items {
			if item == "" || seen[item] {
				continue
			}
			seen[item] = true
			out = append(out, Option{Value: item, Color: ColorAt(len(out))})
		}
	}
	return out
}

// ColorAt returns the palette colour for a first-seen index.
func ColorAt(index int) string {
	if index < 0 {
		return FallbackColor
	}
	return Palette[index%len(Palette)]
}

// ColorOf returns the colour of value among options, or FallbackColor.
func ColorOf(options []Option, value string) string {
	for _, o := range options {
		if o.Value == value {
			return o.Color
		}
	}
	return FallbackColor
}

// FilterOptions returns options whose value contains query, ignoring case.
func FilterOptions(options []Option, query string) []Option {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return options
	}
	var out []Option
	for _, o := range options {
		if strings.Contains(strings.ToLower(o.Value), q) {
			out = append(out, o)
		}
	}
	return out
}

// SelectOption applies a picked option to the current selection.
// Multi select appends it once; single select replaces the selection.
func SelectOption(current core.Value, option string, multi bool) core.Value {
	option = strings.TrimSpace(option)
	if option == "" {
		return current
	}
	if !multi {
		return core.ListValue(option)
	}
	items := current.List()
	for _, item := range items {
		if item == option {
			return core.ListValue(items...)
		}
	}
	return core.ListValue(append(items, option)...)
}

// RemoveOption drops an option from the current selection.
func RemoveOption(current core.Value, option string) core.Value {
	items := current.List()
	out := items[:0]
	for _, item := range items {
		if item != option {
			out = append(out, item)
		}
	}
	return core.ListValue(out...)
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

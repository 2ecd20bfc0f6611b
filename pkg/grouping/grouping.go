// Package grouping derives string keys for grouping rows by columns whose
// values are arrays or related rows. Keys are only used for comparison;
// the real cell values are never changed.
package grouping

import (
	"slices"
	"sort"
	"strings"

	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/field"
)

// Empty is the key of a row with no value in the grouping column.
const Empty = "(empty)"

// KeyPrefix prefixes the derived column holding a grouping key.
const KeyPrefix = "__group__"

// documentDisplayOrder is the preferred label field of the documents table.
var documentDisplayOrder = []string{
	"document_number", "document_type", "date", "item_count",
	"sellers", "customers", "created_at", "updated_at",
}

// KeyColumn returns the derived column name for a grouped column.
func KeyColumn(column string) string {
	return KeyPrefix + column
}

// SelectKey sorts the options and joins them with ", ".
func SelectKey(v core.Value) string {
	items := v.List()
	if len(items) == 0 {
		if s, ok := v.Str(); ok && s != "" {
			return s
		}
		return Empty
	}
	sort.Strings(items)
	return strings.Join(items, ", ")
}

// RelationKey resolves a related row (or rows) to a label. Has-many values
// are labelled, sorted and joined.
func RelationKey(v core.Value, displayField string) string {
	if s := field.DisplayRelation(v, displayField); s != "" {
		return s
	}
	return Empty
}

// ScalarKey is the string form of any other value. Only null maps to Empty.
func ScalarKey(v core.Value) string {
	if v.IsNull() {
		return Empty
	}
	return v.Text()
}

// Key derives the grouping key of a value of the given type.
func Key(t core.FieldType, v core.Value, displayField string) string {
	switch {
	case t.IsSelect():
		return SelectKey(v)
	case t == core.FieldRelationship:
		return RelationKey(v, displayField)
	}
	switch v.Kind() {
	case core.KindList:
		return SelectKey(v)
	case core.KindRecord, core.KindRecords:
		return RelationKey(v, displayField)
	}
	return ScalarKey(v)
}

// DisplayField returns the field that labels rows of the table related through column.
func DisplayField(tpl *core.Template, table, column string) string {
	_, _, remote, ok := tpl.Relation(table, column)
	if !ok {
		return core.IDColumn
	}
	related, ok := tpl.Table(remote.Table)
	if !ok {
		return core.IDColumn
	}
	if remote.Table == "documents" {
		for _, f := range documentDisplayOrder {
			if _, ok := related.Fields[f]; ok {
				return f
			}
		}
	}
	if related.DisplayField != "" {
		return related.DisplayField
	}
	return core.IDColumn
}

// Annotate returns copies of rows with a KeyColumn entry for every grouped
// column. Input rows are not modified.
func Annotate(tpl *core.Template, table string, rows []core.Row, columns []string) []core.Row {
	type plan struct {
		column, displayField string
		ft                   core.FieldType
	}
	plans := make([]plan, 0, len(columns))
	for _, c := range columns {
		if slices.ContainsFunc(plans, func(p plan) bool { return p.column == c }) {
			continue
		}
		ft, _ := tpl.FieldType(table, c)
		p := plan{column: c, ft: ft}
		if ft == core.FieldRelationship {
			p.displayField = DisplayField(tpl, table, c)
		}
		plans = append(plans, p)
	}

	out := make([]core.Row, len(rows))
	for i, row := range rows {
		next := make(core.Row, len(row)+len(plans))
		for k, v := range row {
			next[k] = v
		}
		for _, p := range plans {
			next[KeyColumn(p.column)] = core.StringValue(Key(p.ft, row[p.column], p.displayField))
		}
		out[i] = next
	}
	return out
}

// Group is a set of row indexes sharing a key. When rows are grouped by more
// than one column, Groups splits the group by the next column.
type Group struct {
	Key    string  `json:"key"`
	Rows   []int   `json:"rows"`
	Groups []Group `json:"groups,omitempty"`
}

// GroupRows buckets rows by the keys of columns, outermost column first.
// Groups at every level keep first-seen key order and row indexes refer to
// the input slice.
func GroupRows(tpl *core.Template, table string, columns []string, rows []core.Row) []Group {
	if len(columns) == 0 {
		return nil
	}
	all := make([]int, len(rows))
	for i := range rows {
		all[i] = i
	}
	return groupLevel(tpl, table, columns, rows, all)
}

func groupLevel(tpl *core.Template, table string, columns []string, rows []core.Row, subset []int) []Group {
	column := columns[0]
	ft, _ := tpl.FieldType(table, column)
	displayField := ""
	if ft == core.FieldRelationship {
		displayField = DisplayField(tpl, table, column)
	}

	index := make(map[string]int)
	var groups []Group
	for _, i := range subset {
		key := Key(ft, rows[i][column], displayField)
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, Group{Key: key})
		}
		groups[gi].Rows = append(groups[gi].Rows, i)
	}

	if len(columns) > 1 {
		for gi := range groups {
			groups[gi].Groups = groupLevel(tpl, table, columns[1:], rows, groups[gi].Rows)
		}
	}
	return groups
}

// Package view keeps a view's column layout consistent with a changing schema.
//
// Reducers are pure: each takes the previous ViewConfig and returns a new one
// without mutating its input. After every reducer the column order holds each
// known column exactly once.
package view

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// Reconciler applies layout operations. IsRelation decides which columns sort last.
type Reconciler struct {
	IsRelation func(column string) bool
}

// NewReconciler builds a reconciler that treats the template's relation columns as relations.
func NewReconciler(tpl *core.Template) Reconciler {
	return Reconciler{IsRelation: tpl.IsRelationColumn}
}

func (r Reconciler) isRelation(column string) bool {
	return r.IsRelation != nil && r.IsRelation(column)
}

// RelationsLast stable-partitions columns so relation columns follow all others.
// Relative order inside each group is kept.
func (r Reconciler) RelationsLast(columns []string) []string {
	out := make([]string, 0, len(columns))
	var rels []string
	for _, c := range columns {
		if r.isRelation(c) {
			rels = append(rels, c)
			continue
		}
		out = append(out, c)
	}
	return append(out, rels...)
}

// Add appends a column, moves relation columns last and marks it visible.
func (r Reconciler) Add(prev core.ViewConfig, name string) core.ViewConfig {
	cfg := prev.Clone()
	if !slices.Contains(cfg.ColumnOrder, name) {
		cfg.ColumnOrder = r.RelationsLast(append(cfg.ColumnOrder, name))
	}
	return setVisible(cfg, name, true)
}

// Rename substitutes a column name everywhere it appears. Order is unchanged.
// Renaming onto an existing name drops the old entry.
func (r Reconciler) Rename(prev core.ViewConfig, oldName, newName string) core.ViewConfig {
	cfg := prev.Clone()
	if oldName == newName || newName == "" {
		return cfg
	}

	if slices.Contains(cfg.ColumnOrder, newName) {
		cfg.ColumnOrder = remove(cfg.ColumnOrder, oldName)
	} else {
		cfg.ColumnOrder = replace(cfg.ColumnOrder, oldName, newName)
	}

	var vis []core.ColumnVisibility
	seen := make(map[string]bool)
	for _, vc := range cfg.VisibleColumns {
		if vc.Name == oldName {
			vc.Name = newName
		}
		if seen[vc.Name] {
			continue
		}
		seen[vc.Name] = true
		vis = append(vis, vc)
	}
	cfg.VisibleColumns = vis

	cfg.Pinned.Start = dedupe(replace(cfg.Pinned.Start, oldName, newName))
	cfg.Pinned.End = dedupe(replace(cfg.Pinned.End, oldName, newName))
	if slices.Contains(cfg.GroupBy, oldName) {
		cfg.GroupBy = dedupe(replace(cfg.GroupBy, oldName, newName))
	}
	return cfg
}

// Delete removes a column from the order, visibility list, pins and grouping.
func (r Reconciler) Delete(prev core.ViewConfig, name string) core.ViewConfig {
	cfg := prev.Clone()
	cfg.ColumnOrder = remove(cfg.ColumnOrder, name)
	cfg.VisibleColumns = slices.DeleteFunc(cfg.VisibleColumns, func(vc core.ColumnVisibility) bool {
		return vc.Name == name
	})
	cfg.Pinned.Start = remove(cfg.Pinned.Start, name)
	cfg.Pinned.End = remove(cfg.Pinned.End, name)
	cfg.GroupBy = remove(cfg.GroupBy, name)
	return cfg
}

// Reorder moves name to targetIndex within the visible subsequence.
// Hidden columns keep their absolute positions. rendered lists the columns
// the front end currently shows; nil means every visible column in order.
func (r Reconciler) Reorder(prev core.ViewConfig, name string, targetIndex int, rendered []string) core.ViewConfig {
	cfg := prev.Clone()

	inView := make(map[string]bool)
	if rendered == nil {
		for _, c := range cfg.ColumnOrder {
			if cfg.IsVisible(c) {
				inView[c] = true
			}
		}
	} else {
		for _, c := range rendered {
			inView[c] = true
			if !slices.Contains(cfg.ColumnOrder, c) {
				cfg.ColumnOrder = append(cfg.ColumnOrder, c)
			}
		}
	}
	inView[name] = true
	if !slices.Contains(cfg.ColumnOrder, name) {
		cfg.ColumnOrder = append(cfg.ColumnOrder, name)
	}

	var visible []string
	for _, c := range cfg.ColumnOrder {
		if inView[c] {
			visible = append(visible, c)
		}
	}
	visible = remove(visible, name)
	targetIndex = max(0, min(targetIndex, len(visible)))
	visible = slices.Insert(visible, targetIndex, name)

	p := 0
	for i, c := range cfg.ColumnOrder {
		if inView[c] {
			cfg.ColumnOrder[i] = visible[p]
			p++
		}
	}
	return cfg
}

// Reconcile aligns the view with the schema's columns: unknown names are
// dropped, missing ones added, and an empty order is seeded with preferred
// columns first and relations last.
func (r Reconciler) Reconcile(prev core.ViewConfig, columns []string, preferred []string) core.ViewConfig {
	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	cfg := prev.Clone()
	for _, c := range prev.ColumnOrder {
		if !known[c] {
			cfg = r.Delete(cfg, c)
		}
	}
	cfg.ColumnOrder = dedupe(cfg.ColumnOrder)

	if len(cfg.ColumnOrder) == 0 {
		cfg.ColumnOrder = r.RelationsLast(preferredFirst(columns, preferred))
		return cfg
	}
	for _, c := range columns {
		if !slices.Contains(cfg.ColumnOrder, c) {
			cfg.ColumnOrder = r.RelationsLast(append(cfg.ColumnOrder, c))
		}
	}
	return cfg
}

// SetVisible toggles a column's visibility.
func SetVisible(prev core.ViewConfig, name string, enabled bool) core.ViewConfig {
	return setVisible(prev.Clone(), name, enabled)
}

func setVisible(cfg core.ViewConfig, name string, enabled bool) core.ViewConfig {
	for i := range cfg.VisibleColumns {
		if cfg.VisibleColumns[i].Name == name {
			cfg.VisibleColumns[i].Enabled = enabled
			return cfg
		}
	}
	cfg.VisibleColumns = append(cfg.VisibleColumns, core.ColumnVisibility{Name: name, Enabled: enabled})
	return cfg
}

// SetPin pins a column to an edge, or unpins it with core.PinNone.
func SetPin(prev core.ViewConfig, name string, pin core.Pin) (core.ViewConfig, error) {
	cfg := prev.Clone()
	cfg.Pinned.Start = remove(cfg.Pinned.Start, name)
	cfg.Pinned.End = remove(cfg.Pinned.End, name)
	switch pin {
	case core.PinStart:
		cfg.Pinned.Start = append(cfg.Pinned.Start, name)
	case core.PinEnd:
		cfg.Pinned.End = append(cfg.Pinned.End, name)
	case core.PinNone:
	default:
		return prev, fmt.Errorf("unknown pin position %q", pin)
	}
	return cfg, nil
}

// SetGroupBy replaces the grouping columns, outermost first. No names clears
// grouping; repeated names keep their first position.
func SetGroupBy(prev core.ViewConfig, names ...string) core.ViewConfig {
	cfg := prev.Clone()
	cfg.GroupBy = nil
	for _, n := range names {
		if n != "" && !slices.Contains(cfg.GroupBy, n) {
			cfg.GroupBy = append(cfg.GroupBy, n)
		}
	}
	return cfg
}

func preferredFirst(columns, preferred []string) []string {
	out := make([]string, 0, len(columns))
	for _, p := range preferred {
		if slices.Contains(columns, p) && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	for _, c := range columns {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func remove(list []string, name string) []string {
	return slices.DeleteFunc(slices.Clone(list), func(s string) bool { return s == name })
}

func replace(list []string, oldName, newName string) []string {
	out := slices.Clone(list)
	for i := range out {
		if out[i] == oldName {
			out[i] = newName
		}
	}
	return out
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

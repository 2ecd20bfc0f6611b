package schema

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// Validate checks that relations point at declared tables, that no
// relation column shadows a stored field and that numeric bounds are sane.
func Validate(tpl *core.Template) error {
	if tpl == nil {
		return errors.New("template is nil")
	}

	var errs []error
	for i, rel := range tpl.Relations {
		for _, end := range []core.RelationEnd{rel.Source, rel.Target} {
			ts, ok := tpl.Tables[end.Table]
			if !ok || ts == nil {
				errs = append(errs, fmt.Errorf("relation %d: unknown table %q", i, end.Table))
				continue
			}
			if end.As == "" {
				errs = append(errs, fmt.Errorf("relation %d: %s end has no column name", i, end.Table))
				continue
			}
			if _, clash := ts.Fields[end.As]; clash {
				errs = append(errs, fmt.Errorf("relation %d: column %s.%s is also a field", i, end.Table, end.As))
			}
		}
		if rel.Type == core.RelationManyToMany && rel.Through == "" {
			errs = append(errs, fmt.Errorf("relation %d: M:N relation needs a through table", i))
		}
	}
	for name, ts := range tpl.Tables {
		if ts == nil || ts.DisplayField == "" || ts.DisplayField == core.IDColumn {
			continue
		}
		if _, ok := ts.Fields[ts.DisplayField]; !ok {
			errs = append(errs, fmt.Errorf("table %s: display field %q is not a field", name, ts.DisplayField))
		}
	}
	for name, ts := range tpl.Tables {
		if ts == nil {
			continue
		}
		for _, col := range slices.Sorted(maps.Keys(ts.Fields)) {
			if err := validateBounds(ts.Fields[col]); err != nil {
				errs = append(errs, fmt.Errorf("field %s.%s: %w", name, col, err))
			}
		}
	}
	return errors.Join(errs...)
}

func validateBounds(fs core.FieldSchema) error {
	if !fs.HasRange() {
		return nil
	}
	if fs.Type != core.FieldCounter && fs.Type != core.FieldProgress {
		return fmt.Errorf("min/max/step apply only to Counter and Progress, not %s", fs.Type)
	}
	if fs.Min != nil && fs.Max != nil && *fs.Min > *fs.Max {
		return fmt.Errorf("min %v is greater than max %v", *fs.Min, *fs.Max)
	}
	if fs.Step != nil && *fs.Step <= 0 {
		return fmt.Errorf("step must be positive, got %v", *fs.Step)
	}
	return nil
}

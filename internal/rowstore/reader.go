package rowstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// KeyColumn returns the column rows are addressed by.
func (a *Applier) KeyColumn() string { return a.keyColumn }

// Rows loads up to limit rows of table ordered by the key column (limit <= 0
// loads every row). Select columns stored as JSON arrays decode to option lists.
func (a *Applier) Rows(ctx context.Context, tpl *core.Template, table string, limit int) ([]core.Row, error) {
	if !identPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid identifier %q", table)
	}
	q := a.dialect.Quote
	sb := a.qb.Select("*").From(q(table)).OrderBy(q(a.keyColumn))
	if limit > 0 {
		sb = sb.Limit(uint64(limit))
	}
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []core.Row
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(core.Row, len(cols))
		for i, name := range cols {
			ft, _ := tpl.FieldType(table, name)
			v, err := cellValue(raw[i], ft)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", table, name, err)
			}
			row[name] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// cellValue converts a scanned driver value.
func cellValue(raw any, ft core.FieldType) (core.Value, error) {
	switch x := raw.(type) {
	case time.Time:
		if ft == core.FieldDate {
			return core.StringValue(x.Format(time.DateOnly)), nil
		}
		return core.StringValue(x.Format(time.RFC3339)), nil
	case []byte:
		raw = string(x)
	}

	if s, ok := raw.(string); ok && ft.IsSelect() {
		if strings.HasPrefix(strings.TrimSpace(s), "[") {
			var v core.Value
			if err := v.UnmarshalJSON([]byte(s)); err == nil {
				return v, nil
			}
		}
		if s == "" {
			return core.ListValue(), nil
		}
		return core.ListValue(s), nil
	}

	switch ft {
	case core.FieldNumber, core.FieldFloat:
		// Number and Float are stored as text.
		switch n := raw.(type) {
		case int64:
			return core.StringValue(core.FormatNumber(float64(n))), nil
		case float64:
			return core.StringValue(core.FormatNumber(n)), nil
		}
	case core.FieldBoolean:
		if n, ok := raw.(int64); ok {
			return core.BoolValue(n != 0), nil
		}
	}
	return core.FromRaw(raw)
}

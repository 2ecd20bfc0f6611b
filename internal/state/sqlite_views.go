package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
)

// SaveView stores a view config, replacing any config saved under the same id.
func (s *SQLiteStore) SaveView(ctx context.Context, v SavedView) error {
	if err := s.ready(); err != nil {
		return err
	}
	if v.ID == "" {
		return errors.New("view id is required")
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = s.now()
	}
	cfg, err := json.Marshal(v.Config)
	if err != nil {
		return fmt.Errorf("encode view config: %w", err)
	}

	query, args, err := s.qb.Insert("views").
		Columns("id", "table_name", "config", "updated_at").
		Values(v.ID, v.Table, string(cfg), v.UpdatedAt.UTC()).
		Suffix("ON CONFLICT(id) DO UPDATE SET table_name = excluded.table_name, config = excluded.config, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save view %s: %w", v.ID, err)
	}
	return nil
}

// LoadView returns the view saved under id.
func (s *SQLiteStore) LoadView(ctx context.Context, id string) (SavedView, error) {
	if err := s.ready(); err != nil {
		return SavedView{}, err
	}
	query, args, err := s.qb.Select("id", "table_name", "config", "updated_at").
		From("views").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return SavedView{}, err
	}

	v, err := scanView(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return SavedView{}, fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	return v, err
}

// Views lists saved views ordered by id.
func (s *SQLiteStore) Views(ctx context.Context, table string) ([]SavedView, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	q := s.qb.Select("id", "table_name", "config", "updated_at").From("views").OrderBy("id")
	if table != "" {
		q = q.Where(squirrel.Eq{"table_name": table})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SavedView
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteView removes a saved view.
func (s *SQLiteStore) DeleteView(ctx context.Context, id string) error {
	if err := s.ready(); err != nil {
		return err
	}
	query, args, err := s.qb.Delete("views").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanView(row scanner) (SavedView, error) {
	var (
		v         SavedView
		cfg       string
		updatedAt time.Time
	)
	if err := row.Scan(&v.ID, &v.Table, &cfg, &updatedAt); err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(cfg), &v.Config); err != nil {
		return v, fmt.Errorf("decode view %s: %w", v.ID, err)
	}
	v.UpdatedAt = updatedAt.UTC()
	return v, nil
}

var _ Store = (*SQLiteStore)(nil)

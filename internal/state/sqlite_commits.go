package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

var commitColumns = []string{
	"id", "table_name", "column_name", "row_index", "row_identity",
	"previous", "value", "scope", "committed_at",
}

func commitColumnsWithSeq() []string {
	return append(slices.Clone(commitColumns), "seq")
}

// AppendCommit records one commit event. An event without an id gets one.
func (s *SQLiteStore) AppendCommit(ctx context.Context, ev core.CommitEvent) error {
	if err := s.ready(); err != nil {
		return err
	}
	if ev.ID == "" {
		ev.ID = generateID()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = s.now()
	}
	if ev.Scope == "" {
		ev.Scope = core.ScopeSingle
	}

	prev, err := json.Marshal(ev.Previous)
	if err != nil {
		return fmt.Errorf("encode previous value: %w", err)
	}
	next, err := json.Marshal(ev.New)
	if err != nil {
		return fmt.Errorf("encode new value: %w", err)
	}

	var rowID any
	if ev.RowID != "" {
		rowID = ev.RowID
	}

	query, args, err := s.qb.Insert("commits").
		Columns(commitColumnsWithSeq()...).
		Values(
			ev.ID, ev.Table, ev.Column, ev.RowIndex, rowID,
			string(prev), string(next), string(ev.Scope), ev.Timestamp.UTC(),
			squirrel.Expr("(SELECT COALESCE(MAX(seq), 0) + 1 FROM commits)"),
		).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to append commit: %w", err)
	}

	s.logger.Debug("commit recorded",
		slog.String("id", ev.ID),
		slog.String("cell", ev.Target().Key()),
		slog.String("scope", string(ev.Scope)))
	return nil
}

// Commits lists events matching f, oldest first.
func (s *SQLiteStore) Commits(ctx context.Context, f CommitFilter) ([]core.CommitEvent, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	where := squirrel.And{}
	if f.Table != "" {
		where = append(where, squirrel.Eq{"table_name": f.Table})
	}
	if f.Column != "" {
		where = append(where, squirrel.Eq{"column_name": f.Column})
	}
	if f.Scope != "" {
		where = append(where, squirrel.Eq{"scope": string(f.Scope)})
	}
	if !f.Since.IsZero() {
		where = append(where, squirrel.GtOrEq{"committed_at": f.Since.UTC()})
	}

	inner := s.qb.Select(commitColumnsWithSeq()...).From("commits").Where(where).OrderBy("seq DESC")
	if f.Limit > 0 {
		inner = inner.Limit(uint64(f.Limit))
	}
	// Newest Limit rows, returned oldest first.
	q := s.qb.Select(commitColumns...).FromSelect(inner, "recent").OrderBy("seq ASC")
	return s.queryCommits(ctx, q)
}

// CellHistory lists the events of one cell, oldest first.
func (s *SQLiteStore) CellHistory(ctx context.Context, target core.EditTarget) ([]core.CommitEvent, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	q := s.qb.Select(commitColumns...).From("commits").
		Where(squirrel.Eq{
			"table_name":  target.Table,
			"column_name": target.Column,
			"row_index":   target.RowIndex,
		}).
		OrderBy("seq ASC")
	return s.queryCommits(ctx, q)
}

func (s *SQLiteStore) queryCommits(ctx context.Context, q squirrel.SelectBuilder) ([]core.CommitEvent, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []core.CommitEvent
	for rows.Next() {
		ev, err := scanCommit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func scanCommit(rows *sql.Rows) (core.CommitEvent, error) {
	var (
		ev          core.CommitEvent
		rowID       sql.NullString
		prev, next  string
		scope       string
		committedAt time.Time
	)
	if err := rows.Scan(&ev.ID, &ev.Table, &ev.Column, &ev.RowIndex, &rowID,
		&prev, &next, &scope, &committedAt); err != nil {
		return ev, fmt.Errorf("failed to scan commit: %w", err)
	}
	if err := json.Unmarshal([]byte(prev), &ev.Previous); err != nil {
		return ev, fmt.Errorf("decode previous value of %s: %w", ev.ID, err)
	}
	if err := json.Unmarshal([]byte(next), &ev.New); err != nil {
		return ev, fmt.Errorf("decode new value of %s: %w", ev.ID, err)
	}
	ev.RowID = rowID.String
	ev.Scope = core.Scope(scope)
	ev.Timestamp = committedAt.UTC()
	return ev, nil
}

package rowstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/Masterminds/squirrel"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

var (
	// ErrNoRowIdentity is returned for events that do not carry a row identity.
	ErrNoRowIdentity = errors.New("commit has no row identity")
	// ErrRowNotFound is returned when no row matched the event's identity.
	ErrRowNotFound = errors.New("row not found")
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Applier writes commit events as single-column UPDATE statements.
type Applier struct {
	db        *sql.DB
	dialect   Dialect
	qb        squirrel.StatementBuilderType
	keyColumn string
	logger    *slog.Logger
}

// NewApplier wraps an open connection.
func NewApplier(db *sql.DB, d Dialect, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Applier{
		db:        db,
		dialect:   d,
		qb:        squirrel.StatementBuilder.PlaceholderFormat(d.Placeholder),
		keyColumn: core.IDColumn,
		logger:    logger,
	}
}

// Dialect returns the provider dialect.
func (a *Applier) Dialect() Dialect { return a.dialect }

// Close closes the connection.
func (a *Applier) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Apply writes one event.
func (a *Applier) Apply(ctx context.Context, ev core.CommitEvent) error {
	query, args, err := a.statement(ev)
	if err != nil {
		return err
	}
	return a.exec(ctx, a.db, ev, query, args)
}

// ApplyAll writes events in one transaction. Any failure rolls back all of them.
func (a *Applier) ApplyAll(ctx context.Context, events []core.CommitEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, ev := range events {
		query, args, err := a.statement(ev)
		if err == nil {
			err = a.exec(ctx, tx, ev, query, args)
		}
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (a *Applier) exec(ctx context.Context, db execer, ev core.CommitEvent, query string, args []any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s.%s: %w", ev.Table, ev.Column, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("%w: %s %s=%s", ErrRowNotFound, ev.Table, a.keyColumn, ev.RowID)
	}
	a.logger.Debug("row updated",
		slog.String("table", ev.Table),
		slog.String("column", ev.Column),
		slog.String("row", ev.RowID))
	return nil
}

// Statement builds the UPDATE for an event without running it.
func (a *Applier) Statement(ev core.CommitEvent) (string, []any, error) {
	return a.statement(ev)
}

func (a *Applier) statement(ev core.CommitEvent) (string, []any, error) {
	if ev.RowID == "" {
		return "", nil, fmt.Errorf("%w: %s", ErrNoRowIdentity, ev.Target().Key())
	}
	for _, ident := range []string{ev.Table, ev.Column, a.keyColumn} {
		if !identPattern.MatchString(ident) {
			return "", nil, fmt.Errorf("invalid identifier %q", ident)
		}
	}
	arg, err := Arg(ev.New)
	if err != nil {
		return "", nil, fmt.Errorf("%s.%s: %w", ev.Table, ev.Column, err)
	}

	q := a.dialect.Quote
	return a.qb.Update(q(ev.Table)).
		Set(q(ev.Column), arg).
		Where(squirrel.Eq{q(a.keyColumn): ev.RowID}).
		ToSql()
}

// Arg converts a canonical value into a driver argument. Option lists are
// stored as JSON arrays; related rows cannot be written.
func Arg(v core.Value) (any, error) {
	switch v.Kind() {
	case core.KindNull:
		return nil, nil
	case core.KindString:
		s, _ := v.Str()
		return s, nil
	case core.KindNumber:
		f, _ := v.Num()
		return f, nil
	case core.KindBool:
		b, _ := v.Bool()
		return b, nil
	case core.KindList:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return nil, fmt.Errorf("%s values are not writable", v.Kind())
}

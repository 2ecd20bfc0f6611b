// Package state persists the commit log and saved view configurations in a
// local SQLite database.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// ErrViewNotFound is returned when no view is saved under an id.
var ErrViewNotFound = errors.New("view not found")

// Store is the persistence boundary used by the server and CLI.
type Store interface {
	// AppendCommit records one commit event. Events keep their arrival order.
	AppendCommit(ctx context.Context, ev core.CommitEvent) error
	// Commits lists recorded events matching f, oldest first.
	Commits(ctx context.Context, f CommitFilter) ([]core.CommitEvent, error)
	// CellHistory lists the events of one cell, oldest first.
	CellHistory(ctx context.Context, target core.EditTarget) ([]core.CommitEvent, error)

	// SaveView stores cfg under id, replacing any previous config.
	SaveView(ctx context.Context, v SavedView) error
	// LoadView returns the view saved under id, or ErrViewNotFound.
	LoadView(ctx context.Context, id string) (SavedView, error)
	// Views lists every saved view of a table, or all views when table is "".
	Views(ctx context.Context, table string) ([]SavedView, error)
	// DeleteView removes a saved view. Removing a missing view is not an error.
	DeleteView(ctx context.Context, id string) error

	Close() error
}

// CommitFilter narrows a commit log query. Zero fields do not filter.
type CommitFilter struct {
	Table  string
	Column string
	Scope  core.Scope
	Since  time.Time
	// Limit keeps only the newest Limit events.
	Limit int
}

// SavedView is a persisted view configuration.
type SavedView struct {
	ID        string          `json:"id"`
	Table     string          `json:"tableName"`
	Config    core.ViewConfig `json:"config"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

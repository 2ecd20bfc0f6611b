package core

import (
	"fmt"
	"strconv"
	"time"
)

// =============================================================================
// EditTarget
// =============================================================================

// EditTarget identifies the single cell currently being edited.
type EditTarget struct {
	Table    string `json:"tableName"`
	Column   string `json:"columnName"`
	RowIndex int    `json:"rowIndex"`
	RowID    string `json:"rowIdentity,omitempty"`
}

// Key returns a stable string key for the target, used to compare targets and as a map key.
func (t EditTarget) Key() string {
	return t.Table + ":" + t.Column + ":" + strconv.Itoa(t.RowIndex)
}

// Validate checks that the target names a table, a column and a non-negative row.
func (t EditTarget) Validate() error {
	if t.Table == "" {
		return fmt.Errorf("edit target: table name is required")
	}
	if t.Column == "" {
		return fmt.Errorf("edit target: column name is required")
	}
	if t.RowIndex < 0 {
		return fmt.Errorf("edit target: row index %d is negative", t.RowIndex)
	}
	return nil
}

// Below returns the target one row down in the same column.
func (t EditTarget) Below() EditTarget {
	next := t
	next.RowIndex++
	next.RowID = ""
	return next
}

// =============================================================================
// CommitEvent
// =============================================================================

// Scope says whether a commit came from a single cell or a bulk range edit.
type Scope string

// Commit scopes.
const (
	ScopeSingle Scope = "single"
	ScopeBulk   Scope = "bulk"
)

// CommitEvent is the immutable record of one successful cell commit.
// Consumers persist it; it is never retried automatically.
type CommitEvent struct {
	ID        string    `json:"id"`
	Table     string    `json:"tableName"`
	Column    string    `json:"columnName"`
	RowIndex  int       `json:"rowIndex"`
	RowID     string    `json:"rowIdentity,omitempty"`
	Previous  Value     `json:"previousValue"`
	New       Value     `json:"newValue"`
	Scope     Scope     `json:"scope"`
	Timestamp time.Time `json:"timestamp"`
}

// Target returns the cell the event was committed to.
func (e CommitEvent) Target() EditTarget {
	return EditTarget{Table: e.Table, Column: e.Column, RowIndex: e.RowIndex, RowID: e.RowID}
}

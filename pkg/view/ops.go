package view

import (
	"fmt"
	"sync"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// OpKind names a layout operation.
type OpKind string

// Layout operations.
const (
	OpAdd       OpKind = "add"
	OpRename    OpKind = "rename"
	OpDelete    OpKind = "delete"
	OpReorder   OpKind = "reorder"
	OpVisible   OpKind = "visible"
	OpPin       OpKind = "pin"
	OpGroupBy   OpKind = "group_by"
	OpReconcile OpKind = "reconcile"
)

// Operation is a serializable layout change.
type Operation struct {
	Kind    OpKind   `json:"op"`
	Column  string   `json:"column,omitempty"`
	NewName string   `json:"newName,omitempty"`
	Index   int      `json:"index,omitempty"`
	Enabled bool     `json:"enabled,omitempty"`
	Pin     core.Pin `json:"pin,omitempty"`
	// Columns carries the rendered columns for reorder, the schema columns for
	// reconcile and the grouping columns for group_by.
	Columns []string `json:"columns,omitempty"`
	// Preferred seeds an empty order during reconcile.
	Preferred []string `json:"preferred,omitempty"`
}

// Apply runs one operation against prev.
func (r Reconciler) Apply(prev core.ViewConfig, op Operation) (core.ViewConfig, error) {
	if op.Kind != OpReconcile && op.Kind != OpGroupBy && op.Column == "" {
		return prev, fmt.Errorf("%s: column is required", op.Kind)
	}
	switch op.Kind {
	case OpAdd:
		return r.Add(prev, op.Column), nil
	case OpRename:
		if op.NewName == "" {
			return prev, fmt.Errorf("rename %q: new name is required", op.Column)
		}
		return r.Rename(prev, op.Column, op.NewName), nil
	case OpDelete:
		return r.Delete(prev, op.Column), nil
	case OpReorder:
		return r.Reorder(prev, op.Column, op.Index, op.Columns), nil
	case OpVisible:
		return SetVisible(prev, op.Column, op.Enabled), nil
	case OpPin:
		return SetPin(prev, op.Column, op.Pin)
	case OpGroupBy:
		if len(op.Columns) == 0 && op.Column != "" {
			return SetGroupBy(prev, op.Column), nil
		}
		return SetGroupBy(prev, op.Columns...), nil
	case OpReconcile:
		return r.Reconcile(prev, op.Columns, op.Preferred), nil
	}
	return prev, fmt.Errorf("unknown view operation %q", op.Kind)
}

// Store holds the latest configuration of each view. Concurrent writers
// resolve last-applied-wins: every Apply runs against the current config,
// never a caller's stale snapshot.
type Store struct {
	mu    sync.Mutex
	views map[string]core.ViewConfig
	rec   Reconciler
}

// NewStore creates a view store.
func NewStore(rec Reconciler) *Store {
	return &Store{views: make(map[string]core.ViewConfig), rec: rec}
}

// SetReconciler swaps the reconciler, e.g. after a schema reload.
func (s *Store) SetReconciler(rec Reconciler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = rec
}

// Get returns a copy of a view's configuration.
func (s *Store) Get(id string) (core.ViewConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.views[id]
	return cfg.Clone(), ok
}

// Put replaces a view's configuration.
func (s *Store) Put(id string, cfg core.ViewConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[id] = cfg.Clone()
}

// Apply runs ops in order against the stored config and saves the result.
// On error nothing is saved.
func (s *Store) Apply(id string, ops ...Operation) (core.ViewConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orig := s.views[id]
	cfg := orig
	for _, op := range ops {
		next, err := s.rec.Apply(cfg, op)
		if err != nil {
			return orig.Clone(), err
		}
		cfg = next
	}
	s.views[id] = cfg
	return cfg.Clone(), nil
}

// Delete forgets a view.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, id)
}

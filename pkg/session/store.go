// Package session holds the editing store: the single authority on which
// cell is being edited and the only producer of commit events.
//
// Every transition runs as one critical section, and subscribers are
// notified synchronously, in order, before the call returns.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/field"
)

// DefaultWarnDuration is how long an invalid-value warning stays visible.
const DefaultWarnDuration = time.Second

// Listener receives store transitions.
type Listener func(Change)

// CommitHandler receives commit events for persistence.
type CommitHandler func(core.CommitEvent)

// ColumnResolver supplies the descriptor for the column being edited.
type ColumnResolver interface {
	Column(table, column string) (core.ColumnDescriptor, error)
}

// ColumnResolverFunc adapts a function to ColumnResolver.
type ColumnResolverFunc func(table, column string) (core.ColumnDescriptor, error)

// Column implements ColumnResolver.
func (f ColumnResolverFunc) Column(table, column string) (core.ColumnDescriptor, error) {
	return f(table, column)
}

// Store is an editing session store. Create one per editor surface with New.
type Store struct {
	mu     sync.Mutex
	active *State

	subMu     sync.RWMutex
	nextSubID int
	listeners map[int]Listener
	handlers  map[int]CommitHandler

	columns       ColumnResolver
	logger        *slog.Logger
	now           func() time.Time
	newID         func() string
	warnFor       time.Duration
	emitUnchanged bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger (nil uses a discard logger).
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithColumns sets how column descriptors are resolved. Without it every column is Text.
func WithColumns(r ColumnResolver) Option {
	return func(s *Store) { s.columns = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how session and event ids are generated.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithWarnDuration sets how long a rejected value keeps its warning.
func WithWarnDuration(d time.Duration) Option {
	return func(s *Store) { s.warnFor = d }
}

// WithEmitUnchanged makes commits of an unchanged value emit an event.
func WithEmitUnchanged() Option {
	return func(s *Store) { s.emitUnchanged = true }
}

// New creates an editing store.
func New(opts ...Option) *Store {
	s := &Store{
		listeners: make(map[int]Listener),
		handlers:  make(map[int]CommitHandler),
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		newID:     uuid.NewString,
		warnFor:   DefaultWarnDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a listener for every transition.
// The returned function unsubscribes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.listeners, id)
	}
}

// OnCommit registers a handler for commit events.
// The returned function unregisters it.
func (s *Store) OnCommit(fn CommitHandler) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.handlers[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.handlers, id)
	}
}

// Current returns a snapshot of the active session.
func (s *Store) Current() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return State{}, false
	}
	return *s.active, true
}

// IsEditing reports whether target is the cell being edited.
func (s *Store) IsEditing(target core.EditTarget) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil && s.active.Target.Key() == target.Key()
}

// Column resolves a column descriptor, falling back to Text on schema mismatch.
func (s *Store) Column(table, column string) core.ColumnDescriptor {
	fallback := core.ColumnDescriptor{Name: column, DisplayName: column, Type: core.FieldText}
	if s.columns == nil {
		return fallback
	}
	col, err := s.columns.Column(table, column)
	if err != nil {
		var sme *core.SchemaMismatchError
		if errors.As(err, &sme) {
			s.logger.Debug("column not in schema, using text", "table", table, "column", column)
		} else {
			s.logger.Warn("column lookup failed, using text", "table", table, "column", column, "error", err)
		}
		return fallback
	}
	col.Type = col.Type.Normalize()
	return col
}

// Begin opens a session on target, cancelling any active session without an event.
func (s *Store) Begin(target core.EditTarget, initial core.Value) (State, error) {
	if err := target.Validate(); err != nil {
		return State{}, err
	}
	col := s.Column(target.Table, target.Column)
	if col.Readonly || !col.Type.Editable() {
		return State{}, fmt.Errorf("begin %s: %w", target.Key(), core.ErrReadonly)
	}

	s.mu.Lock()
	prev := s.active
	next := &State{
		ID:        s.newID(),
		Target:    target,
		Column:    col,
		Initial:   initial,
		Buffer:    initial,
		StartedAt: s.now(),
	}
	s.active = next
	snapshot := *next
	s.mu.Unlock()

	if prev != nil {
		s.logger.Debug("edit session replaced", "previous", prev.Target.Key(), "target", target.Key())
	}
	s.logger.Debug("edit session began", "target", target.Key(), "session", snapshot.ID)
	s.notify(Change{Kind: Began, Session: &snapshot, Previous: prev})
	return snapshot, nil
}

// Stage replaces the transient buffer of the active session.
func (s *Store) Stage(v core.Value) (State, error) {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return State{}, core.ErrNoActiveSession
	}
	s.active.Buffer = v
	snapshot := *s.active
	s.mu.Unlock()

	s.notify(Change{Kind: Staged, Session: &snapshot})
	return snapshot, nil
}

// Commit canonicalizes raw with the column's pipeline and closes the session.
// A validation failure keeps the session open and marks it invalid.
// The returned event is nil when nothing changed.
func (s *Store) Commit(raw core.Value) (*core.CommitEvent, error) {
	return s.commit("", raw, false)
}

// CommitStaged commits the session's buffer.
func (s *Store) CommitStaged() (*core.CommitEvent, error) {
	return s.commit("", core.Null(), true)
}

// CommitSession commits only if the active session is still the instance
// identified by id, so a late commit never lands on a newer session.
func (s *Store) CommitSession(id string, raw core.Value) (*core.CommitEvent, error) {
	if id == "" {
		return nil, core.ErrNoActiveSession
	}
	return s.commit(id, raw, false)
}

func (s *Store) commit(id string, raw core.Value, staged bool) (*core.CommitEvent, error) {
	s.mu.Lock()
	cur := s.active
	if cur == nil || (id != "" && cur.ID != id) {
		s.mu.Unlock()
		return nil, core.ErrNoActiveSession
	}
	if staged {
		raw = cur.Buffer
	}

	value, err := field.Canonicalize(cur.Column, raw)
	if err != nil {
		cur.Invalid = true
		cur.Problem = err.Error()
		cur.WarnUntil = s.now().Add(s.warnFor)
		snapshot := *cur
		s.mu.Unlock()

		s.logger.Debug("commit rejected", "target", snapshot.Target.Key(), "error", err)
		s.notify(Change{Kind: Rejected, Session: &snapshot, Err: err.Error()})
		return nil, err
	}

	s.active = nil
	prev := *cur
	s.mu.Unlock()

	if value.Equal(prev.Initial) && !s.emitUnchanged {
		s.logger.Debug("commit unchanged", "target", prev.Target.Key())
		s.notify(Change{Kind: Committed, Previous: &prev})
		return nil, nil
	}

	event := core.CommitEvent{
		ID:        s.newID(),
		Table:     prev.Target.Table,
		Column:    prev.Target.Column,
		RowIndex:  prev.Target.RowIndex,
		RowID:     prev.Target.RowID,
		Previous:  prev.Initial,
		New:       value,
		Scope:     core.ScopeSingle,
		Timestamp: s.now(),
	}
	s.logger.Debug("commit", "target", prev.Target.Key(), "event", event.ID)
	s.notify(Change{Kind: Committed, Previous: &prev, Event: &event})
	s.dispatch(event)
	return &event, nil
}

// Cancel closes the active session without an event. It is a no-op when idle.
func (s *Store) Cancel() {
	s.mu.Lock()
	prev := s.active
	s.active = nil
	s.mu.Unlock()

	if prev == nil {
		return
	}
	s.logger.Debug("edit session cancelled", "target", prev.Target.Key())
	s.notify(Change{Kind: Cancelled, Previous: prev})
}

// Write commits a value straight to a cell without opening a session.
// Used for bulk range edits; the active session is left untouched.
func (s *Store) Write(target core.EditTarget, previous, raw core.Value, scope core.Scope) (*core.CommitEvent, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	col := s.Column(target.Table, target.Column)
	if col.Readonly || !col.Type.Editable() {
		return nil, fmt.Errorf("write %s: %w", target.Key(), core.ErrReadonly)
	}
	value, err := field.Canonicalize(col, raw)
	if err != nil {
		return nil, err
	}
	if value.Equal(previous) && !s.emitUnchanged {
		return nil, nil
	}
	if scope == "" {
		scope = core.ScopeSingle
	}

	event := core.CommitEvent{
		ID:        s.newID(),
		Table:     target.Table,
		Column:    target.Column,
		RowIndex:  target.RowIndex,
		RowID:     target.RowID,
		Previous:  previous,
		New:       value,
		Scope:     scope,
		Timestamp: s.now(),
	}
	s.notify(Change{Kind: Committed, Event: &event})
	s.dispatch(event)
	return &event, nil
}

func (s *Store) notify(c Change) {
	for _, fn := range s.snapshotListeners() {
		fn(c)
	}
}

func (s *Store) dispatch(e core.CommitEvent) {
	s.subMu.RLock()
	ids := make([]int, 0, len(s.handlers))
	for id := range s.handlers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]CommitHandler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, s.handlers[id])
	}
	s.subMu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// snapshotListeners returns listeners in subscription order.
func (s *Store) snapshotListeners() []Listener {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.listeners[id])
	}
	return out
}

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/gridcell/internal/notifier"
	"github.com/leapstack-labs/gridcell/pkg/bridge"
	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/session"
	"github.com/leapstack-labs/gridcell/pkg/view"
)

const (
	cookieName   = "gridcell"
	clientKey    = "client"
	persistAfter = 5 * time.Second
)

// DefaultEditorIdle is how long an unused editor is kept.
const DefaultEditorIdle = 30 * time.Minute

// editor is the edit store of one browser session.
type editor struct {
	id      string
	store   *session.Store
	bridge  *bridge.Bridge
	changes *notifier.Notifier[session.Change]

	// lastSeen is guarded by Server.mu.
	lastSeen time.Time
}

// clientID returns the browser's client id, issuing a cookie on first use.
func (s *Server) clientID(w http.ResponseWriter, r *http.Request) string {
	sess, err := s.sessionStore.Get(r, cookieName)
	if err != nil {
		s.logger.Debug("discarding unreadable session cookie", "error", err)
	}
	if id, ok := sess.Values[clientKey].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	sess.Values[clientKey] = id
	if err := sess.Save(r, w); err != nil {
		s.logger.Warn("failed to save session cookie", "error", err)
	}
	return id
}

// editorFor returns the client's editor, creating it on first use.
func (s *Server) editorFor(w http.ResponseWriter, r *http.Request) *editor {
	id := s.clientID(w, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if ed, ok := s.editors[id]; ok {
		ed.lastSeen = s.now()
		return ed
	}

	logger := s.logger.With("client", id)
	opts := []session.Option{
		session.WithLogger(logger),
		session.WithColumns(session.ColumnResolverFunc(s.column)),
	}
	if s.warnFor > 0 {
		opts = append(opts, session.WithWarnDuration(s.warnFor))
	}
	if s.emitSame {
		opts = append(opts, session.WithEmitUnchanged())
	}
	store := session.New(opts...)

	ed := &editor{
		id:       id,
		store:    store,
		bridge:   bridge.New(store, bridge.WithLogger(logger)),
		changes:  notifier.New[session.Change](),
		lastSeen: s.now(),
	}
	store.Subscribe(ed.changes.Broadcast)
	store.OnCommit(s.persist)
	s.editors[id] = ed
	return ed
}

// evictIdle drops editors unused for longer than the idle limit. Editors with
// an open event stream are kept. An abandoned edit session is cancelled
// without committing.
func (s *Server) evictIdle() int {
	cutoff := s.now().Add(-s.editorIdle)

	s.mu.Lock()
	var idle []*editor
	for id, ed := range s.editors {
		if ed.lastSeen.After(cutoff) || ed.changes.Len() > 0 {
			continue
		}
		delete(s.editors, id)
		idle = append(idle, ed)
	}
	s.mu.Unlock()

	for _, ed := range idle {
		if _, editing := ed.store.Current(); editing {
			s.logger.Debug("cancelling abandoned edit session", "client", ed.id)
			ed.store.Cancel()
		}
	}
	if len(idle) > 0 {
		s.logger.Debug("evicted idle editors", "count", len(idle), "remaining", s.editorCount())
	}
	return len(idle)
}

// sweepEditors runs evictIdle until ctx is done.
func (s *Server) sweepEditors(ctx context.Context) error {
	ticker := time.NewTicker(max(s.editorIdle/4, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

func (s *Server) editorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.editors)
}

// column resolves descriptors against the current template.
func (s *Server) column(table, column string) (core.ColumnDescriptor, error) {
	r := view.Resolver{Template: s.template(), Options: s.tables}
	return r.Column(table, column)
}

// persist records a commit and applies it to the row store. Failures are
// logged; events are never retried.
func (s *Server) persist(ev core.CommitEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(s.context()), persistAfter)
	defer cancel()

	logger := s.logger.With("event", ev.ID, "target", ev.Target().Key())
	if s.state != nil {
		if err := s.state.AppendCommit(ctx, ev); err != nil {
			logger.Error("failed to record commit", "error", err)
		}
	}
	if s.rows != nil {
		if err := s.rows.Apply(ctx, ev); err != nil {
			logger.Error("failed to apply commit", "error", err)
		}
	}
}

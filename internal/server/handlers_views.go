package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/gridcell/internal/state"
	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/view"
)

type viewOpsRequest struct {
	Table string           `json:"tableName"`
	Ops   []view.Operation `json:"ops"`
}

// viewConfig returns a view's config, loading it from state on first use.
func (s *Server) viewConfig(ctx context.Context, id string) (core.ViewConfig, error) {
	if cfg, ok := s.views.Get(id); ok {
		return cfg, nil
	}
	if s.state == nil {
		return core.ViewConfig{}, fmt.Errorf("%w: %s", state.ErrViewNotFound, id)
	}
	saved, err := s.state.LoadView(ctx, id)
	if err != nil {
		return core.ViewConfig{}, err
	}
	s.views.Put(id, saved.Config)
	cfg, _ := s.views.Get(id)
	return cfg, nil
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cfg, err := s.viewConfig(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state.SavedView{ID: id, Config: cfg})
}

// handleViewOps applies layout operations to a view and saves the result.
// Concurrent requests resolve last-applied-wins.
func (s *Server) handleViewOps(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req viewOpsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.viewConfig(r.Context(), id); err != nil && !errors.Is(err, state.ErrViewNotFound) {
		writeError(w, err)
		return
	}

	cfg, err := s.views.Apply(id, req.Ops...)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	saved := state.SavedView{ID: id, Table: req.Table, Config: cfg, UpdatedAt: s.now().UTC()}
	if s.state != nil {
		ctx, cancel := context.WithTimeout(r.Context(), persistAfter)
		defer cancel()
		if err := s.state.SaveView(ctx, saved); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.views.Delete(id)
	if s.state != nil {
		if err := s.state.DeleteView(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCommits lists the commit log. Query: table, column, scope, since
// (RFC 3339), limit.
func (s *Server) handleCommits(w http.ResponseWriter, r *http.Request) {
	if s.state == nil {
		writeJSON(w, http.StatusOK, map[string]any{"commits": []core.CommitEvent{}})
		return
	}
	q := r.URL.Query()
	f := state.CommitFilter{
		Table:  q.Get("table"),
		Column: q.Get("column"),
		Scope:  core.Scope(q.Get("scope")),
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, fmt.Errorf("%w: since: %v", errBadRequest, err))
			return
		}
		f.Since = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest))
			return
		}
		f.Limit = n
	}

	commits, err := s.state.Commits(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if commits == nil {
		commits = []core.CommitEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"commits": commits})
}

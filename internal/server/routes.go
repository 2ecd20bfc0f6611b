package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/gridcell/internal/state"
	"github.com/leapstack-labs/gridcell/pkg/core"
)

func (s *Server) routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/tables", s.handleTables)
		r.Route("/tables/{table}", func(r chi.Router) {
			r.Get("/columns", s.handleColumns)
			r.Post("/group", s.handleGroup)
			r.Post("/aggregate", s.handleAggregate)
		})

		r.Route("/edit", func(r chi.Router) {
			r.Post("/begin", s.handleBegin)
			r.Post("/stage", s.handleStage)
			r.Post("/trigger", s.handleTrigger)
			r.Post("/range", s.handleRange)
			r.Post("/commit", s.handleCommit)
			r.Post("/cancel", s.handleCancel)
			r.Get("/state", s.handleState)
			r.Get("/events", s.handleEvents)
		})

		r.Route("/views/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetView)
			r.Post("/ops", s.handleViewOps)
			r.Delete("/", s.handleDeleteView)
		})

		r.Get("/commits", s.handleCommits)
	})
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Problem string `json:"problem,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		ve  *core.ValidationError
		sme *core.SchemaMismatchError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Problem: ve.Reason})
	case errors.Is(err, core.ErrNoActiveSession):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.Is(err, core.ErrReadonly):
		writeJSON(w, http.StatusForbidden, errorBody{Error: err.Error()})
	case errors.As(err, &sme), errors.Is(err, state.ErrViewNotFound), errors.Is(err, errUnknownTable):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

var (
	errBadRequest   = errors.New("bad request")
	errUnknownTable = errors.New("unknown table")
)

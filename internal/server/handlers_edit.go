package server

import (
	"fmt"
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/gridcell/pkg/bridge"
	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/session"
)

// decode reads a JSON body (or datastar signals) into v.
func decode(r *http.Request, v any) error {
	if err := datastar.ReadSignals(r, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

type beginRequest struct {
	Target core.EditTarget `json:"target"`
	Value  core.Value      `json:"value"`
}

type stageRequest struct {
	Value core.Value `json:"value"`
}

type commitRequest struct {
	Value core.Value `json:"value"`
	// Staged commits the session buffer instead of Value.
	Staged bool `json:"staged,omitempty"`
	// SessionID guards against committing into a newer session.
	SessionID string `json:"sessionId,omitempty"`
}

type commitResponse struct {
	Event *core.CommitEvent `json:"event"`
}

type rangeRequest struct {
	Cells []bridge.RangeCell `json:"cells"`
	Value core.Value         `json:"value"`
}

type rangeResponse struct {
	Events []core.CommitEvent `json:"events"`
	Errors string             `json:"errors,omitempty"`
}

type stateResponse struct {
	Session *session.State `json:"session"`
	Warning bool           `json:"warning"`
}

func (s *Server) handleBegin(w http.ResponseWriter, r *http.Request) {
	var req beginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.Target.Validate(); err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	st, err := s.editorFor(w, r).store.Begin(req.Target, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{Session: &st})
}

func (s *Server) handleStage(w http.ResponseWriter, r *http.Request) {
	var req stageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	st, err := s.editorFor(w, r).store.Stage(req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{Session: &st})
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	store := s.editorFor(w, r).store

	var (
		ev  *core.CommitEvent
		err error
	)
	switch {
	case req.Staged:
		ev, err = store.CommitStaged()
	case req.SessionID != "":
		ev, err = store.CommitSession(req.SessionID, req.Value)
	default:
		ev, err = store.Commit(req.Value)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commitResponse{Event: ev})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.editorFor(w, r).store.Cancel()
	writeJSON(w, http.StatusOK, stateResponse{})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeState(w, s.editorFor(w, r))
}

func (s *Server) writeState(w http.ResponseWriter, ed *editor) {
	resp := stateResponse{}
	if cur, ok := ed.store.Current(); ok {
		resp.Session = &cur
		resp.Warning = cur.Warning(s.now())
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTrigger applies one trigger or a JSON array of triggers in order.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Triggers []bridge.Trigger `json:"triggers"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Triggers) == 0 {
		writeError(w, fmt.Errorf("%w: no triggers", errBadRequest))
		return
	}

	results, err := s.editorFor(w, r).bridge.HandleAll(req.Triggers)
	if err != nil {
		if core.IsValidationError(err) {
			writeJSON(w, http.StatusUnprocessableEntity, struct {
				Results []bridge.Result `json:"results"`
				errorBody
			}{results, errorBody{Error: err.Error()}})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Results []bridge.Result `json:"results"`
	}{results})
}

func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	var req rangeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	events, err := s.editorFor(w, r).bridge.ApplyRange(req.Cells, req.Value)
	resp := rangeResponse{Events: events}
	if resp.Events == nil {
		resp.Events = []core.CommitEvent{}
	}
	if err != nil {
		resp.Errors = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

package server

import (
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/gridcell/pkg/session"
)

// sessionSignals is the datastar signal payload sent on every change.
type sessionSignals struct {
	Change  *session.Change `json:"change,omitempty"`
	Session *session.State  `json:"session"`
}

type schemaSignals struct {
	Tables []string `json:"tables"`
}

// handleEvents streams the client's session changes and schema reloads.
// The current session is sent first so a reconnecting client resyncs.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ed := s.editorFor(w, r)
	sse := datastar.NewSSE(w, r)

	changes := ed.changes.Subscribe()
	defer ed.changes.Unsubscribe(changes)
	reloads := s.schemaEvents.Subscribe()
	defer s.schemaEvents.Unsubscribe(reloads)

	initial := sessionSignals{}
	if cur, ok := ed.store.Current(); ok {
		initial.Session = &cur
	}
	if err := sse.MarshalAndPatchSignals(initial); err != nil {
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if err := sse.MarshalAndPatchSignals(sessionSignals{Change: &c, Session: c.Session}); err != nil {
				_ = sse.ConsoleError(err)
			}
		case tpl, ok := <-reloads:
			if !ok {
				return
			}
			if err := sse.MarshalAndPatchSignals(schemaSignals{Tables: tpl.TableNames()}); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

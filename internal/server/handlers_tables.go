package server

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/gridcell/pkg/aggregate"
	"github.com/leapstack-labs/gridcell/pkg/core"
	"github.com/leapstack-labs/gridcell/pkg/grouping"
	"github.com/leapstack-labs/gridcell/pkg/view"
)

type groupRequest struct {
	Column  string     `json:"column"`
	Columns []string   `json:"columns"`
	Rows    []core.Row `json:"rows"`
}

// groupColumns returns the grouping columns, outermost first.
func (req groupRequest) groupColumns() []string {
	if len(req.Columns) == 0 && req.Column != "" {
		return []string{req.Column}
	}
	return req.Columns
}

type groupResponse struct {
	Columns []string         `json:"columns"`
	Groups  []grouping.Group `json:"groups"`
}

type aggregateRequest struct {
	Rows   []core.Row                `json:"rows"`
	Config map[string]aggregate.Kind `json:"config"`
}

// knownTable returns the table URL parameter, or errUnknownTable.
func (s *Server) knownTable(r *http.Request) (string, error) {
	table := chi.URLParam(r, "table")
	if _, ok := s.template().Table(table); !ok {
		return "", fmt.Errorf("%w: %q", errUnknownTable, table)
	}
	return table, nil
}

func (s *Server) handleTables(w http.ResponseWriter, _ *http.Request) {
	names := s.template().TableNames()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tables": names})
}

// handleColumns describes a table's columns in view order. ?view= selects a
// saved layout.
func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	table, err := s.knownTable(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var cfg core.ViewConfig
	if id := r.URL.Query().Get("view"); id != "" {
		if cfg, err = s.viewConfig(r.Context(), id); err != nil {
			writeError(w, err)
			return
		}
	}
	cols := view.Describe(s.template(), table, cfg, nil, s.tables[table])
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "columns": cols})
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	table, err := s.knownTable(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req groupRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	columns := req.groupColumns()
	if len(columns) == 0 || slices.Contains(columns, "") {
		writeError(w, fmt.Errorf("%w: column is required", errBadRequest))
		return
	}

	groups := grouping.GroupRows(s.template(), table, columns, req.Rows)
	if groups == nil {
		groups = []grouping.Group{}
	}
	keys := make([]string, len(columns))
	for i, c := range columns {
		keys[i] = grouping.KeyColumn(c)
	}
	writeJSON(w, http.StatusOK, groupResponse{Columns: keys, Groups: groups})
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	table, err := s.knownTable(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req aggregateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	summaries := aggregate.Summarize(s.template(), table, req.Rows, req.Config)
	if summaries == nil {
		summaries = []aggregate.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

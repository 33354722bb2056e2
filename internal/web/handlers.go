package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/rulegrid/internal/core"
	"github.com/JonMunkholm/rulegrid/internal/grid"
	"github.com/JonMunkholm/rulegrid/internal/web/views"
	"github.com/go-chi/chi/v5"
)

// GridResponse is the JSON shape of a stored grid.
type GridResponse struct {
	Name string    `json:"name"`
	Rows grid.Grid `json:"rows"`
}

// SettingRequest is the body of PUT /api/settings/{name}.
type SettingRequest struct {
	Value string `json:"value"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"rules":  core.RuleCount(),
	})
}

func (s *Server) handleRulesPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	views.RulesPage(s.service.ListRules()).Render(r.Context(), w)
}

func (s *Server) handleGridPage(w http.ResponseWriter, r *http.Request) {
	granularity := chi.URLParam(r, "granularity")
	g, err := s.service.Grid(r.Context(), granularity)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	views.GridPage(granularity, g).Render(r.Context(), w)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.ListRules())
}

func (s *Server) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	granularity := chi.URLParam(r, "granularity")
	g, err := s.service.Grid(r.Context(), granularity)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if g == nil {
		g = grid.Grid{}
	}
	writeJSON(w, http.StatusOK, GridResponse{Name: core.SettingsSheet(granularity), Rows: g})
}

func (s *Server) handlePutGrid(w http.ResponseWriter, r *http.Request) {
	granularity := chi.URLParam(r, "granularity")

	var body GridResponse
	if err := decodeJSON(w, r, &body); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.service.ReplaceGrid(r.Context(), granularity, body.Rows); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	cmd := core.Command(chi.URLParam(r, "command"))

	var req core.Request
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.respondErrorStatus(w, r, err, http.StatusBadRequest)
			return
		}
	}
	if req.Granularity == "" {
		req.Granularity = r.URL.Query().Get("granularity")
	}

	ctx := core.ContextWithTrigger(r.Context(), "api")
	resp, err := s.dispatcher.Dispatch(ctx, cmd, req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	rule := chi.URLParam(r, "rule")
	g, err := s.service.Results(r.Context(), rule)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if g == nil {
		g = grid.Grid{}
	}
	writeJSON(w, http.StatusOK, GridResponse{Name: core.ResultsSheet(rule), Rows: g})
}

func (s *Server) handleEntityResult(w http.ResponseWriter, r *http.Request) {
	rule := chi.URLParam(r, "rule")
	entityID := chi.URLParam(r, "entityID")

	rec, err := s.service.EntityResult(r.Context(), rule, entityID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if rec == nil {
		s.respondError(w, r, fmt.Errorf("%w: %s under %s", core.ErrNoResult, entityID, rule))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var body SettingRequest
	if err := decodeJSON(w, r, &body); err != nil {
		s.respondErrorStatus(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.service.SetSetting(r.Context(), name, body.Value); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON decodes a bounded request body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGridBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

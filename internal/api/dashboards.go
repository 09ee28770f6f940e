package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/controlhub-core/internal/layout"
)

// placeRequest is the body of POST /layout/place.
type placeRequest struct {
	Columns  int             `json:"columns"`
	Existing []layout.Widget `json:"existing"`
	Widgets  []layout.Widget `json:"widgets"`
}

// handlePlaceWidgets positions widgets in order around the existing ones
// without storing anything. Widgets without a size get their kind's default.
func (s *Server) handlePlaceWidgets(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Columns == 0 {
		req.Columns = s.dashboards.Columns()
	}
	if req.Columns < 1 {
		s.writeDomainError(w, r, fmt.Errorf("%w: %d", layout.ErrInvalidColumns, req.Columns))
		return
	}
	for i, e := range req.Existing {
		if !e.Placed() {
			writeBadRequest(w, fmt.Sprintf("existing[%d] has no position", i))
			return
		}
	}

	occupied := append([]layout.Widget(nil), req.Existing...)
	placed := make([]layout.Widget, 0, len(req.Widgets))
	for _, wd := range req.Widgets {
		wd = wd.WithDefaultSize()
		if err := wd.Validate(req.Columns); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
		wd = layout.AutoPlace(occupied, wd, req.Columns)
		occupied = append(occupied, wd)
		placed = append(placed, wd)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"columns": req.Columns,
		"widgets": placed,
	})
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboards.Dashboard(r.Context(), chi.URLParam(r, "controllerID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRegenerateDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboards.Regenerate(r.Context(), chi.URLParam(r, "controllerID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleAddWidget adds a widget to the stored dashboard. Omitting x or y
// asks for auto-placement.
func (s *Server) handleAddWidget(w http.ResponseWriter, r *http.Request) {
	var wd layout.Widget
	if err := json.NewDecoder(r.Body).Decode(&wd); err != nil {
		writeBadRequest(w, "invalid widget body: "+err.Error())
		return
	}
	d, placed, err := s.dashboards.AddWidget(r.Context(), chi.URLParam(r, "controllerID"), wd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"widget":    placed,
		"dashboard": d,
	})
}

func (s *Server) handleRemoveWidget(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboards.RemoveWidget(r.Context(), chi.URLParam(r, "controllerID"), chi.URLParam(r, "widgetID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

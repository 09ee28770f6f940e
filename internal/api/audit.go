package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/controlhub-core/internal/audit"
)

// handleListAudit returns the edit history, newest first.
//
// Query parameters: action, entity_type, entity_id, controller_id, limit,
// offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := audit.Filter{
		Action:       q.Get("action"),
		EntityType:   q.Get("entity_type"),
		EntityID:     q.Get("entity_id"),
		ControllerID: q.Get("controller_id"),
	}

	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	res, err := s.audit.List(r.Context(), f)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

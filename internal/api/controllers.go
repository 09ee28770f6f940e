package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/controlhub-core/internal/controller"
)

// controllerSummary is the list form of a controller.
type controllerSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SerialNumber string    `json:"serialNumber,omitempty"`
	Modules      int       `json:"modules"`
	Sensors      int       `json:"sensors"`
	Devices      int       `json:"devices"`
	RuleGroups   int       `json:"ruleGroups"`
	Rules        int       `json:"rules"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

func summarize(c *controller.Controller) controllerSummary {
	return controllerSummary{
		ID:           c.ID,
		Name:         c.Name,
		SerialNumber: c.SerialNumber,
		Modules:      len(c.Modules),
		Sensors:      len(c.Sensors()),
		Devices:      len(c.Devices()),
		RuleGroups:   len(c.RuleGroups),
		Rules:        c.RuleCount(),
		FetchedAt:    c.FetchedAt,
	}
}

// handleListControllers returns every cached controller in directory order.
func (s *Server) handleListControllers(w http.ResponseWriter, r *http.Request) {
	controllers, err := s.controllers.ListControllers(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	out := make([]controllerSummary, len(controllers))
	for i := range controllers {
		out[i] = summarize(&controllers[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"controllers": out,
		"count":       len(out),
		"stale":       s.controllers.Stale(),
	})
}

// handleGetController returns one controller with modules and raw rules.
func (s *Server) handleGetController(w http.ResponseWriter, r *http.Request) {
	c, err := s.controllers.GetController(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleRefreshControllers reloads the directory and rebuilds the
// reconciled rule groups.
func (s *Server) handleRefreshControllers(w http.ResponseWriter, r *http.Request) {
	if err := s.rulegroups.Reload(r.Context()); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	groups, err := s.rulegroups.Groups()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"controllers":   s.controllers.ControllerCount(),
		"groups":        len(groups),
		"stale":         s.controllers.Stale(),
		"reconciled_at": s.rulegroups.LoadedAt().UTC().Format(time.RFC3339),
	})
}

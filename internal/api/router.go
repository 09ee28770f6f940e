package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// healthTimeout bounds the component checks behind /health.
const healthTimeout = 3 * time.Second

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/controllers", func(r chi.Router) {
			r.Get("/", s.handleListControllers)
			r.Post("/refresh", s.handleRefreshControllers)
			r.Get("/{id}", s.handleGetController)
		})

		r.Route("/rule-groups", func(r chi.Router) {
			r.Get("/", s.handleListRuleGroups)
			r.Route("/{groupID}", func(r chi.Router) {
				r.Get("/", s.handleGetRuleGroup)
				r.Route("/rules/{ruleID}", func(r chi.Router) {
					r.Get("/", s.handleGetRule)
					r.Patch("/", s.handleUpdateRule)
					r.Delete("/", s.handleDeleteRule)
					r.Get("/deviants", s.handleRuleDeviants)
					r.Post("/deviants/preview", s.handlePreviewDeviants)
					r.Post("/controllers/{controllerID}", s.handleAssignRule)
					r.Delete("/controllers/{controllerID}", s.handleDeleteRuleInstance)
				})
			})
		})

		r.Post("/layout/place", s.handlePlaceWidgets)

		r.Route("/dashboards/{controllerID}", func(r chi.Router) {
			r.Get("/", s.handleGetDashboard)
			r.Post("/regenerate", s.handleRegenerateDashboard)
			r.Post("/widgets", s.handleAddWidget)
			r.Delete("/widgets/{widgetID}", s.handleRemoveWidget)
		})

		if s.audit != nil {
			r.Get("/audit", s.handleListAudit)
		}

		r.Get(s.wsCfg.Path, s.handleWebSocket)
	})

	return r
}

// handleHealth reports the version, the reconciled view's age and each
// registered component. Any failing component makes the status "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := "ok"
	components := make(map[string]string, len(s.health))
	for name, hc := range s.health {
		if err := hc.HealthCheck(ctx); err != nil {
			components[name] = err.Error()
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	body := map[string]any{
		"status":      status,
		"version":     s.version,
		"controllers": s.controllers.ControllerCount(),
		"stale":       s.controllers.Stale(),
		"components":  components,
	}
	if t := s.rulegroups.LoadedAt(); !t.IsZero() {
		body["reconciled_at"] = t.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, body)
}

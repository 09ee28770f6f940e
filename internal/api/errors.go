package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/controlhub-core/internal/backend"
	"github.com/nerrad567/controlhub-core/internal/controller"
	"github.com/nerrad567/controlhub-core/internal/layout"
	"github.com/nerrad567/controlhub-core/internal/rulegroup"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeValidation   = "validation_error"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeUpstream     = "upstream_error"
	ErrCodeInternal     = "internal_error"
	ErrCodeUnresolvable = "unresolvable"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // best-effort write; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// errorMapping pairs a sentinel with its HTTP status and code. The first
// match wins, so more specific sentinels come first.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{controller.ErrControllerNotFound, http.StatusNotFound, ErrCodeNotFound},
	{rulegroup.ErrGroupNotFound, http.StatusNotFound, ErrCodeNotFound},
	{rulegroup.ErrRuleNotFound, http.StatusNotFound, ErrCodeNotFound},
	{rulegroup.ErrInstanceNotFound, http.StatusNotFound, ErrCodeNotFound},
	{layout.ErrDashboardNotFound, http.StatusNotFound, ErrCodeNotFound},
	{layout.ErrWidgetNotFound, http.StatusNotFound, ErrCodeNotFound},
	{rulegroup.ErrInvalidPatch, http.StatusBadRequest, ErrCodeValidation},
	{layout.ErrInvalidWidget, http.StatusBadRequest, ErrCodeValidation},
	{layout.ErrInvalidColumns, http.StatusBadRequest, ErrCodeValidation},
	{controller.ErrInvalidDuration, http.StatusBadRequest, ErrCodeValidation},
	{rulegroup.ErrAlreadyAssigned, http.StatusConflict, ErrCodeConflict},
	{rulegroup.ErrControllerNotInGroup, http.StatusConflict, ErrCodeConflict},
	{rulegroup.ErrSuperseded, http.StatusConflict, ErrCodeConflict},
	{rulegroup.ErrUnresolved, http.StatusUnprocessableEntity, ErrCodeUnresolvable},
	{rulegroup.ErrNotLoaded, http.StatusServiceUnavailable, ErrCodeUnavailable},
	{controller.ErrNoSnapshot, http.StatusServiceUnavailable, ErrCodeUnavailable},
	{backend.ErrRequestFailed, http.StatusBadGateway, ErrCodeUpstream},
}

// writeDomainError maps err onto a status via errorMapping. Unknown errors
// are logged and reported as 500 without detail.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", r.Context().Value(ctxKeyRequestID),
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
}

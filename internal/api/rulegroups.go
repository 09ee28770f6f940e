package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/controlhub-core/internal/rulegroup"
)

// intParam parses a numeric URL parameter.
func intParam(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

// ruleParams parses {groupID} and {ruleID}, writing a 400 on failure.
func ruleParams(w http.ResponseWriter, r *http.Request) (groupID, ruleID int, ok bool) {
	groupID, err := intParam(r, "groupID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return 0, 0, false
	}
	ruleID, err = intParam(r, "ruleID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return 0, 0, false
	}
	return groupID, ruleID, true
}

// decodePatch reads a kind-agnostic rule patch from the request body.
func decodePatch(w http.ResponseWriter, r *http.Request) (rulegroup.Patch, bool) {
	var p rulegroup.Patch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		writeBadRequest(w, "invalid patch body: "+err.Error())
		return rulegroup.Patch{}, false
	}
	return p, true
}

func (s *Server) handleListRuleGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.rulegroups.Groups()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rule_groups": groups,
		"count":       len(groups),
	})
}

func (s *Server) handleGetRuleGroup(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "groupID")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	g, err := s.rulegroups.Group(id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	groupID, ruleID, ok := ruleParams(w, r)
	if !ok {
		return
	}
	v, err := s.rulegroups.Rule(groupID, ruleID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleRuleDeviants lists the fields whose per-controller values differ
// from the canonical values.
func (s *Server) handleRuleDeviants(w http.ResponseWriter, r *http.Request) {
	groupID, ruleID, ok := ruleParams(w, r)
	if !ok {
		return
	}
	d, err := s.rulegroups.Deviants(groupID, ruleID, nil)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deviants": d})
}

// handlePreviewDeviants reports which controllers would still differ if the
// posted patch became the canonical value. Nothing is saved.
func (s *Server) handlePreviewDeviants(w http.ResponseWriter, r *http.Request) {
	groupID, ruleID, ok := ruleParams(w, r)
	if !ok {
		return
	}
	p, ok := decodePatch(w, r)
	if !ok {
		return
	}
	d, err := s.rulegroups.Deviants(groupID, ruleID, &p)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deviants": d})
}

// handleUpdateRule applies a patch to every instance of a mapped rule.
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	groupID, ruleID, ok := ruleParams(w, r)
	if !ok {
		return
	}
	p, ok := decodePatch(w, r)
	if !ok {
		return
	}
	v, err := s.rulegroups.UpdateRule(r.Context(), groupID, ruleID, p)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	groupID, ruleID, ok := ruleParams(w, r)
	if !ok {
		return
	}
	if err := s.rulegroups.DeleteRule(r.Context(), groupID, ruleID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteRuleInstance(w http.ResponseWriter, r *http.Request) {
	groupID, ruleID, ok := ruleParams(w, r)
	if !ok {
		return
	}
	err := s.rulegroups.DeleteRuleInstance(r.Context(), groupID, ruleID, chi.URLParam(r, "controllerID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAssignRule copies a mapped rule onto another controller of its group.
func (s *Server) handleAssignRule(w http.ResponseWriter, r *http.Request) {
	groupID, ruleID, ok := ruleParams(w, r)
	if !ok {
		return
	}
	v, err := s.rulegroups.AssignRule(r.Context(), groupID, ruleID, chi.URLParam(r, "controllerID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

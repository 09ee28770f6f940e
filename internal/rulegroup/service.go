package rulegroup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/controlhub-core/internal/audit"
	"github.com/nerrad567/controlhub-core/internal/controller"
)

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Source supplies controllers and receives the raw rule changes made by
// edits. *controller.Registry implements it.
type Source interface {
	RefreshCache(ctx context.Context) error
	ListControllers(ctx context.Context) ([]controller.Controller, error)
	ApplyRule(ctx context.Context, controllerID string, rule controller.Rule) error
	RemoveRule(ctx context.Context, controllerID string, kind controller.Kind, ruleID string) error
}

// MQTTClient is the interface for notifying controllers of rule changes.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// Metrics records reconcile and edit telemetry.
type Metrics interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// Auditor records finished edits.
type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

// Channel is the WebSocket channel carrying rule group changes.
const Channel = "rulegroups.updated"

// RulesChangedTopic is the MQTT topic a controller listens on for rule changes.
func RulesChangedTopic(controllerID string) string {
	return "controlhub/controller/" + controllerID + "/rules/changed"
}

// Service owns the reconciled view for the process.
//
// Reload replaces the whole view. A newer Reload cancels an older one still
// in flight, and a run that finishes after a newer run was applied is
// discarded, so the view never goes back in time.
//
// Edits hold the view's write lock for their duration, including the
// persistence calls, so readers never see a half-applied edit.
type Service struct {
	source  Source
	store   RuleStore
	ids     *IDGenerator
	hub     WSHub
	mqtt    MQTTClient
	metrics Metrics
	audit   Auditor
	logger  Logger
	now     func() time.Time

	runMu  sync.Mutex
	seq    uint64
	cancel context.CancelFunc

	mu       sync.RWMutex
	groups   []*MappedRuleGroup
	applied  uint64
	loaded   bool
	loadedAt time.Time
}

// NewService creates a rule group service.
func NewService(source Source, store RuleStore) *Service {
	return &Service{
		source: source,
		store:  store,
		ids:    NewIDGenerator(),
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetHub sets the WebSocket hub for change broadcasts (may be nil).
func (s *Service) SetHub(hub WSHub) {
	s.hub = hub
}

// SetMQTT sets the MQTT client for controller notifications (may be nil).
func (s *Service) SetMQTT(client MQTTClient) {
	s.mqtt = client
}

// SetMetrics sets the telemetry sink (may be nil).
func (s *Service) SetMetrics(m Metrics) {
	s.metrics = m
}

// SetAudit sets the edit history recorder (may be nil).
func (s *Service) SetAudit(a Auditor) {
	s.audit = a
}

// Reload refreshes the controller source and rebuilds the view.
// Returns ErrSuperseded when a newer Reload made this one obsolete.
func (s *Service) Reload(ctx context.Context) error {
	seq, runCtx, cancel := s.begin(ctx)
	defer cancel()

	start := s.now()
	if err := s.source.RefreshCache(runCtx); err != nil {
		return s.runErr(ctx, runCtx, fmt.Errorf("refreshing controllers: %w", err))
	}
	list, err := s.source.ListControllers(runCtx)
	if err != nil {
		return s.runErr(ctx, runCtx, fmt.Errorf("listing controllers: %w", err))
	}
	if runCtx.Err() != nil {
		return s.runErr(ctx, runCtx, runCtx.Err())
	}

	controllers := make([]*controller.Controller, len(list))
	for i := range list {
		controllers[i] = &list[i]
	}
	groups := Reconcile(controllers, s.ids)

	s.mu.Lock()
	if seq < s.applied {
		s.mu.Unlock()
		return ErrSuperseded
	}
	s.groups = groups
	s.applied = seq
	s.loaded = true
	s.loadedAt = s.now()
	s.mu.Unlock()

	rules := 0
	for _, g := range groups {
		rules += g.RuleCount()
	}
	elapsed := s.now().Sub(start)
	s.logger.Info("rule groups reconciled",
		"controllers", len(controllers),
		"groups", len(groups),
		"rules", rules,
		"duration_ms", elapsed.Milliseconds(),
	)
	if s.hub != nil {
		s.hub.Broadcast(Channel, map[string]any{
			"action": "reloaded",
			"groups": len(groups),
		})
	}
	if s.metrics != nil {
		s.metrics.WritePoint("rulegroup_reconcile", nil, map[string]interface{}{
			"controllers": len(controllers),
			"groups":      len(groups),
			"rules":       rules,
			"duration_ms": elapsed.Milliseconds(),
		})
	}
	return nil
}

// begin registers a new run and cancels the previous one.
func (s *Service) begin(ctx context.Context) (uint64, context.Context, context.CancelFunc) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return s.seq, runCtx, cancel
}

// runErr reports ErrSuperseded when only the run's own context was cancelled.
func (s *Service) runErr(ctx, runCtx context.Context, err error) error {
	if ctx.Err() == nil && runCtx.Err() != nil {
		return ErrSuperseded
	}
	return err
}

// LoadedAt returns when the current view was built; zero before the first Reload.
func (s *Service) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Groups returns the summaries of all mapped rule groups.
func (s *Service) Groups() ([]GroupSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return nil, ErrNotLoaded
	}
	out := make([]GroupSummary, len(s.groups))
	for i, g := range s.groups {
		out[i] = g.Summary()
	}
	return out, nil
}

// Group returns the detail view of one mapped rule group.
func (s *Service) Group(id int) (GroupView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, err := s.group(id)
	if err != nil {
		return GroupView{}, err
	}
	return g.View(), nil
}

// Rule returns the detail view of one mapped rule.
func (s *Service) Rule(groupID, ruleID int) (RuleView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, m, err := s.lookup(groupID, ruleID)
	if err != nil {
		return RuleView{}, err
	}
	return m.View(), nil
}

// Deviants reports the instances that differ from the rule's canonical
// values, or from those values with p applied when p is not nil.
func (s *Service) Deviants(groupID, ruleID int, p *Patch) ([]FieldDeviants, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, m, err := s.lookup(groupID, ruleID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return m.Deviants(), nil
	}
	if err := p.Validate(m.Kind()); err != nil {
		return nil, err
	}
	return m.previewDeviants(*p), nil
}

// UpdateRule applies p to every instance of a mapped rule.
func (s *Service) UpdateRule(ctx context.Context, groupID, ruleID int, p Patch) (RuleView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, m, err := s.lookup(groupID, ruleID)
	if err != nil {
		return RuleView{}, err
	}
	if err := p.Validate(m.Kind()); err != nil {
		return RuleView{}, err
	}
	if p.IsEmpty() {
		return m.View(), nil
	}

	editErr := m.update(ctx, s.store, p)
	s.afterEdit(ctx, edit{action: "updated", group: g, rule: m, applied: m.instanceRules(), patch: &p, err: editErr})
	return m.View(), editErr
}

// DeleteRule removes a mapped rule from every controller carrying it.
func (s *Service) DeleteRule(ctx context.Context, groupID, ruleID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, m, err := s.lookup(groupID, ruleID)
	if err != nil {
		return err
	}
	removed, editErr := m.deleteAll(ctx, s.store)
	s.afterEdit(ctx, edit{action: "deleted", group: g, rule: m, removed: removed, err: editErr})
	return editErr
}

// DeleteRuleInstance removes a mapped rule from one controller.
func (s *Service) DeleteRuleInstance(ctx context.Context, groupID, ruleID int, controllerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, m, err := s.lookup(groupID, ruleID)
	if err != nil {
		return err
	}
	removed, editErr := m.deleteInstance(ctx, s.store, controllerID)
	if errors.Is(editErr, ErrInstanceNotFound) {
		return editErr
	}
	s.afterEdit(ctx, edit{action: "unassigned", group: g, rule: m, removed: []instanceRule{removed}, err: editErr})
	return editErr
}

// AssignRule copies a mapped rule onto another controller of its group.
func (s *Service) AssignRule(ctx context.Context, groupID, ruleID int, controllerID string) (RuleView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, m, err := s.lookup(groupID, ruleID)
	if err != nil {
		return RuleView{}, err
	}
	added, err := m.assign(ctx, s.store, controllerID)
	if err != nil {
		return RuleView{}, err
	}
	s.afterEdit(ctx, edit{action: "assigned", group: g, rule: m, applied: []instanceRule{added}})
	return m.View(), nil
}

func (s *Service) group(id int) (*MappedRuleGroup, error) {
	if !s.loaded {
		return nil, ErrNotLoaded
	}
	for _, g := range s.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: %d", ErrGroupNotFound, id)
}

func (s *Service) lookup(groupID, ruleID int) (*MappedRuleGroup, MappedRule, error) {
	g, err := s.group(groupID)
	if err != nil {
		return nil, nil, err
	}
	m := g.Rule(ruleID)
	if m == nil {
		return nil, nil, fmt.Errorf("%w: %d in group %d", ErrRuleNotFound, ruleID, groupID)
	}
	return g, m, nil
}

// edit describes a finished mutation for afterEdit.
type edit struct {
	action  string
	group   *MappedRuleGroup
	rule    MappedRule
	applied []instanceRule
	removed []instanceRule
	patch   *Patch
	err     error
}

// afterEdit propagates an edit to the controller cache and notifies
// listeners. The in-memory change stands even when persistence failed.
func (s *Service) afterEdit(ctx context.Context, e edit) {
	var controllerIDs []string
	ruleIDs := make(map[string]any, len(e.applied)+len(e.removed))

	for _, ir := range e.applied {
		controllerIDs = append(controllerIDs, ir.controllerID)
		ruleIDs[ir.controllerID] = ir.rule.Base().ID
		if err := s.source.ApplyRule(ctx, ir.controllerID, ir.rule); err != nil {
			s.logger.Warn("updating controller cache failed", "controller_id", ir.controllerID, "error", err)
		}
		s.notifyController(ir, e.action)
	}
	for _, ir := range e.removed {
		controllerIDs = append(controllerIDs, ir.controllerID)
		ruleIDs[ir.controllerID] = ir.rule.Base().ID
		if err := s.source.RemoveRule(ctx, ir.controllerID, ir.rule.Kind(), ir.rule.Base().ID); err != nil &&
			!errors.Is(err, controller.ErrRuleNotFound) {
			s.logger.Warn("updating controller cache failed", "controller_id", ir.controllerID, "error", err)
		}
		s.notifyController(ir, e.action)
	}

	kind := string(e.rule.Kind())
	if e.err != nil {
		s.logger.Error("rule edit partially failed",
			"action", e.action, "kind", kind, "group_id", e.group.ID, "rule_id", e.rule.MappedID(), "error", e.err)
	} else {
		s.logger.Info("rule edited",
			"action", e.action, "kind", kind, "group_id", e.group.ID, "rule_id", e.rule.MappedID(),
			"controllers", len(controllerIDs))
	}

	if s.hub != nil {
		s.hub.Broadcast(Channel, map[string]any{
			"action":      e.action,
			"group_id":    e.group.ID,
			"rule_id":     e.rule.MappedID(),
			"kind":        kind,
			"controllers": controllerIDs,
			"failed":      e.err != nil,
		})
	}
	if s.audit != nil {
		details := map[string]any{
			"group_id": e.group.ID,
			"rule_id":  e.rule.MappedID(),
			"kind":     kind,
			"rule_ids": ruleIDs,
		}
		if e.patch != nil {
			details["patch"] = e.patch
		}
		if e.err != nil {
			details["error"] = e.err.Error()
		}
		s.audit.Record(ctx, audit.Entry{
			Action:      e.action,
			EntityType:  audit.EntityRule,
			EntityID:    e.group.Name,
			Controllers: controllerIDs,
			Failed:      e.err != nil,
			Details:     details,
		})
	}
	if s.metrics != nil {
		s.metrics.WritePoint("rule_edit",
			map[string]string{"action": e.action, "kind": kind},
			map[string]interface{}{"controllers": len(controllerIDs), "failed": e.err != nil},
		)
	}
}

// notifyController tells one controller that a raw rule changed.
func (s *Service) notifyController(ir instanceRule, action string) {
	if s.mqtt == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"rule_id":   ir.rule.Base().ID,
		"kind":      ir.rule.Kind(),
		"action":    action,
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.logger.Error("encoding rule notification", "error", err)
		return
	}
	topic := RulesChangedTopic(ir.controllerID)
	if err := s.mqtt.Publish(topic, payload, 1, false); err != nil {
		s.logger.Warn("publishing rule notification failed", "topic", topic, "error", err)
	}
}

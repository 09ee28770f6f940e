package rulegroup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/controlhub-core/internal/controller"
)

// ControllerRef identifies a controller in views.
type ControllerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GroupSummary is the list view of a mapped rule group.
type GroupSummary struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	RuleGroupID   string          `json:"ruleGroupId"`
	AdditionalIDs []string        `json:"additionalIds,omitempty"`
	Controllers   []ControllerRef `json:"controllers"`
	RuleCount     int             `json:"ruleCount"`
}

// GroupView is the detail view of a mapped rule group.
type GroupView struct {
	GroupSummary
	Rules []RuleView `json:"rules"`
}

// RuleView is a detached copy of a mapped rule.
type RuleView struct {
	ID                int             `json:"id"`
	GroupID           int             `json:"groupId"`
	Kind              controller.Kind `json:"kind"`
	Sensor            string          `json:"sensor,omitempty"`
	Device            string          `json:"device,omitempty"`
	AdditionalDevices []string        `json:"additionalDevices,omitempty"`
	Rule              controller.Rule `json:"rule"`
	Instances         []InstanceView  `json:"instances"`
	Deviants          []FieldDeviants `json:"deviants,omitempty"`
}

// InstanceView is a detached copy of one controller's instance.
type InstanceView struct {
	Controller ControllerRef   `json:"controller"`
	Rule       controller.Rule `json:"rule"`
}

// UnmarshalJSON decodes the rule and every instance rule as Kind.
// InstanceView has no kind of its own and is decoded only through RuleView.
func (v *RuleView) UnmarshalJSON(data []byte) error {
	type plain RuleView
	var raw struct {
		plain
		Rule      json.RawMessage `json:"rule"`
		Instances []struct {
			Controller ControllerRef   `json:"controller"`
			Rule       json.RawMessage `json:"rule"`
		} `json:"instances"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := RuleView(raw.plain)
	if len(raw.Rule) > 0 {
		r, err := controller.DecodeRule(out.Kind, raw.Rule)
		if err != nil {
			return err
		}
		out.Rule = r
	}
	out.Instances = make([]InstanceView, len(raw.Instances))
	for i, in := range raw.Instances {
		r, err := controller.DecodeRule(out.Kind, in.Rule)
		if err != nil {
			return fmt.Errorf("instance %s: %w", in.Controller.ID, err)
		}
		out.Instances[i] = InstanceView{Controller: in.Controller, Rule: r}
	}
	*v = out
	return nil
}

func refOf(c *controller.Controller) ControllerRef {
	return ControllerRef{ID: c.ID, Name: c.Name}
}

// Summary builds the list view of g.
func (g *MappedRuleGroup) Summary() GroupSummary {
	s := GroupSummary{
		ID:            g.ID,
		Name:          g.Name,
		RuleGroupID:   g.RuleGroupID,
		AdditionalIDs: append([]string(nil), g.AdditionalIDs...),
		Controllers:   make([]ControllerRef, len(g.Controllers)),
		RuleCount:     g.RuleCount(),
	}
	for i, c := range g.Controllers {
		s.Controllers[i] = refOf(c)
	}
	return s
}

// View builds the detail view of g.
func (g *MappedRuleGroup) View() GroupView {
	v := GroupView{GroupSummary: g.Summary(), Rules: make([]RuleView, 0, g.RuleCount())}
	for _, m := range g.Rules() {
		v.Rules = append(v.Rules, m.View())
	}
	return v
}

// View implements MappedRule.
func (m *Mapped[R]) View() RuleView {
	v := RuleView{
		ID:                m.ID,
		Kind:              m.Kind(),
		Sensor:            m.SensorName(),
		Device:            m.DeviceName(),
		AdditionalDevices: m.AdditionalDeviceNames(),
		Rule:              cloneRule(m.Rule),
		Instances:         make([]InstanceView, len(m.Instances)),
		Deviants:          m.Deviants(),
	}
	if m.Group != nil {
		v.GroupID = m.Group.ID
	}
	for i, l := range m.Instances {
		v.Instances[i] = InstanceView{Controller: refOf(l.Controller), Rule: cloneRule(l.Rule)}
	}
	return v
}

func cloneRule[R controller.Rule](r R) R {
	return controller.Rebind(r, r.Base(), r.SensorRef(), r.DeviceRef())
}

// instanceRule is one persisted raw rule touched by an edit.
type instanceRule struct {
	controllerID string
	rule         controller.Rule
}

func (m *Mapped[R]) instanceRules() []instanceRule {
	out := make([]instanceRule, len(m.Instances))
	for i, l := range m.Instances {
		out[i] = instanceRule{controllerID: l.Controller.ID, rule: cloneRule(l.Rule)}
	}
	return out
}

// Kind-agnostic entry points used by Service.

func (m *Mapped[R]) update(ctx context.Context, store RuleStore, p Patch) error {
	return UpdateWithPatch(ctx, store, m, p)
}

func (m *Mapped[R]) deleteInstance(ctx context.Context, store RuleStore, controllerID string) (instanceRule, error) {
	l := m.Instance(controllerID)
	if l == nil {
		return instanceRule{}, fmt.Errorf("%w: %s", ErrInstanceNotFound, controllerID)
	}
	ref := instanceRule{controllerID: controllerID, rule: cloneRule(l.Rule)}
	return ref, DeleteInstance(ctx, store, m, controllerID)
}

func (m *Mapped[R]) deleteAll(ctx context.Context, store RuleStore) ([]instanceRule, error) {
	refs := m.instanceRules()
	return refs, DeleteMapped(ctx, store, m)
}

func (m *Mapped[R]) assign(ctx context.Context, store RuleStore, controllerID string) (instanceRule, error) {
	l, err := Assign(ctx, store, m, controllerID)
	if err != nil {
		return instanceRule{}, err
	}
	return instanceRule{controllerID: controllerID, rule: cloneRule(l.Rule)}, nil
}

func (m *Mapped[R]) previewDeviants(p Patch) []FieldDeviants {
	return m.DeviantsAgainst(applyPatch(p, m.Rule))
}

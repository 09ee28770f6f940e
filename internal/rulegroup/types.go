package rulegroup

import (
	"context"
	"slices"

	"github.com/nerrad567/controlhub-core/internal/controller"
)

// MappedRuleGroup merges same-named rule groups of structurally identical
// controllers.
type MappedRuleGroup struct {
	ID   int
	Name string

	// RuleGroupID is the first raw rule group seen; AdditionalIDs are the
	// raw rule groups of the other member controllers.
	RuleGroupID   string
	AdditionalIDs []string

	// Controllers in first-seen order. All share the layout of Controllers[0].
	Controllers []*controller.Controller

	SensorTriggers []*Mapped[controller.SensorTrigger]
	Timers         []*Mapped[controller.Timer]
	Schedules      []*Mapped[controller.Schedule]
	Alerts         []*Mapped[controller.Alert]
}

// AllIDs returns the canonical rule group ID followed by the additional ones.
func (g *MappedRuleGroup) AllIDs() []string {
	ids := make([]string, 0, 1+len(g.AdditionalIDs))
	ids = append(ids, g.RuleGroupID)
	return append(ids, g.AdditionalIDs...)
}

// HasController reports whether the controller is a member of the group.
func (g *MappedRuleGroup) HasController(id string) bool {
	return g.Controller(id) != nil
}

// Controller returns the member controller with the given ID, or nil.
func (g *MappedRuleGroup) Controller(id string) *controller.Controller {
	for _, c := range g.Controllers {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Rules returns every mapped rule in the group, kinds in reconciliation order.
func (g *MappedRuleGroup) Rules() []MappedRule {
	out := make([]MappedRule, 0, g.RuleCount())
	for _, m := range g.SensorTriggers {
		out = append(out, m)
	}
	for _, m := range g.Timers {
		out = append(out, m)
	}
	for _, m := range g.Schedules {
		out = append(out, m)
	}
	for _, m := range g.Alerts {
		out = append(out, m)
	}
	return out
}

// Rule finds a mapped rule of any kind by ID, or nil.
func (g *MappedRuleGroup) Rule(id int) MappedRule {
	for _, m := range g.Rules() {
		if m.MappedID() == id {
			return m
		}
	}
	return nil
}

// RuleCount returns the number of mapped rules across all kinds.
func (g *MappedRuleGroup) RuleCount() int {
	return len(g.SensorTriggers) + len(g.Timers) + len(g.Schedules) + len(g.Alerts)
}

// ruleGroupIDOn returns the ID of the group's raw rule group on c.
func (g *MappedRuleGroup) ruleGroupIDOn(c *controller.Controller) (string, bool) {
	ids := g.AllIDs()
	for _, rg := range c.RuleGroups {
		if rg.Name == g.Name && slices.Contains(ids, rg.ID) {
			return rg.ID, true
		}
	}
	return "", false
}

// Mapped is one logical rule shared by several controllers.
//
// Rule holds the canonical values, taken from the first instance seen.
// Instances has exactly one entry per controller in Controllers, in the
// same order.
type Mapped[R controller.Rule] struct {
	ID   int
	Rule R

	// Resolved on the first controller; other controllers match by name.
	Sensor            *controller.Sensor
	Device            *controller.Device
	AdditionalDevices []controller.Device

	Controllers []*controller.Controller
	Instances   []*Linked[R]

	Group *MappedRuleGroup

	additionalNames []string // sorted
}

// Linked is the per-controller instance of a mapped rule.
type Linked[R controller.Rule] struct {
	Rule       R
	Controller *controller.Controller
	Group      *MappedRuleGroup
}

// toLinked wraps a raw rule as the instance owned by c.
func toLinked[R controller.Rule](raw R, c *controller.Controller, g *MappedRuleGroup) *Linked[R] {
	return &Linked[R]{Rule: raw, Controller: c, Group: g}
}

// MappedRule is the kind-agnostic view of a Mapped rule.
type MappedRule interface {
	MappedID() int
	Kind() controller.Kind
	ControllerIDs() []string
	Len() int
	HasController(id string) bool
	Deviants() []FieldDeviants
	View() RuleView

	update(ctx context.Context, store RuleStore, p Patch) error
	deleteInstance(ctx context.Context, store RuleStore, controllerID string) (instanceRule, error)
	deleteAll(ctx context.Context, store RuleStore) ([]instanceRule, error)
	assign(ctx context.Context, store RuleStore, controllerID string) (instanceRule, error)
	instanceRules() []instanceRule
	previewDeviants(p Patch) []FieldDeviants
}

// MappedID implements MappedRule.
func (m *Mapped[R]) MappedID() int { return m.ID }

// Kind implements MappedRule.
func (m *Mapped[R]) Kind() controller.Kind { return m.Rule.Kind() }

// Len implements MappedRule.
func (m *Mapped[R]) Len() int { return len(m.Instances) }

// ControllerIDs implements MappedRule.
func (m *Mapped[R]) ControllerIDs() []string {
	ids := make([]string, len(m.Controllers))
	for i, c := range m.Controllers {
		ids[i] = c.ID
	}
	return ids
}

// HasController implements MappedRule.
func (m *Mapped[R]) HasController(id string) bool {
	return m.instanceIndex(id) >= 0
}

// Instance returns the instance on the given controller, or nil.
func (m *Mapped[R]) Instance(controllerID string) *Linked[R] {
	if i := m.instanceIndex(controllerID); i >= 0 {
		return m.Instances[i]
	}
	return nil
}

func (m *Mapped[R]) instanceIndex(controllerID string) int {
	for i, l := range m.Instances {
		if l.Controller.ID == controllerID {
			return i
		}
	}
	return -1
}

// attach appends an instance for c, keeping Controllers and Instances aligned.
func (m *Mapped[R]) attach(raw R, c *controller.Controller) *Linked[R] {
	l := toLinked(raw, c, m.Group)
	m.Controllers = append(m.Controllers, c)
	m.Instances = append(m.Instances, l)
	return l
}

// detach removes the instance at index i.
func (m *Mapped[R]) detach(i int) {
	m.Controllers = slices.Delete(m.Controllers, i, i+1)
	m.Instances = slices.Delete(m.Instances, i, i+1)
}

// SensorName returns the name of the rule's sensor, or "".
func (m *Mapped[R]) SensorName() string {
	if m.Sensor == nil {
		return ""
	}
	return m.Sensor.Name
}

// DeviceName returns the name of the rule's device, or "".
func (m *Mapped[R]) DeviceName() string {
	if m.Device == nil {
		return ""
	}
	return m.Device.Name
}

// AdditionalDeviceNames returns the sorted names of the additional devices.
func (m *Mapped[R]) AdditionalDeviceNames() []string {
	return slices.Clone(m.additionalNames)
}

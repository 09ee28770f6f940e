package rulegroup

import (
	"slices"
	"sort"

	"github.com/nerrad567/controlhub-core/internal/controller"
)

// Reconcile groups controllers and merges their equivalent rules.
//
// Groups are returned in first-seen order; within a group, mapped rules of
// each kind keep the order their first instance was seen in. The input
// controllers are referenced, not copied, by the result.
func Reconcile(controllers []*controller.Controller, gen *IDGenerator) []*MappedRuleGroup {
	if gen == nil {
		gen = NewIDGenerator()
	}

	var groups []*MappedRuleGroup
	for _, c := range controllers {
		if c == nil {
			continue
		}
		for _, rg := range c.RuleGroups {
			groups = placeRuleGroup(groups, c, rg, gen)
		}
	}

	for _, g := range groups {
		ids := make(map[string]bool)
		for _, id := range g.AllIDs() {
			ids[id] = true
		}
		for _, c := range g.Controllers {
			g.SensorTriggers = mergeRules(g, g.SensorTriggers, c, c.SensorTriggers, ids, gen)
			g.Timers = mergeRules(g, g.Timers, c, c.Timers, ids, gen)
			g.Schedules = mergeRules(g, g.Schedules, c, c.Schedules, ids, gen)
			g.Alerts = mergeRules(g, g.Alerts, c, c.Alerts, ids, gen)
		}
	}
	return groups
}

// placeRuleGroup adds c's raw rule group to a matching mapped group or
// starts a new one.
func placeRuleGroup(groups []*MappedRuleGroup, c *controller.Controller, rg controller.RuleGroup, gen *IDGenerator) []*MappedRuleGroup {
	for _, g := range groups {
		if g.Name != rg.Name || !controller.SameConfig(g.Controllers[0], c) {
			continue
		}
		if !g.HasController(c.ID) {
			g.Controllers = append(g.Controllers, c)
		}
		if rg.ID != g.RuleGroupID && !slices.Contains(g.AdditionalIDs, rg.ID) {
			g.AdditionalIDs = append(g.AdditionalIDs, rg.ID)
		}
		return groups
	}
	return append(groups, &MappedRuleGroup{
		ID:          gen.Next(),
		Name:        rg.Name,
		RuleGroupID: rg.ID,
		Controllers: []*controller.Controller{c},
	})
}

// resolved is a raw rule with its references looked up on its controller.
type resolved struct {
	sensor     *controller.Sensor
	device     *controller.Device
	additional []controller.Device
	names      []string // sorted additional device names
}

// resolve looks up the rule's sensor, device and additional devices on c.
// ok is false when a reference the kind requires does not resolve.
// Additional devices that no longer exist are dropped.
func resolve(r controller.Rule, c *controller.Controller) (resolved, bool) {
	var res resolved
	if usesSensor(r.Kind()) {
		if res.sensor = c.FindSensor(r.SensorRef()); res.sensor == nil {
			return res, false
		}
	}
	if usesDevice(r.Kind()) {
		if res.device = c.FindDevice(r.DeviceRef()); res.device == nil {
			return res, false
		}
	}
	for _, id := range r.Base().AdditionalDeviceIDs {
		if d := c.FindDevice(id); d != nil {
			res.additional = append(res.additional, *d)
			res.names = append(res.names, d.Name)
		}
	}
	sort.Strings(res.names)
	return res, true
}

func usesSensor(k controller.Kind) bool {
	return k == controller.KindSensorTrigger || k == controller.KindAlert
}

func usesDevice(k controller.Kind) bool {
	return k == controller.KindSensorTrigger || k == controller.KindTimer || k == controller.KindSchedule
}

// mergeRules folds c's raw rules of one kind into the group's mapped rules.
func mergeRules[R controller.Rule](g *MappedRuleGroup, mapped []*Mapped[R], c *controller.Controller, raws []R, ids map[string]bool, gen *IDGenerator) []*Mapped[R] {
	for _, raw := range raws {
		rgID := raw.Base().RuleGroupID
		if !ids[rgID] {
			continue
		}
		// Same name only: a colliding ID from a differently named group is not ours.
		if rg := c.FindRuleGroup(rgID); rg == nil || rg.Name != g.Name {
			continue
		}

		res, ok := resolve(raw, c)
		if !ok {
			continue
		}

		if m := findMatch(mapped, raw, res, c.ID); m != nil {
			m.attach(raw, c)
			continue
		}

		m := &Mapped[R]{
			ID:                gen.Next(),
			Rule:              raw,
			Sensor:            res.sensor,
			Device:            res.device,
			AdditionalDevices: res.additional,
			Group:             g,
			additionalNames:   res.names,
		}
		m.attach(raw, c)
		mapped = append(mapped, m)
	}
	return mapped
}

// findMatch returns the first mapped rule equivalent to raw that does not
// already carry an instance on controllerID.
func findMatch[R controller.Rule](mapped []*Mapped[R], raw R, res resolved, controllerID string) *Mapped[R] {
	key := raw.EquivalenceKey()
	for _, m := range mapped {
		if m.SensorName() != nameOfSensor(res.sensor) || m.DeviceName() != nameOfDevice(res.device) {
			continue
		}
		if m.Rule.EquivalenceKey() != key {
			continue
		}
		if !slices.Equal(m.additionalNames, res.names) {
			continue
		}
		if m.HasController(controllerID) {
			continue
		}
		return m
	}
	return nil
}

func nameOfSensor(s *controller.Sensor) string {
	if s == nil {
		return ""
	}
	return s.Name
}

func nameOfDevice(d *controller.Device) string {
	if d == nil {
		return ""
	}
	return d.Name
}

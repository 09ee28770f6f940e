package rulegroup

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/nerrad567/controlhub-core/internal/controller"
)

// RuleStore persists per-controller rule changes, normally via the
// controller REST backend. Each call affects exactly one raw rule.
type RuleStore interface {
	// CreateRule stores a new rule and returns it with its assigned ID.
	CreateRule(ctx context.Context, controllerID string, rule controller.Rule) (controller.Rule, error)
	SaveRule(ctx context.Context, controllerID string, rule controller.Rule) error
	DeleteRule(ctx context.Context, controllerID string, kind controller.Kind, ruleID string) error
}

// Update applies fn to the canonical values and every instance, then saves
// each instance. Changes are applied in memory before persisting and are
// kept even when a save fails; all failures are returned joined.
func Update[R controller.Rule](ctx context.Context, store RuleStore, m *Mapped[R], fn func(R) R) error {
	m.Rule = fn(m.Rule)

	var errs []error
	for _, l := range m.Instances {
		l.Rule = fn(l.Rule)
		_ = l.Controller.PutRule(l.Rule) //nolint:errcheck // kind fixed by R
		if err := store.SaveRule(ctx, l.Controller.ID, l.Rule); err != nil {
			errs = append(errs, fmt.Errorf("saving %s %s on %s: %w", l.Rule.Kind(), l.Rule.Base().ID, l.Controller.Name, err))
		}
	}
	return errors.Join(errs...)
}

// UpdateWithPatch validates p and applies it with Update.
func UpdateWithPatch[R controller.Rule](ctx context.Context, store RuleStore, m *Mapped[R], p Patch) error {
	if err := p.Validate(m.Kind()); err != nil {
		return err
	}
	return Update(ctx, store, m, func(r R) R { return applyPatch(p, r) })
}

// DeleteInstance removes the rule from one controller. Removing the last
// instance removes the mapped rule from its group.
func DeleteInstance[R controller.Rule](ctx context.Context, store RuleStore, m *Mapped[R], controllerID string) error {
	i := m.instanceIndex(controllerID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, controllerID)
	}
	l := m.Instances[i]
	m.detach(i)
	if m.Len() == 0 {
		removeMapped(m)
	}
	return deleteLinked(ctx, store, l)
}

// DeleteMapped removes the rule from every controller and from its group.
func DeleteMapped[R controller.Rule](ctx context.Context, store RuleStore, m *Mapped[R]) error {
	instances := m.Instances
	m.Instances = nil
	m.Controllers = nil
	removeMapped(m)

	var errs []error
	for _, l := range instances {
		if err := deleteLinked(ctx, store, l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func deleteLinked[R controller.Rule](ctx context.Context, store RuleStore, l *Linked[R]) error {
	kind, id := l.Rule.Kind(), l.Rule.Base().ID
	// A raw rule already gone from the snapshot is still deleted in the store.
	if err := l.Controller.RemoveRule(kind, id); err != nil && !errors.Is(err, controller.ErrRuleNotFound) {
		return fmt.Errorf("removing %s %s on %s: %w", kind, id, l.Controller.Name, err)
	}
	if err := store.DeleteRule(ctx, l.Controller.ID, kind, id); err != nil {
		return fmt.Errorf("deleting %s %s on %s: %w", kind, id, l.Controller.Name, err)
	}
	return nil
}

// Assign copies the mapped rule onto another controller of its group.
// The sensor, device, additional devices and rule group are resolved on
// the target by name. The rule is created in the store first, since the
// store assigns its ID; nothing changes in memory if that fails.
func Assign[R controller.Rule](ctx context.Context, store RuleStore, m *Mapped[R], controllerID string) (*Linked[R], error) {
	g := m.Group
	c := g.Controller(controllerID)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrControllerNotInGroup, controllerID)
	}
	if m.HasController(controllerID) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyAssigned, c.Name)
	}

	rgID, ok := g.ruleGroupIDOn(c)
	if !ok {
		return nil, fmt.Errorf("%w: rule group %q on %s", ErrUnresolved, g.Name, c.Name)
	}

	var sensorID, deviceID string
	if m.Sensor != nil {
		s := c.FindSensorByName(m.Sensor.Name)
		if s == nil {
			return nil, fmt.Errorf("%w: sensor %q on %s", ErrUnresolved, m.Sensor.Name, c.Name)
		}
		sensorID = s.ID
	}
	if m.Device != nil {
		d := c.FindDeviceByName(m.Device.Name)
		if d == nil {
			return nil, fmt.Errorf("%w: device %q on %s", ErrUnresolved, m.Device.Name, c.Name)
		}
		deviceID = d.ID
	}
	var extra []string
	for _, ad := range m.AdditionalDevices {
		d := c.FindDeviceByName(ad.Name)
		if d == nil {
			return nil, fmt.Errorf("%w: device %q on %s", ErrUnresolved, ad.Name, c.Name)
		}
		extra = append(extra, d.ID)
	}

	base := controller.RuleBase{
		RuleGroupID:         rgID,
		AdditionalDeviceIDs: extra,
		IsEnabled:           m.Rule.Base().IsEnabled,
	}
	raw := controller.Rebind(m.Rule, base, sensorID, deviceID)

	created, err := store.CreateRule(ctx, c.ID, raw)
	if err != nil {
		return nil, fmt.Errorf("creating %s on %s: %w", raw.Kind(), c.Name, err)
	}
	typed, ok := created.(R)
	if !ok {
		return nil, fmt.Errorf("%w: store returned %T", controller.ErrUnknownRuleKind, created)
	}

	_ = c.PutRule(typed) //nolint:errcheck // kind fixed by R
	return m.attach(typed, c), nil
}

// removeMapped drops m from its group's list for its kind.
func removeMapped[R controller.Rule](m *Mapped[R]) {
	g := m.Group
	if g == nil {
		return
	}
	switch v := any(m).(type) {
	case *Mapped[controller.SensorTrigger]:
		g.SensorTriggers = slices.DeleteFunc(g.SensorTriggers, func(x *Mapped[controller.SensorTrigger]) bool { return x == v })
	case *Mapped[controller.Timer]:
		g.Timers = slices.DeleteFunc(g.Timers, func(x *Mapped[controller.Timer]) bool { return x == v })
	case *Mapped[controller.Schedule]:
		g.Schedules = slices.DeleteFunc(g.Schedules, func(x *Mapped[controller.Schedule]) bool { return x == v })
	case *Mapped[controller.Alert]:
		g.Alerts = slices.DeleteFunc(g.Alerts, func(x *Mapped[controller.Alert]) bool { return x == v })
	}
}

package rulegroup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/controlhub-core/internal/controller"
)

// newController builds a controller with one module (sensors Temperature
// and Humidity, devices Fan and Mister) and one rule group "Zone 1".
// IDs are prefixed with id so that controllers never share raw IDs.
func newController(id string) *controller.Controller {
	return &controller.Controller{
		ID:   id,
		Name: id,
		Modules: []controller.Module{{
			ID:          id + "-m1",
			ProductType: 10,
			Sensors: []controller.Sensor{
				{ID: id + "-s-temp", Name: "Temperature", ParticleSensor: 1},
				{ID: id + "-s-hum", Name: "Humidity", ParticleSensor: 2},
			},
			Devices: []controller.Device{
				{ID: id + "-d-fan", Name: "Fan", DeviceType: 3},
				{ID: id + "-d-mist", Name: "Mister", DeviceType: 4},
			},
		}},
		RuleGroups: []controller.RuleGroup{{ID: id + "-rg1", Name: "Zone 1"}},
	}
}

func alert(c *controller.Controller, ruleID string, threshold float64, minimum controller.Duration) controller.Alert {
	return controller.Alert{
		RuleBase:        controller.RuleBase{ID: ruleID, RuleGroupID: c.RuleGroups[0].ID, IsEnabled: true},
		SensorID:        c.ID + "-s-hum",
		Comparison:      controller.Above,
		Threshold:       threshold,
		MinimumDuration: minimum,
	}
}

func trigger(c *controller.Controller, ruleID string, value float64) controller.SensorTrigger {
	return controller.SensorTrigger{
		RuleBase:        controller.RuleBase{ID: ruleID, RuleGroupID: c.RuleGroups[0].ID, IsEnabled: true},
		SensorID:        c.ID + "-s-temp",
		DeviceID:        c.ID + "-d-fan",
		Comparison:      controller.Above,
		Value:           value,
		ResetThreshold:  value - 2,
		MinimumDuration: 5 * controller.Minute,
		ActionDuration:  10 * controller.Minute,
	}
}

func timer(c *controller.Controller, ruleID string, start controller.TimeOfDay) controller.Timer {
	return controller.Timer{
		RuleBase:  controller.RuleBase{ID: ruleID, RuleGroupID: c.RuleGroups[0].ID, IsEnabled: true},
		DeviceID:  c.ID + "-d-mist",
		StartTime: start,
		Duration:  2 * controller.Minute,
		Frequency: controller.Hour,
	}
}

// fakeStore records RuleStore calls and fails for listed controllers.
type fakeStore struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
	created []string
	failOn  map[string]bool
	nextID  int
}

var errStoreDown = errors.New("store down")

func (f *fakeStore) fail(controllerID string) error {
	if f.failOn[controllerID] {
		return errStoreDown
	}
	return nil
}

func (f *fakeStore) CreateRule(_ context.Context, controllerID string, rule controller.Rule) (controller.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail(controllerID); err != nil {
		return nil, err
	}
	f.nextID++
	id := fmt.Sprintf("%s-new%d", controllerID, f.nextID)
	f.created = append(f.created, id)
	base := rule.Base()
	base.ID = id
	return controller.Rebind(rule, base, rule.SensorRef(), rule.DeviceRef()), nil
}

func (f *fakeStore) SaveRule(_ context.Context, controllerID string, rule controller.Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, controllerID+"/"+rule.Base().ID)
	return f.fail(controllerID)
}

func (f *fakeStore) DeleteRule(_ context.Context, controllerID string, _ controller.Kind, ruleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, controllerID+"/"+ruleID)
	return f.fail(controllerID)
}

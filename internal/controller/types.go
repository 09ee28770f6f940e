package controller

import "time"

// Controller is a physical environmental-control unit and everything the
// backend reports about it.
type Controller struct {
	// Identity
	ID           string `json:"id"`
	Name         string `json:"name"`
	SerialNumber string `json:"serialNumber,omitempty"`

	// Hardware tree (ordered as reported by the backend)
	Modules []Module `json:"modules"`

	// Rule groups defined on this controller
	RuleGroups []RuleGroup `json:"ruleGroups"`

	// Raw rules; each references one of RuleGroups by RuleGroupID
	SensorTriggers []SensorTrigger `json:"sensorTriggers"`
	Timers         []Timer         `json:"timers"`
	Schedules      []Schedule      `json:"schedules"`
	Alerts         []Alert         `json:"alerts"`

	// FetchedAt is when this copy was pulled from the directory.
	FetchedAt time.Time `json:"fetchedAt"`
}

// Module is a hardware expansion unit attached to a controller.
type Module struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ProductType int      `json:"productType"`
	Sensors     []Sensor `json:"sensors"`
	Devices     []Device `json:"devices"`
}

// Sensor is a measuring input hosted by a module.
type Sensor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ParticleSensor int    `json:"particleSensor"`
}

// Device is a switchable output hosted by a module.
type Device struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DeviceType int    `json:"deviceType"`
}

// RuleGroup is a named collection of rules scoped to one controller.
type RuleGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Sensors returns every sensor on the controller, in module order.
func (c *Controller) Sensors() []Sensor {
	var out []Sensor
	for i := range c.Modules {
		out = append(out, c.Modules[i].Sensors...)
	}
	return out
}

// Devices returns every device on the controller, in module order.
func (c *Controller) Devices() []Device {
	var out []Device
	for i := range c.Modules {
		out = append(out, c.Modules[i].Devices...)
	}
	return out
}

// FindSensor resolves a sensor by ID. Returns nil if absent.
func (c *Controller) FindSensor(id string) *Sensor {
	if id == "" {
		return nil
	}
	for i := range c.Modules {
		for j := range c.Modules[i].Sensors {
			if c.Modules[i].Sensors[j].ID == id {
				return &c.Modules[i].Sensors[j]
			}
		}
	}
	return nil
}

// FindDevice resolves a device by ID. Returns nil if absent.
func (c *Controller) FindDevice(id string) *Device {
	if id == "" {
		return nil
	}
	for i := range c.Modules {
		for j := range c.Modules[i].Devices {
			if c.Modules[i].Devices[j].ID == id {
				return &c.Modules[i].Devices[j]
			}
		}
	}
	return nil
}

// FindSensorByName resolves a sensor by its display name.
func (c *Controller) FindSensorByName(name string) *Sensor {
	for i := range c.Modules {
		for j := range c.Modules[i].Sensors {
			if c.Modules[i].Sensors[j].Name == name {
				return &c.Modules[i].Sensors[j]
			}
		}
	}
	return nil
}

// FindDeviceByName resolves a device by its display name.
func (c *Controller) FindDeviceByName(name string) *Device {
	for i := range c.Modules {
		for j := range c.Modules[i].Devices {
			if c.Modules[i].Devices[j].Name == name {
				return &c.Modules[i].Devices[j]
			}
		}
	}
	return nil
}

// FindRuleGroup returns the rule group with the given ID, or nil.
func (c *Controller) FindRuleGroup(id string) *RuleGroup {
	for i := range c.RuleGroups {
		if c.RuleGroups[i].ID == id {
			return &c.RuleGroups[i]
		}
	}
	return nil
}

// RuleCount returns the total number of raw rules on the controller.
func (c *Controller) RuleCount() int {
	return len(c.SensorTriggers) + len(c.Timers) + len(c.Schedules) + len(c.Alerts)
}

// DeepCopy creates a complete independent copy of the Controller.
// All nested slices are cloned so modifications to the copy do not
// affect the original. This is essential for cache isolation.
func (c *Controller) DeepCopy() *Controller {
	if c == nil {
		return nil
	}

	cpy := *c

	if c.Modules != nil {
		cpy.Modules = make([]Module, len(c.Modules))
		for i, m := range c.Modules {
			cpy.Modules[i] = m
			cpy.Modules[i].Sensors = cloneSlice(m.Sensors)
			cpy.Modules[i].Devices = cloneSlice(m.Devices)
		}
	}

	cpy.RuleGroups = cloneSlice(c.RuleGroups)

	if c.SensorTriggers != nil {
		cpy.SensorTriggers = make([]SensorTrigger, len(c.SensorTriggers))
		for i, r := range c.SensorTriggers {
			r.RuleBase = r.RuleBase.clone()
			cpy.SensorTriggers[i] = r
		}
	}
	if c.Timers != nil {
		cpy.Timers = make([]Timer, len(c.Timers))
		for i, r := range c.Timers {
			r.RuleBase = r.RuleBase.clone()
			cpy.Timers[i] = r
		}
	}
	if c.Schedules != nil {
		cpy.Schedules = make([]Schedule, len(c.Schedules))
		for i, r := range c.Schedules {
			r.RuleBase = r.RuleBase.clone()
			cpy.Schedules[i] = r
		}
	}
	if c.Alerts != nil {
		cpy.Alerts = make([]Alert, len(c.Alerts))
		for i, r := range c.Alerts {
			r.RuleBase = r.RuleBase.clone()
			cpy.Alerts[i] = r
		}
	}

	return &cpy
}

// cloneSlice returns an independent copy of a slice of plain values.
func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	cpy := make([]T, len(s))
	copy(cpy, s)
	return cpy
}

package controller

import "testing"

func TestSameConfig_Reflexive(t *testing.T) {
	c := testController("a", "A")
	if !SameConfig(&c, &c) {
		t.Error("SameConfig(c, c) = false, want true")
	}
}

func TestSameConfig_OrderIndependent(t *testing.T) {
	a := testController("a", "A")
	a.Modules = append(a.Modules, Module{
		ID: "a-m2", ProductType: 5,
		Sensors: []Sensor{{ID: "a-s-co2", Name: "CO2", ParticleSensor: 7}},
		Devices: []Device{{ID: "a-d-vent", Name: "Vent", DeviceType: 1}},
	})

	// Same hardware, reported in reverse order everywhere.
	b := a.DeepCopy()
	b.Modules[0], b.Modules[1] = b.Modules[1], b.Modules[0]
	m := &b.Modules[1]
	m.Sensors[0], m.Sensors[1] = m.Sensors[1], m.Sensors[0]
	m.Devices[0], m.Devices[1] = m.Devices[1], m.Devices[0]

	if !SameConfig(&a, b) {
		t.Error("SameConfig() = false for reordered copy, want true")
	}
	if !SameConfig(b, &a) {
		t.Error("SameConfig() not symmetric")
	}
}

func TestSameConfig_DoesNotMutate(t *testing.T) {
	a := testController("a", "A")
	a.Modules[0].Sensors[0], a.Modules[0].Sensors[1] = a.Modules[0].Sensors[1], a.Modules[0].Sensors[0]
	b := testController("b", "B")

	first := a.Modules[0].Sensors[0].Name
	SameConfig(&a, &b)
	if got := a.Modules[0].Sensors[0].Name; got != first {
		t.Errorf("first sensor after SameConfig = %q, want %q", got, first)
	}
}

func TestSameConfig_Mismatch(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Controller)
	}{
		{"extra module", func(c *Controller) {
			c.Modules = append(c.Modules, Module{ID: "x", ProductType: 10})
		}},
		{"product type", func(c *Controller) { c.Modules[0].ProductType = 11 }},
		{"sensor count", func(c *Controller) { c.Modules[0].Sensors = c.Modules[0].Sensors[:1] }},
		{"device count", func(c *Controller) { c.Modules[0].Devices = c.Modules[0].Devices[:1] }},
		{"sensor name", func(c *Controller) { c.Modules[0].Sensors[1].Name = "Soil" }},
		{"device name", func(c *Controller) { c.Modules[0].Devices[0].Name = "Heater" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testController("a", "A")
			b := testController("b", "B")
			tt.modify(&b)
			if SameConfig(&a, &b) {
				t.Error("SameConfig() = true, want false")
			}
		})
	}
}

func TestSameConfig_IgnoresIdentity(t *testing.T) {
	a := testController("a", "A")
	b := testController("b", "Completely different name")
	b.SerialNumber = "SN-9"
	b.Modules[0].Name = "Renamed module"
	if !SameConfig(&a, &b) {
		t.Error("SameConfig() = false, want true for same hardware under other IDs")
	}
}

func TestSameConfig_Nil(t *testing.T) {
	a := testController("a", "A")
	if SameConfig(&a, nil) {
		t.Error("SameConfig(c, nil) = true, want false")
	}
	if !SameConfig(nil, nil) {
		t.Error("SameConfig(nil, nil) = false, want true")
	}
}

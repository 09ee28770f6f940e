package controller

import (
	"errors"
	"testing"
)

func TestEquivalenceKey(t *testing.T) {
	base := Alert{Comparison: Above, Threshold: 80, MinimumDuration: 5 * Minute}

	other := base
	other.MinimumDuration = 10 * Minute
	other.SensorID = "elsewhere"
	if base.EquivalenceKey() != other.EquivalenceKey() {
		t.Error("alert key should ignore sensor and minimum duration")
	}

	other.Threshold = 85
	if base.EquivalenceKey() == other.EquivalenceKey() {
		t.Error("alert key should include threshold")
	}

	trig := SensorTrigger{Comparison: Below, Value: 10, ResetThreshold: 12}
	trig2 := trig
	trig2.ActionDuration = Hour
	if trig.EquivalenceKey() != trig2.EquivalenceKey() {
		t.Error("trigger key should ignore action duration")
	}
	trig2.ResetThreshold = 13
	if trig.EquivalenceKey() == trig2.EquivalenceKey() {
		t.Error("trigger key should include reset threshold")
	}

	tm := Timer{StartTime: At(6, 0), Duration: 2 * Minute, Frequency: Hour}
	tm2 := tm
	tm2.DeviceID = "elsewhere"
	tm2.IsEnabled = true
	if tm.EquivalenceKey() != tm2.EquivalenceKey() {
		t.Error("timer key should ignore device and enabled")
	}
	tm2.Duration = 30 * Minute
	if tm.EquivalenceKey() == tm2.EquivalenceKey() {
		t.Error("timer key should include run duration")
	}
	tm2.Duration, tm2.Frequency = tm.Duration, 2*Hour
	if tm.EquivalenceKey() == tm2.EquivalenceKey() {
		t.Error("timer key should include frequency")
	}

	sched := Schedule{DaysOfWeek: Workdays, StartTime: At(8, 0), EndTime: At(17, 0)}
	sched2 := sched
	sched2.DaysOfWeek = AllDays
	if sched.EquivalenceKey() == sched2.EquivalenceKey() {
		t.Error("schedule key should include days of week")
	}
}

func TestRebind(t *testing.T) {
	src := SensorTrigger{
		RuleBase:   RuleBase{ID: "st1", RuleGroupID: "rg-a", IsEnabled: true},
		SensorID:   "s-a",
		DeviceID:   "d-a",
		Comparison: Above,
		Value:      30,
	}
	extra := []string{"d-x"}
	got := Rebind(src, RuleBase{RuleGroupID: "rg-b", AdditionalDeviceIDs: extra, IsEnabled: true}, "s-b", "d-b")

	if got.ID != "" || got.RuleGroupID != "rg-b" {
		t.Errorf("base = %+v, want new base", got.RuleBase)
	}
	if got.SensorID != "s-b" || got.DeviceID != "d-b" {
		t.Errorf("refs = %s/%s, want s-b/d-b", got.SensorID, got.DeviceID)
	}
	if got.Value != 30 || got.Comparison != Above {
		t.Error("Rebind() should keep the kind-specific fields")
	}

	extra[0] = "changed"
	if got.AdditionalDeviceIDs[0] != "d-x" {
		t.Error("Rebind() should copy AdditionalDeviceIDs")
	}
	if src.SensorID != "s-a" {
		t.Error("Rebind() modified its input")
	}
}

func TestController_PutRule(t *testing.T) {
	c := testController("a", "A")

	updated := c.Alerts[0]
	updated.Threshold = 90
	if err := c.PutRule(updated); err != nil {
		t.Fatalf("PutRule() error = %v", err)
	}
	if len(c.Alerts) != 1 || c.Alerts[0].Threshold != 90 {
		t.Errorf("Alerts = %+v, want one alert at 90", c.Alerts)
	}

	added := Timer{RuleBase: RuleBase{ID: "a-t2", RuleGroupID: "a-rg1"}, DeviceID: "a-d-fan"}
	if err := c.PutRule(added); err != nil {
		t.Fatalf("PutRule() error = %v", err)
	}
	if len(c.Timers) != 2 {
		t.Errorf("len(Timers) = %d, want 2", len(c.Timers))
	}
	if c.RuleCount() != 5 {
		t.Errorf("RuleCount() = %d, want 5", c.RuleCount())
	}
}

func TestController_RemoveRule(t *testing.T) {
	c := testController("a", "A")

	if err := c.RemoveRule(KindSchedule, "a-sc1"); err != nil {
		t.Fatalf("RemoveRule() error = %v", err)
	}
	if len(c.Schedules) != 0 {
		t.Errorf("len(Schedules) = %d, want 0", len(c.Schedules))
	}

	if err := c.RemoveRule(KindSchedule, "a-sc1"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("RemoveRule() twice error = %v, want ErrRuleNotFound", err)
	}
	if err := c.RemoveRule(Kind("bogus"), "x"); !errors.Is(err, ErrUnknownRuleKind) {
		t.Errorf("RemoveRule(bogus) error = %v, want ErrUnknownRuleKind", err)
	}
}

func TestController_DeepCopy(t *testing.T) {
	c := testController("a", "A")
	c.Alerts[0].AdditionalDeviceIDs = []string{"a-d-fan"}

	cpy := c.DeepCopy()
	cpy.Modules[0].Sensors[0].Name = "changed"
	cpy.Alerts[0].AdditionalDeviceIDs[0] = "changed"
	cpy.RuleGroups[0].Name = "changed"

	if c.Modules[0].Sensors[0].Name != "Temperature" {
		t.Error("DeepCopy() shares sensor slices")
	}
	if c.Alerts[0].AdditionalDeviceIDs[0] != "a-d-fan" {
		t.Error("DeepCopy() shares additional device IDs")
	}
	if c.RuleGroups[0].Name != "Zone 1" {
		t.Error("DeepCopy() shares rule groups")
	}
}

func TestController_Find(t *testing.T) {
	c := testController("a", "A")
	if s := c.FindSensor("a-s-hum"); s == nil || s.Name != "Humidity" {
		t.Errorf("FindSensor() = %+v", s)
	}
	if d := c.FindDeviceByName("Mister"); d == nil || d.ID != "a-d-mist" {
		t.Errorf("FindDeviceByName() = %+v", d)
	}
	if c.FindSensor("") != nil || c.FindDevice("missing") != nil {
		t.Error("lookups of unknown IDs should return nil")
	}
}

package rulegroup

import (
	"github.com/nerrad567/controlhub-core/internal/controller"
)

// Deviant is an instance whose value differs from the canonical one.
type Deviant struct {
	ControllerName string `json:"controllerName"`
	Value          string `json:"value"`
}

// FieldDeviants lists the deviants for one field of a mapped rule.
type FieldDeviants struct {
	Field    string    `json:"field"`
	Deviants []Deviant `json:"deviants"`
}

// Deviants reports, in instance order, every instance whose field value is
// not equal to canonical. format renders the deviating value.
func Deviants[R controller.Rule, V comparable](instances []*Linked[R], canonical V, field func(R) V, format func(V) string) []Deviant {
	var out []Deviant
	for _, l := range instances {
		if v := field(l.Rule); v != canonical {
			out = append(out, Deviant{ControllerName: l.Controller.Name, Value: format(v)})
		}
	}
	return out
}

// DeviantsBy compares formatted values instead of raw ones, for fields such
// as durations whose identity is their rendering. A non-empty label
// prefixes each reported value.
func DeviantsBy[R controller.Rule](instances []*Linked[R], canonical string, format func(R) string, label string) []Deviant {
	var out []Deviant
	for _, l := range instances {
		v := format(l.Rule)
		if v == canonical {
			continue
		}
		if label != "" {
			v = label + " " + v
		}
		out = append(out, Deviant{ControllerName: l.Controller.Name, Value: v})
	}
	return out
}

func durationDeviants[R controller.Rule](instances []*Linked[R], canonical controller.Duration, field func(R) controller.Duration, label string) []Deviant {
	return DeviantsBy(instances, canonical.String(), func(r R) string { return field(r).String() }, label)
}

func enabledDeviants[R controller.Rule](instances []*Linked[R], canonical R) []Deviant {
	return Deviants(instances, canonical.Base().IsEnabled,
		func(r R) bool { return r.Base().IsEnabled },
		func(v bool) string {
			if v {
				return "enabled"
			}
			return "disabled"
		})
}

type report []FieldDeviants

func (r *report) add(field string, d []Deviant) {
	if len(d) > 0 {
		*r = append(*r, FieldDeviants{Field: field, Deviants: d})
	}
}

// TriggerDeviants reports the fields a sensor trigger may carry per controller.
func TriggerDeviants(canonical controller.SensorTrigger, instances []*Linked[controller.SensorTrigger]) []FieldDeviants {
	var r report
	r.add("minimumDuration", durationDeviants(instances, canonical.MinimumDuration,
		func(t controller.SensorTrigger) controller.Duration { return t.MinimumDuration }, "minimum"))
	r.add("actionDuration", durationDeviants(instances, canonical.ActionDuration,
		func(t controller.SensorTrigger) controller.Duration { return t.ActionDuration }, "action"))
	r.add("isEnabled", enabledDeviants(instances, canonical))
	return r
}

// TimerDeviants reports the fields a timer may carry per controller.
func TimerDeviants(canonical controller.Timer, instances []*Linked[controller.Timer]) []FieldDeviants {
	var r report
	r.add("isEnabled", enabledDeviants(instances, canonical))
	return r
}

// ScheduleDeviants reports the fields a schedule may carry per controller.
func ScheduleDeviants(canonical controller.Schedule, instances []*Linked[controller.Schedule]) []FieldDeviants {
	var r report
	r.add("isEnabled", enabledDeviants(instances, canonical))
	return r
}

// AlertDeviants reports the fields an alert may carry per controller.
func AlertDeviants(canonical controller.Alert, instances []*Linked[controller.Alert]) []FieldDeviants {
	var r report
	r.add("minimumDuration", durationDeviants(instances, canonical.MinimumDuration,
		func(a controller.Alert) controller.Duration { return a.MinimumDuration }, "minimum"))
	r.add("isEnabled", enabledDeviants(instances, canonical))
	return r
}

// Deviants implements MappedRule against the canonical values.
func (m *Mapped[R]) Deviants() []FieldDeviants {
	return m.DeviantsAgainst(m.Rule)
}

// DeviantsAgainst reports instances that differ from an edited canonical
// value, as shown by a bulk-edit form before saving.
func (m *Mapped[R]) DeviantsAgainst(canonical R) []FieldDeviants {
	switch c := any(canonical).(type) {
	case controller.SensorTrigger:
		return TriggerDeviants(c, any(m.Instances).([]*Linked[controller.SensorTrigger]))
	case controller.Timer:
		return TimerDeviants(c, any(m.Instances).([]*Linked[controller.Timer]))
	case controller.Schedule:
		return ScheduleDeviants(c, any(m.Instances).([]*Linked[controller.Schedule]))
	case controller.Alert:
		return AlertDeviants(c, any(m.Instances).([]*Linked[controller.Alert]))
	}
	return nil
}

package controller

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies one of the four raw rule kinds.
type Kind string

// Rule kinds.
const (
	KindSensorTrigger Kind = "sensor_trigger"
	KindTimer         Kind = "timer"
	KindSchedule      Kind = "schedule"
	KindAlert         Kind = "alert"
)

// Comparison is the direction a sensor reading is tested against.
type Comparison string

// Comparison values.
const (
	Above Comparison = "Above"
	Below Comparison = "Below"
)

// RuleBase holds the fields every raw rule carries.
type RuleBase struct {
	ID                  string   `json:"id"`
	RuleGroupID         string   `json:"ruleGroupId"`
	AdditionalDeviceIDs []string `json:"additionalDeviceIds,omitempty"`
	IsEnabled           bool     `json:"isEnabled"`
}

func (b RuleBase) clone() RuleBase {
	b.AdditionalDeviceIDs = cloneSlice(b.AdditionalDeviceIDs)
	return b
}

// SensorTrigger switches a device when a sensor crosses a value.
type SensorTrigger struct {
	RuleBase
	SensorID        string     `json:"sensorId"`
	DeviceID        string     `json:"deviceId"`
	Comparison      Comparison `json:"comparison"`
	Value           float64    `json:"value"`
	ResetThreshold  float64    `json:"resetThreshold"`
	MinimumDuration Duration   `json:"minimumDuration"`
	ActionDuration  Duration   `json:"actionDuration"`
}

// Timer runs a device for Duration every Frequency, starting at StartTime.
type Timer struct {
	RuleBase
	DeviceID  string    `json:"deviceId"`
	StartTime TimeOfDay `json:"startTime"`
	Duration  Duration  `json:"duration"`
	Frequency Duration  `json:"frequency"`
}

// Schedule keeps a device on between StartTime and EndTime on DaysOfWeek.
type Schedule struct {
	RuleBase
	DeviceID   string    `json:"deviceId"`
	DaysOfWeek Weekdays  `json:"daysOfWeek"`
	StartTime  TimeOfDay `json:"startTime"`
	EndTime    TimeOfDay `json:"endTime"`
}

// Alert notifies when a sensor stays past Threshold for MinimumDuration.
type Alert struct {
	RuleBase
	SensorID        string     `json:"sensorId"`
	Comparison      Comparison `json:"comparison"`
	Threshold       float64    `json:"threshold"`
	MinimumDuration Duration   `json:"minimumDuration"`
}

// Rule is the common view over the four raw rule kinds.
//
// EquivalenceKey captures the kind-specific fields that decide whether two
// rules on different controllers are the same logical rule. It excludes
// the sensor/device references, which are compared by name, and fields
// that are allowed to deviate between controllers (sensor trigger and
// alert durations, enabled).
type Rule interface {
	Kind() Kind
	Base() RuleBase
	SensorRef() string
	DeviceRef() string
	EquivalenceKey() string
}

// DecodeRule unmarshals data into the concrete rule type for k.
func DecodeRule(k Kind, data []byte) (Rule, error) {
	switch k {
	case KindSensorTrigger:
		return decodeAs[SensorTrigger](data)
	case KindTimer:
		return decodeAs[Timer](data)
	case KindSchedule:
		return decodeAs[Schedule](data)
	case KindAlert:
		return decodeAs[Alert](data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownRuleKind, k)
}

func decodeAs[R Rule](data []byte) (Rule, error) {
	var r R
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding %s rule: %w", r.Kind(), err)
	}
	return r, nil
}

// Kind implements Rule.
func (SensorTrigger) Kind() Kind { return KindSensorTrigger }

// Kind implements Rule.
func (Timer) Kind() Kind { return KindTimer }

// Kind implements Rule.
func (Schedule) Kind() Kind { return KindSchedule }

// Kind implements Rule.
func (Alert) Kind() Kind { return KindAlert }

// Base implements Rule.
func (r SensorTrigger) Base() RuleBase { return r.RuleBase }

// Base implements Rule.
func (r Timer) Base() RuleBase { return r.RuleBase }

// Base implements Rule.
func (r Schedule) Base() RuleBase { return r.RuleBase }

// Base implements Rule.
func (r Alert) Base() RuleBase { return r.RuleBase }

// SensorRef implements Rule.
func (r SensorTrigger) SensorRef() string { return r.SensorID }

// SensorRef implements Rule. Timers act on a device only.
func (Timer) SensorRef() string { return "" }

// SensorRef implements Rule. Schedules act on a device only.
func (Schedule) SensorRef() string { return "" }

// SensorRef implements Rule.
func (r Alert) SensorRef() string { return r.SensorID }

// DeviceRef implements Rule.
func (r SensorTrigger) DeviceRef() string { return r.DeviceID }

// DeviceRef implements Rule.
func (r Timer) DeviceRef() string { return r.DeviceID }

// DeviceRef implements Rule.
func (r Schedule) DeviceRef() string { return r.DeviceID }

// DeviceRef implements Rule. Alerts watch a sensor only.
func (Alert) DeviceRef() string { return "" }

// EquivalenceKey implements Rule: comparison, value and reset threshold.
func (r SensorTrigger) EquivalenceKey() string {
	return fmt.Sprintf("%s|%s|%s", r.Comparison, formatFloat(r.Value), formatFloat(r.ResetThreshold))
}

// EquivalenceKey implements Rule: start time, run duration and frequency.
func (r Timer) EquivalenceKey() string {
	return fmt.Sprintf("%s|%s|%s", r.StartTime, r.Duration, r.Frequency)
}

// EquivalenceKey implements Rule: days of week, start and end time.
func (r Schedule) EquivalenceKey() string {
	return fmt.Sprintf("%d|%s|%s", r.DaysOfWeek&AllDays, r.StartTime, r.EndTime)
}

// EquivalenceKey implements Rule: comparison and threshold.
func (r Alert) EquivalenceKey() string {
	return fmt.Sprintf("%s|%s", r.Comparison, formatFloat(r.Threshold))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Rebind returns a copy of r re-homed onto another controller: a new base
// (ID, rule group, additional devices) and new sensor/device references.
// Empty sensorID/deviceID are applied as-is for kinds that don't use them.
func Rebind[R Rule](r R, base RuleBase, sensorID, deviceID string) R {
	base = base.clone()
	var out any
	switch v := any(r).(type) {
	case SensorTrigger:
		v.RuleBase, v.SensorID, v.DeviceID = base, sensorID, deviceID
		out = v
	case Timer:
		v.RuleBase, v.DeviceID = base, deviceID
		out = v
	case Schedule:
		v.RuleBase, v.DeviceID = base, deviceID
		out = v
	case Alert:
		v.RuleBase, v.SensorID = base, sensorID
		out = v
	default:
		return r
	}
	return out.(R) //nolint:forcetypeassert // same concrete type as r
}

// PutRule inserts or replaces (by ID) a raw rule on the controller.
func (c *Controller) PutRule(r Rule) error {
	switch v := r.(type) {
	case SensorTrigger:
		c.SensorTriggers = upsert(c.SensorTriggers, v)
	case Timer:
		c.Timers = upsert(c.Timers, v)
	case Schedule:
		c.Schedules = upsert(c.Schedules, v)
	case Alert:
		c.Alerts = upsert(c.Alerts, v)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownRuleKind, r)
	}
	return nil
}

// RemoveRule deletes the raw rule of kind k with the given ID.
func (c *Controller) RemoveRule(k Kind, id string) error {
	var ok bool
	switch k {
	case KindSensorTrigger:
		c.SensorTriggers, ok = without(c.SensorTriggers, id)
	case KindTimer:
		c.Timers, ok = without(c.Timers, id)
	case KindSchedule:
		c.Schedules, ok = without(c.Schedules, id)
	case KindAlert:
		c.Alerts, ok = without(c.Alerts, id)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRuleKind, k)
	}
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrRuleNotFound, k, id)
	}
	return nil
}

func upsert[R Rule](list []R, r R) []R {
	id := r.Base().ID
	for i := range list {
		if list[i].Base().ID == id {
			list[i] = r
			return list
		}
	}
	return append(list, r)
}

func without[R Rule](list []R, id string) ([]R, bool) {
	for i := range list {
		if list[i].Base().ID == id {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}

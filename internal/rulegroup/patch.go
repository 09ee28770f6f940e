package rulegroup

import (
	"fmt"
	"strings"

	"github.com/nerrad567/controlhub-core/internal/controller"
)

// Patch is a bulk edit applied to a mapped rule and all its instances.
// Nil fields are left unchanged.
type Patch struct {
	IsEnabled *bool `json:"isEnabled,omitempty"`

	// Sensor triggers and alerts
	Comparison      *controller.Comparison `json:"comparison,omitempty"`
	MinimumDuration *controller.Duration   `json:"minimumDuration,omitempty"`

	// Sensor triggers
	Value          *float64             `json:"value,omitempty"`
	ResetThreshold *float64             `json:"resetThreshold,omitempty"`
	ActionDuration *controller.Duration `json:"actionDuration,omitempty"`

	// Alerts
	Threshold *float64 `json:"threshold,omitempty"`

	// Timers and schedules
	StartTime *controller.TimeOfDay `json:"startTime,omitempty"`

	// Timers
	Duration  *controller.Duration `json:"duration,omitempty"`
	Frequency *controller.Duration `json:"frequency,omitempty"`

	// Schedules
	DaysOfWeek *controller.Weekdays  `json:"daysOfWeek,omitempty"`
	EndTime    *controller.TimeOfDay `json:"endTime,omitempty"`
}

// Validate checks that the patch only sets fields kind k has.
func (p Patch) Validate(k controller.Kind) error {
	var bad []string
	check := func(set bool, field string, kinds ...controller.Kind) {
		if !set {
			return
		}
		for _, allowed := range kinds {
			if allowed == k {
				return
			}
		}
		bad = append(bad, field)
	}

	check(p.Comparison != nil, "comparison", controller.KindSensorTrigger, controller.KindAlert)
	check(p.MinimumDuration != nil, "minimumDuration", controller.KindSensorTrigger, controller.KindAlert)
	check(p.Value != nil, "value", controller.KindSensorTrigger)
	check(p.ResetThreshold != nil, "resetThreshold", controller.KindSensorTrigger)
	check(p.ActionDuration != nil, "actionDuration", controller.KindSensorTrigger)
	check(p.Threshold != nil, "threshold", controller.KindAlert)
	check(p.StartTime != nil, "startTime", controller.KindTimer, controller.KindSchedule)
	check(p.Duration != nil, "duration", controller.KindTimer)
	check(p.Frequency != nil, "frequency", controller.KindTimer)
	check(p.DaysOfWeek != nil, "daysOfWeek", controller.KindSchedule)
	check(p.EndTime != nil, "endTime", controller.KindSchedule)

	if p.Comparison != nil && *p.Comparison != controller.Above && *p.Comparison != controller.Below {
		return fmt.Errorf("%w: comparison %q", ErrInvalidPatch, *p.Comparison)
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s does not have %s", ErrInvalidPatch, k, strings.Join(bad, ", "))
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// applyPatch returns r with the patch's fields set.
func applyPatch[R controller.Rule](p Patch, r R) R {
	var out any
	switch v := any(r).(type) {
	case controller.SensorTrigger:
		setIf(&v.IsEnabled, p.IsEnabled)
		setIf(&v.Comparison, p.Comparison)
		setIf(&v.MinimumDuration, p.MinimumDuration)
		setIf(&v.Value, p.Value)
		setIf(&v.ResetThreshold, p.ResetThreshold)
		setIf(&v.ActionDuration, p.ActionDuration)
		out = v
	case controller.Timer:
		setIf(&v.IsEnabled, p.IsEnabled)
		setIf(&v.StartTime, p.StartTime)
		setIf(&v.Duration, p.Duration)
		setIf(&v.Frequency, p.Frequency)
		out = v
	case controller.Schedule:
		setIf(&v.IsEnabled, p.IsEnabled)
		setIf(&v.DaysOfWeek, p.DaysOfWeek)
		setIf(&v.StartTime, p.StartTime)
		setIf(&v.EndTime, p.EndTime)
		out = v
	case controller.Alert:
		setIf(&v.IsEnabled, p.IsEnabled)
		setIf(&v.Comparison, p.Comparison)
		setIf(&v.MinimumDuration, p.MinimumDuration)
		setIf(&v.Threshold, p.Threshold)
		out = v
	default:
		return r
	}
	return out.(R) //nolint:forcetypeassert // same concrete type as r
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

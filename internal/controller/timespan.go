package controller

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Duration is a span of time encoded on the wire as "hh:mm:ss", or
// "d.hh:mm:ss" when it reaches a full day.
type Duration time.Duration

// Common durations.
const (
	Second Duration = Duration(time.Second)
	Minute Duration = Duration(time.Minute)
	Hour   Duration = Duration(time.Hour)
)

// maxSeconds is the longest span a Duration can hold, in whole seconds.
const maxSeconds = int64(math.MaxInt64 / int64(time.Second))

// String formats the duration as "hh:mm:ss".
func (d Duration) String() string {
	neg := d < 0
	if neg {
		d = -d
	}
	total := int64(time.Duration(d) / time.Second)
	days := total / 86400
	h := (total % 86400) / 3600
	m := (total % 3600) / 60
	s := total % 60

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	if days > 0 {
		fmt.Fprintf(&b, "%d.", days)
	}
	fmt.Fprintf(&b, "%02d:%02d:%02d", h, m, s)
	return b.String()
}

// ParseDuration parses "hh:mm:ss", "hh:mm" or "d.hh:mm:ss".
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var days int64
	if dot := strings.Index(s, "."); dot >= 0 && dot < strings.Index(s, ":") {
		v, err := strconv.ParseInt(s[:dot], 10, 64)
		if err != nil || v < 0 || v > maxSeconds/86400 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		days = v
		s = s[dot+1:]
	}

	secs, err := parseClock(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	total := days*86400 + secs
	if total > maxSeconds {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidDuration, s)
	}
	d := Duration(time.Duration(total) * time.Second)
	if neg {
		d = -d
	}
	return d, nil
}

// MarshalJSON encodes the duration as "hh:mm:ss".
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "hh:mm:ss" strings and null.
func (d *Duration) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDuration, data)
	}
	v, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// TimeOfDay is a wall-clock time, stored as seconds after midnight.
type TimeOfDay int

// At builds a TimeOfDay from hours and minutes.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*3600 + minute*60)
}

// String formats the time as "hh:mm:ss".
func (t TimeOfDay) String() string {
	v := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", v/3600, (v%3600)/60, v%60)
}

// ParseTimeOfDay parses "hh:mm" or "hh:mm:ss".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	secs, err := parseClock(strings.TrimSpace(s))
	if err != nil || secs >= 86400 {
		return 0, fmt.Errorf("%w: time of day %q", ErrInvalidDuration, s)
	}
	return TimeOfDay(secs), nil
}

// MarshalJSON encodes the time as "hh:mm:ss".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts "hh:mm[:ss]" strings and null.
func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = 0
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDuration, data)
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// parseClock converts "hh:mm[:ss]" to seconds.
func parseClock(s string) (int64, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("expected hh:mm[:ss]")
	}
	var total int64
	limits := []int64{0, 60, 60}
	mult := []int64{3600, 60, 1}
	for i, p := range parts {
		// Fractional seconds are truncated.
		if i == 2 {
			if dot := strings.Index(p, "."); dot >= 0 {
				p = p[:dot]
			}
		}
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("bad component %q", p)
		}
		if (limits[i] > 0 && v >= limits[i]) || v > maxSeconds/mult[i] {
			return 0, fmt.Errorf("component %q out of range", p)
		}
		total += v * mult[i]
	}
	return total, nil
}

// Weekdays is a set of days, bit 0 = Sunday through bit 6 = Saturday.
type Weekdays uint8

// Day constants.
const (
	Sunday Weekdays = 1 << iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday

	Weekend  = Saturday | Sunday
	Workdays = Monday | Tuesday | Wednesday | Thursday | Friday
	AllDays  = Weekend | Workdays
)

var weekdayNames = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// String lists the days in the set, e.g. "Mon,Wed,Fri".
func (w Weekdays) String() string {
	switch w & AllDays {
	case 0:
		return "none"
	case AllDays:
		return "every day"
	}
	var names []string
	for i, n := range weekdayNames {
		if w&(1<<i) != 0 {
			names = append(names, n)
		}
	}
	return strings.Join(names, ",")
}

package controller

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDuration_String(t *testing.T) {
	tests := []struct {
		d    Duration
		want string
	}{
		{0, "00:00:00"},
		{5 * Minute, "00:05:00"},
		{Hour + 2*Minute + 3*Second, "01:02:03"},
		{26 * Hour, "1.02:00:00"},
		{-90 * Second, "-00:01:30"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("Duration(%d).String() = %q, want %q", int64(tt.d), got, tt.want)
		}
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    Duration
		wantErr bool
	}{
		{"00:05:00", 5 * Minute, false},
		{"01:30", Hour + 30*Minute, false},
		{"2.00:00:00", 48 * Hour, false},
		{"00:00:10.500", 10 * Second, false},
		{"", 0, false},
		{"00:61:00", 0, true},
		{"five minutes", 0, true},
		{"1:2:3:4", 0, true},
		{"106751.00:00:00", 106751 * 24 * Hour, false},
		{"106751.23:59:59", 0, true},
		{"999999999999.00:00:00", 0, true},
		{"9999999999999999:00:00", 0, true},
		{"--1.00:00:00", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidDuration) {
				t.Errorf("ParseDuration(%q) error = %v, want ErrInvalidDuration", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDuration(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDuration_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		D Duration `json:"d"`
	}{D: 10 * Minute})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"d":"00:10:00"}` {
		t.Errorf("Marshal() = %s", data)
	}

	var v struct {
		D Duration `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"00:00:45"}`), &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v.D != 45*Second {
		t.Errorf("Unmarshal() = %v, want 45s", v.D)
	}
	if err := json.Unmarshal([]byte(`{"d":12}`), &v); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("Unmarshal(number) error = %v, want ErrInvalidDuration", err)
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("18:30")
	if err != nil {
		t.Fatalf("ParseTimeOfDay() error = %v", err)
	}
	if got != At(18, 30) {
		t.Errorf("ParseTimeOfDay() = %v, want 18:30:00", got)
	}
	if got.String() != "18:30:00" {
		t.Errorf("String() = %q", got.String())
	}
	if _, err := ParseTimeOfDay("24:00"); err == nil {
		t.Error("ParseTimeOfDay(24:00) should fail")
	}
}

func TestWeekdays_String(t *testing.T) {
	tests := []struct {
		w    Weekdays
		want string
	}{
		{0, "none"},
		{AllDays, "every day"},
		{Monday | Wednesday | Friday, "Mon,Wed,Fri"},
		{Weekend, "Sun,Sat"},
	}
	for _, tt := range tests {
		if got := tt.w.String(); got != tt.want {
			t.Errorf("Weekdays(%d).String() = %q, want %q", tt.w, got, tt.want)
		}
	}
}

package controller

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the snapshot schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	// One connection, otherwise each pooled connection gets its own empty database.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE controller_snapshots (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			payload TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		) STRICT;`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testController builds a controller with one climate module (two sensors,
// two devices), one rule group and one rule of each kind.
func testController(id, name string) Controller {
	return Controller{
		ID:   id,
		Name: name,
		Modules: []Module{
			{
				ID:          id + "-m1",
				Name:        "Climate",
				ProductType: 10,
				Sensors: []Sensor{
					{ID: id + "-s-temp", Name: "Temperature", ParticleSensor: 1},
					{ID: id + "-s-hum", Name: "Humidity", ParticleSensor: 2},
				},
				Devices: []Device{
					{ID: id + "-d-fan", Name: "Fan", DeviceType: 3},
					{ID: id + "-d-mist", Name: "Mister", DeviceType: 4},
				},
			},
		},
		RuleGroups: []RuleGroup{{ID: id + "-rg1", Name: "Zone 1"}},
		SensorTriggers: []SensorTrigger{{
			RuleBase:        RuleBase{ID: id + "-st1", RuleGroupID: id + "-rg1", IsEnabled: true},
			SensorID:        id + "-s-temp",
			DeviceID:        id + "-d-fan",
			Comparison:      Above,
			Value:           28,
			ResetThreshold:  26,
			MinimumDuration: 5 * Minute,
			ActionDuration:  10 * Minute,
		}},
		Timers: []Timer{{
			RuleBase:  RuleBase{ID: id + "-t1", RuleGroupID: id + "-rg1", IsEnabled: true},
			DeviceID:  id + "-d-mist",
			StartTime: At(6, 0),
			Duration:  2 * Minute,
			Frequency: Hour,
		}},
		Schedules: []Schedule{{
			RuleBase:   RuleBase{ID: id + "-sc1", RuleGroupID: id + "-rg1", IsEnabled: true},
			DeviceID:   id + "-d-fan",
			DaysOfWeek: Workdays,
			StartTime:  At(8, 0),
			EndTime:    At(18, 30),
		}},
		Alerts: []Alert{{
			RuleBase:        RuleBase{ID: id + "-a1", RuleGroupID: id + "-rg1", IsEnabled: true},
			SensorID:        id + "-s-hum",
			Comparison:      Above,
			Threshold:       80,
			MinimumDuration: 5 * Minute,
		}},
	}
}

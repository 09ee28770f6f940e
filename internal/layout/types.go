package layout

import (
	"encoding/json"
	"fmt"
	"time"
)

// WidgetKind identifies what a widget renders.
type WidgetKind string

// Widget kinds.
const (
	KindGauge       WidgetKind = "gauge"        // live sensor reading
	KindToggle      WidgetKind = "toggle"       // device switch
	KindRuleSummary WidgetKind = "rule_summary" // rule group overview
	KindChart       WidgetKind = "chart"        // sensor history
	KindText        WidgetKind = "text"
)

// Default footprints per kind.
var defaultSize = map[WidgetKind][2]int{
	KindGauge:       {2, 2},
	KindToggle:      {1, 1},
	KindRuleSummary: {3, 2},
	KindChart:       {4, 3},
	KindText:        {2, 1},
}

// DefaultColumns is the grid width used when none is configured.
const DefaultColumns = 6

// Widget is a rectangle on the dashboard grid.
// A negative X or Y marks a widget that still needs placing.
type Widget struct {
	ID       string     `json:"id"`
	Kind     WidgetKind `json:"kind"`
	Title    string     `json:"title,omitempty"`
	SourceID string     `json:"sourceId,omitempty"`
	X        int        `json:"x"`
	Y        int        `json:"y"`
	Cols     int        `json:"cols"`
	Rows     int        `json:"rows"`
}

// UnmarshalJSON treats an omitted or null x or y as unpositioned.
func (w *Widget) UnmarshalJSON(data []byte) error {
	type plain Widget
	var raw struct {
		plain
		X *int `json:"x"`
		Y *int `json:"y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*w = Widget(raw.plain)
	w.X, w.Y = -1, -1
	if raw.X != nil {
		w.X = *raw.X
	}
	if raw.Y != nil {
		w.Y = *raw.Y
	}
	return nil
}

// Position is a grid cell.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Placed reports whether the widget has a position.
func (w Widget) Placed() bool {
	return w.X >= 0 && w.Y >= 0
}

// Overlaps reports whether the two widgets share at least one cell.
func (w Widget) Overlaps(o Widget) bool {
	return overlaps(w.X, w.Y, w.Cols, w.Rows, o)
}

// fitsOn reports whether a placed widget lies inside the grid and clear of
// existing.
func (w Widget) fitsOn(existing []Widget, availColumns int) bool {
	return w.X+w.Cols <= availColumns && fits(existing, w.X, w.Y, w.Cols, w.Rows)
}

// Validate checks the widget's footprint against the grid width.
func (w Widget) Validate(availColumns int) error {
	if w.Cols <= 0 || w.Rows <= 0 {
		return fmt.Errorf("%w: %s has footprint %dx%d", ErrInvalidWidget, w.ID, w.Cols, w.Rows)
	}
	if w.Cols > availColumns {
		return fmt.Errorf("%w: %s is %d columns wide, grid has %d", ErrInvalidWidget, w.ID, w.Cols, availColumns)
	}
	return nil
}

// WithDefaultSize fills a zero footprint from the kind's default.
func (w Widget) WithDefaultSize() Widget {
	size, ok := defaultSize[w.Kind]
	if !ok {
		size = [2]int{1, 1}
	}
	if w.Cols <= 0 {
		w.Cols = size[0]
	}
	if w.Rows <= 0 {
		w.Rows = size[1]
	}
	return w
}

// Dashboard is the stored layout for one controller.
type Dashboard struct {
	ControllerID string    `json:"controllerId"`
	Columns      int       `json:"columns"`
	Widgets      []Widget  `json:"widgets"`
	Generated    bool      `json:"generated"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Rows returns the number of grid rows in use.
func (d *Dashboard) Rows() int {
	return maxRow(d.Widgets)
}

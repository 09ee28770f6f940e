package layout

import "errors"

// Domain errors for the layout package.
var (
	// ErrDashboardNotFound is returned when no dashboard is stored for a controller.
	ErrDashboardNotFound = errors.New("layout: dashboard not found")

	// ErrInvalidWidget is returned when a widget has no footprint or does
	// not fit the grid width.
	ErrInvalidWidget = errors.New("layout: invalid widget")

	// ErrWidgetNotFound is returned when a widget ID is not on the dashboard.
	ErrWidgetNotFound = errors.New("layout: widget not found")

	// ErrInvalidColumns is returned for a grid narrower than one column.
	ErrInvalidColumns = errors.New("layout: invalid column count")
)

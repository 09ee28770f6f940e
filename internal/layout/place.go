package layout

// FindPosition returns where a cols × rows widget fits among existing.
//
// The grid is scanned row by row from (startX, startY); later rows start
// at x = 0. The first candidate whose footprint overlaps no placed widget
// wins, so the result has the smallest y and then the smallest x at or
// after the cursor. The scan stops one row below the lowest occupied row,
// where the grid is always free, so it always terminates.
//
// A widget wider than the grid is treated as exactly grid-wide.
func FindPosition(existing []Widget, cols, rows, availColumns, startX, startY int) Position {
	if availColumns < 1 {
		availColumns = 1
	}
	cols = min(max(cols, 1), availColumns)
	rows = max(rows, 1)
	startX, startY = max(startX, 0), max(startY, 0)

	limit := max(maxRow(existing), startY) + 1
	x := startX
	for y := startY; y <= limit; y++ {
		for ; x+cols <= availColumns; x++ {
			if fits(existing, x, y, cols, rows) {
				return Position{X: x, Y: y}
			}
		}
		x = 0
	}
	// Unreachable: the row at limit is empty.
	return Position{X: 0, Y: limit}
}

// fits reports whether the footprint at (x, y) is clear of every placed widget.
func fits(existing []Widget, x, y, cols, rows int) bool {
	for _, w := range existing {
		if !w.Placed() {
			continue
		}
		if overlaps(x, y, cols, rows, w) {
			return false
		}
	}
	return true
}

func overlaps(x, y, cols, rows int, w Widget) bool {
	return x < w.X+w.Cols && w.X < x+cols &&
		y < w.Y+w.Rows && w.Y < y+rows
}

// maxRow returns the first row below every placed widget.
func maxRow(widgets []Widget) int {
	bottom := 0
	for _, w := range widgets {
		if w.Placed() && w.Y+w.Rows > bottom {
			bottom = w.Y + w.Rows
		}
	}
	return bottom
}

// AutoPlace positions w at the first free spot among existing.
func AutoPlace(existing []Widget, w Widget, availColumns int) Widget {
	p := FindPosition(existing, w.Cols, w.Rows, availColumns, 0, 0)
	w.X, w.Y = p.X, p.Y
	w.Cols = min(max(w.Cols, 1), max(availColumns, 1))
	w.Rows = max(w.Rows, 1)
	return w
}

// Pack lays out widgets in order. Widgets that already have a position
// keep it unless it overlaps an earlier one or runs off the grid; the rest
// are placed after the previous widget, so the dashboard reads in order.
func Pack(widgets []Widget, availColumns int) []Widget {
	if availColumns < 1 {
		availColumns = 1
	}
	out := make([]Widget, 0, len(widgets))
	cursor := Position{}
	for _, w := range widgets {
		w = w.WithDefaultSize()
		if w.Placed() && w.fitsOn(out, availColumns) {
			out = append(out, w)
			continue
		}
		p := FindPosition(out, w.Cols, w.Rows, availColumns, cursor.X, cursor.Y)
		w.X, w.Y = p.X, p.Y
		w.Cols = min(w.Cols, availColumns)
		out = append(out, w)
		cursor = Position{X: w.X + w.Cols, Y: w.Y}
	}
	return out
}

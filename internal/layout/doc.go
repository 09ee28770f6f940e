// Package layout places dashboard widgets on a fixed-width grid.
//
// A dashboard is a grid of availColumns columns and unbounded rows. Each
// widget occupies a Cols × Rows rectangle at (X, Y). FindPosition returns
// the lowest, then leftmost, free spot for a new widget; Pack and Generate
// build on it to lay out whole dashboards.
//
// Dashboards are stored per controller in SQLite, with the widget list as
// a JSON document.
package layout

package models

import "time"

// GridInfo describes a stored grid without its values
type GridInfo struct {
	ID        int64     `json:"id"`        // Database Primary Key (0 if not saved)
	Name      string    `json:"name"`      // Unique name (e.g. "gulf-of-maine-currents")
	Kind      string    `json:"kind"`      // "scalar" or "vector"
	Units     string    `json:"units"`     // Legend unit preset (e.g. "speed")
	NCols     int       `json:"ncols"`
	NRows     int       `json:"nrows"`
	XLLCorner float64   `json:"xllcorner"`
	YLLCorner float64   `json:"yllcorner"`
	CellSize  float64   `json:"cellsize"`
	Min       *float64  `json:"min"` // nil when the grid has no valid cell
	Max       *float64  `json:"max"`
	CreatedAt time.Time `json:"created_at"`
}

// NumCells returns ncols * nrows
func (g GridInfo) NumCells() int {
	return g.NCols * g.NRows
}

// Bounds returns west, south, east, north in degrees
func (g GridInfo) Bounds() (west, south, east, north float64) {
	return g.XLLCorner,
		g.YLLCorner,
		g.XLLCorner + float64(g.NCols)*g.CellSize,
		g.YLLCorner + float64(g.NRows)*g.CellSize
}

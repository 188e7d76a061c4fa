// Package field stores measurements on a regular lon/lat lattice and answers point
// queries with containment tests and bilinear interpolation.
package field

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var (
	// ErrInvalidDescriptor is returned when a grid descriptor has a non-positive size
	// or cell size, or non-finite corners.
	ErrInvalidDescriptor = errors.New("invalid grid descriptor")

	// ErrValueCount is returned when the number of values does not match ncols*nrows.
	ErrValueCount = errors.New("value count does not match grid size")
)

// MaxCells caps ncols*nrows so a bad header cannot request an unbounded
// allocation
const MaxCells = 1 << 28

// Descriptor describes the lattice of a grid, following the ESRI ASCII grid header
type Descriptor struct {
	NCols     int     `json:"ncols"`
	NRows     int     `json:"nrows"`
	XLLCorner float64 `json:"xllcorner"` // lower-left corner, degrees
	YLLCorner float64 `json:"yllcorner"`
	CellSize  float64 `json:"cellsize"` // degrees

	// NoDataValue marks cells without a valid measurement (e.g. -9999).
	// NaN values are always treated as no-data.
	NoDataValue *float64 `json:"nodata_value,omitempty"`
}

// Validate checks the descriptor before any grid is built from it
func (d Descriptor) Validate() error {
	if d.NCols <= 0 || d.NRows <= 0 {
		return fmt.Errorf("%w: ncols=%d nrows=%d", ErrInvalidDescriptor, d.NCols, d.NRows)
	}
	if d.NCols > MaxCells/d.NRows {
		return fmt.Errorf("%w: %dx%d exceeds %d cells", ErrInvalidDescriptor, d.NCols, d.NRows, MaxCells)
	}
	if !(d.CellSize > 0) || math.IsInf(d.CellSize, 0) {
		return fmt.Errorf("%w: cellsize=%v", ErrInvalidDescriptor, d.CellSize)
	}
	if !isFinite(d.XLLCorner) || !isFinite(d.YLLCorner) {
		return fmt.Errorf("%w: corner (%v, %v)", ErrInvalidDescriptor, d.XLLCorner, d.YLLCorner)
	}
	return nil
}

// isNoData reports whether a raw input value is the no-data marker
func (d Descriptor) isNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return d.NoDataValue != nil && v == *d.NoDataValue
}

// Extent is the bounding box of a grid in degrees
type Extent struct {
	XMin, YMin, XMax, YMax float64
}

// Lattice holds the geometry of a regular lon/lat grid.
// Column index increases eastward, row index increases southward from the top.
type Lattice struct {
	NCols, NRows int
	CellSize     float64

	XLLCorner, YLLCorner float64 // lower-left
	XURCorner, YURCorner float64 // upper-right
}

func newLattice(d Descriptor) Lattice {
	return Lattice{
		NCols:     d.NCols,
		NRows:     d.NRows,
		CellSize:  d.CellSize,
		XLLCorner: d.XLLCorner,
		YLLCorner: d.YLLCorner,
		XURCorner: d.XLLCorner + float64(d.NCols)*d.CellSize,
		YURCorner: d.YLLCorner + float64(d.NRows)*d.CellSize,
	}
}

// Geometry returns the lattice itself
func (l Lattice) Geometry() Lattice {
	return l
}

// NumCells returns the number of cells in the grid (rows * cols)
func (l Lattice) NumCells() int {
	return l.NRows * l.NCols
}

// Extent returns [xmin, ymin, xmax, ymax]
func (l Lattice) Extent() Extent {
	return Extent{XMin: l.XLLCorner, YMin: l.YLLCorner, XMax: l.XURCorner, YMax: l.YURCorner}
}

// Contains reports whether the point lies inside the grid. Boundary points are inside.
func (l Lattice) Contains(lon, lat float64) bool {
	return lon >= l.XLLCorner &&
		lon <= l.XURCorner &&
		lat >= l.YLLCorner &&
		lat <= l.YURCorner
}

// NotContains is the negation of Contains
func (l Lattice) NotContains(lon, lat float64) bool {
	return !l.Contains(lon, lat)
}

// LongitudeAtX returns the longitude at the center of column i
func (l Lattice) LongitudeAtX(i int) float64 {
	halfCell := l.CellSize / 2.0
	return l.XLLCorner + halfCell + float64(i)*l.CellSize
}

// LatitudeAtY returns the latitude at the center of row j
func (l Lattice) LatitudeAtY(j int) float64 {
	halfCell := l.CellSize / 2.0
	return l.YURCorner - halfCell - float64(j)*l.CellSize
}

// LonLatAtIndexes returns the center of the cell at column i, row j
func (l Lattice) LonLatAtIndexes(i, j int) (lon, lat float64) {
	return l.LongitudeAtX(i), l.LatitudeAtY(j)
}

// IndexesAt returns the column and row of the cell holding the point.
// Points on the east or south edge belong to the last column or row.
func (l Lattice) IndexesAt(lon, lat float64) (i, j int, ok bool) {
	if l.NotContains(lon, lat) {
		return 0, 0, false
	}
	i = int(math.Floor((lon - l.XLLCorner) / l.CellSize))
	j = int(math.Floor((l.YURCorner - lat) / l.CellSize))
	return clampIndex(i, l.NCols), clampIndex(j, l.NRows), true
}

// RandomPosition returns the center of a uniformly chosen cell
func (l Lattice) RandomPosition(r *rand.Rand) (lon, lat float64) {
	i := r.IntN(l.NCols)
	j := r.IntN(l.NRows)
	return l.LonLatAtIndexes(i, j)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n-1 {
		return n - 1
	}
	return i
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

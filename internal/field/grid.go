package field

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Field is the capability set shared by ScalarGrid and VectorGrid.
// Renderers only depend on this interface.
type Field interface {
	Geometry() Lattice
	Kind() Kind

	NumCells() int
	Extent() Extent
	Contains(lon, lat float64) bool
	LonLatAtIndexes(i, j int) (lon, lat float64)

	// ValueAt returns the bilinearly interpolated value, false outside the grid or
	// when any surrounding cell has no data.
	ValueAt(lon, lat float64) (Value, bool)

	// NearestValueAt returns the value of the cell holding the point.
	NearestValueAt(lon, lat float64) (Value, bool)

	// ValueAtIndexes returns grid[j][i].
	ValueAtIndexes(i, j int) (Value, bool)

	HasValueAt(lon, lat float64) bool
	Range() (min, max float64, ok bool)
	Points() []Point
}

// cell is implemented by the values a grid can store
type cell interface {
	Value
	valid() bool
}

// blendFunc combines the four corners of a bilinear interpolation.
// c00 is (i0,j0), c10 is (i1,j0), c01 is (i0,j1), c11 is (i1,j1).
type blendFunc[T cell] func(c00, c10, c01, c11 T, fx, fy float64) T

// grid is the shared storage and query logic behind the concrete grids.
// It is never exposed directly, so the abstract grid cannot be built.
type grid[T cell] struct {
	Lattice
	cells [][]T // cells[row][col], row 0 is the northernmost
	blend blendFunc[T]

	min, max float64
	hasRange bool
}

func newGrid[T cell](d Descriptor, cells [][]T, blend blendFunc[T]) *grid[T] {
	g := &grid[T]{
		Lattice: newLattice(d),
		cells:   cells,
		blend:   blend,
	}
	g.computeRange()
	return g
}

func (g *grid[T]) computeRange() {
	mags := make([]float64, 0, g.NumCells())
	for _, row := range g.cells {
		for _, c := range row {
			if c.valid() {
				mags = append(mags, c.Magnitude())
			}
		}
	}
	if len(mags) == 0 {
		return
	}
	g.min = floats.Min(mags)
	g.max = floats.Max(mags)
	g.hasRange = true
}

// at returns grid[j][i]; note the swap, j is the row
func (g *grid[T]) at(i, j int) (T, bool) {
	c := g.cells[j][i]
	return c, c.valid()
}

// ValueAtIndexes returns the raw value stored at column i, row j
func (g *grid[T]) ValueAtIndexes(i, j int) (Value, bool) {
	if i < 0 || i >= g.NCols || j < 0 || j >= g.NRows {
		return nil, false
	}
	c, ok := g.at(i, j)
	if !ok {
		return nil, false
	}
	return c, true
}

// ValueAt returns the interpolated value at lon/lat
func (g *grid[T]) ValueAt(lon, lat float64) (Value, bool) {
	c, ok := g.valueAt(lon, lat)
	if !ok {
		return nil, false
	}
	return c, true
}

func (g *grid[T]) valueAt(lon, lat float64) (T, bool) {
	if g.NotContains(lon, lat) {
		var zero T
		return zero, false
	}
	return g.interpolate(lon, lat)
}

// NearestValueAt returns the value of the cell holding lon/lat
func (g *grid[T]) NearestValueAt(lon, lat float64) (Value, bool) {
	i, j, ok := g.IndexesAt(lon, lat)
	if !ok {
		return nil, false
	}
	return g.ValueAtIndexes(i, j)
}

// HasValueAt reports whether ValueAt would return a value
func (g *grid[T]) HasValueAt(lon, lat float64) bool {
	_, ok := g.valueAt(lon, lat)
	return ok
}

// Range returns the minimum and maximum magnitude over all valid cells
func (g *grid[T]) Range() (min, max float64, ok bool) {
	return g.min, g.max, g.hasRange
}

// Points returns every cell center with its value, row by row from the north
func (g *grid[T]) Points() []Point {
	points := make([]Point, 0, g.NumCells())
	for j := 0; j < g.NRows; j++ {
		for i := 0; i < g.NCols; i++ {
			lon, lat := g.LonLatAtIndexes(i, j)
			v, _ := g.ValueAtIndexes(i, j)
			points = append(points, Point{Lon: lon, Lat: lat, Value: v})
		}
	}
	return points
}

// interpolate blends the four cells surrounding lon/lat. Any no-data corner makes
// the result no-data.
func (g *grid[T]) interpolate(lon, lat float64) (T, bool) {
	var zero T

	x := (lon-g.XLLCorner)/g.CellSize - 0.5
	y := (g.YURCorner-lat)/g.CellSize - 0.5

	fi, fj := math.Floor(x), math.Floor(y)
	fx, fy := x-fi, y-fj

	i0 := clampIndex(int(fi), g.NCols)
	i1 := clampIndex(int(fi)+1, g.NCols)
	j0 := clampIndex(int(fj), g.NRows)
	j1 := clampIndex(int(fj)+1, g.NRows)

	c00, ok00 := g.at(i0, j0)
	c10, ok10 := g.at(i1, j0)
	c01, ok01 := g.at(i0, j1)
	c11, ok11 := g.at(i1, j1)
	if !ok00 || !ok10 || !ok01 || !ok11 {
		return zero, false
	}

	return g.blend(c00, c10, c01, c11, fx, fy), true
}

// bilinear blends four numbers with the standard bilinear weights
func bilinear(v00, v10, v01, v11, fx, fy float64) float64 {
	return v00*(1-fx)*(1-fy) +
		v10*fx*(1-fy) +
		v01*(1-fx)*fy +
		v11*fx*fy
}

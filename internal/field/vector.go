package field

import (
	"fmt"
	"math"
)

// VectorGrid is a grid with a (u, v) vector per cell
type VectorGrid struct {
	*grid[Vector]
	desc Descriptor
}

// NewVectorGrid builds a grid from paired u/v arrays in row-major order.
// A cell is no-data when either component is.
func NewVectorGrid(d Descriptor, u, v []float64) (*VectorGrid, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	n := d.NCols * d.NRows
	if len(u) != n || len(v) != n {
		return nil, fmt.Errorf("%w: got %d u and %d v values, want %d x %d",
			ErrValueCount, len(u), len(v), d.NCols, d.NRows)
	}

	cells := make([][]Vector, d.NRows)
	p := 0
	for j := 0; j < d.NRows; j++ {
		row := make([]Vector, d.NCols)
		for i := 0; i < d.NCols; i++ {
			if d.isNoData(u[p]) || d.isNoData(v[p]) {
				row[i] = Vector{U: math.NaN(), V: math.NaN()}
			} else {
				row[i] = Vector{U: u[p], V: v[p]}
			}
			p++
		}
		cells[j] = row
	}
	return &VectorGrid{grid: newGrid(d, cells, blendVector), desc: d}, nil
}

// blendVector interpolates u and v independently; magnitude and direction are
// derived from the blended components, never blended themselves.
func blendVector(c00, c10, c01, c11 Vector, fx, fy float64) Vector {
	return Vector{
		U: bilinear(c00.U, c10.U, c01.U, c11.U, fx, fy),
		V: bilinear(c00.V, c10.V, c01.V, c11.V, fx, fy),
	}
}

// Kind returns KindVector
func (g *VectorGrid) Kind() Kind {
	return KindVector
}

// Descriptor returns the descriptor the grid was built from
func (g *VectorGrid) Descriptor() Descriptor {
	return g.desc
}

// VectorAt is ValueAt without the interface conversion
func (g *VectorGrid) VectorAt(lon, lat float64) (Vector, bool) {
	return g.valueAt(lon, lat)
}

// Components returns the u and v arrays in row-major order, NaN for no-data
func (g *VectorGrid) Components() (u, v []float64) {
	u = make([]float64, 0, g.NumCells())
	v = make([]float64, 0, g.NumCells())
	for _, row := range g.cells {
		for _, c := range row {
			u = append(u, c.U)
			v = append(v, c.V)
		}
	}
	return u, v
}

// Magnitudes returns a scalar grid with the magnitude of every cell
func (g *VectorGrid) Magnitudes() *ScalarGrid {
	return g.derive(Vector.Magnitude)
}

// Directions returns a scalar grid with the from-direction of every cell
func (g *VectorGrid) Directions() *ScalarGrid {
	return g.derive(Vector.DirectionFrom)
}

func (g *VectorGrid) derive(f func(Vector) float64) *ScalarGrid {
	d := g.desc
	d.NoDataValue = nil
	cells := make([][]Scalar, g.NRows)
	for j, row := range g.cells {
		out := make([]Scalar, g.NCols)
		for i, c := range row {
			if c.valid() {
				out[i] = Scalar(f(c))
			} else {
				out[i] = Scalar(math.NaN())
			}
		}
		cells[j] = out
	}
	return &ScalarGrid{grid: newGrid(d, cells, blendScalar), desc: d}
}

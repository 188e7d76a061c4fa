package field

import (
	"fmt"
	"math"
)

// ScalarGrid is a grid with a single number per cell
type ScalarGrid struct {
	*grid[Scalar]
	desc Descriptor
}

// NewScalarGrid builds a grid from row-major values (x-ascending, y-descending:
// the first ncols values are the northernmost row).
func NewScalarGrid(d Descriptor, values []float64) (*ScalarGrid, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if len(values) != d.NCols*d.NRows {
		return nil, fmt.Errorf("%w: got %d values, want %d x %d", ErrValueCount, len(values), d.NCols, d.NRows)
	}

	cells := make([][]Scalar, d.NRows)
	p := 0
	for j := 0; j < d.NRows; j++ {
		row := make([]Scalar, d.NCols)
		for i := 0; i < d.NCols; i++ {
			row[i] = scalarCell(d, values[p])
			p++
		}
		cells[j] = row
	}
	return &ScalarGrid{grid: newGrid(d, cells, blendScalar), desc: d}, nil
}

// NewScalarGridFromRows builds a grid from a 2-D source, rows[0] being the north row
func NewScalarGridFromRows(d Descriptor, rows [][]float64) (*ScalarGrid, error) {
	if len(rows) != d.NRows {
		return nil, fmt.Errorf("%w: got %d rows, want %d", ErrValueCount, len(rows), d.NRows)
	}
	values := make([]float64, 0, d.NCols*d.NRows)
	for j, row := range rows {
		if len(row) != d.NCols {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrValueCount, j, len(row), d.NCols)
		}
		values = append(values, row...)
	}
	return NewScalarGrid(d, values)
}

func scalarCell(d Descriptor, v float64) Scalar {
	if d.isNoData(v) {
		return Scalar(math.NaN())
	}
	return Scalar(v)
}

func blendScalar(c00, c10, c01, c11 Scalar, fx, fy float64) Scalar {
	return Scalar(bilinear(float64(c00), float64(c10), float64(c01), float64(c11), fx, fy))
}

// Kind returns KindScalar
func (g *ScalarGrid) Kind() Kind {
	return KindScalar
}

// Descriptor returns the descriptor the grid was built from
func (g *ScalarGrid) Descriptor() Descriptor {
	return g.desc
}

// ScalarAt is ValueAt without the interface conversion
func (g *ScalarGrid) ScalarAt(lon, lat float64) (Scalar, bool) {
	return g.valueAt(lon, lat)
}

// Values returns the cells in row-major order, NaN for no-data
func (g *ScalarGrid) Values() []float64 {
	values := make([]float64, 0, g.NumCells())
	for _, row := range g.cells {
		for _, c := range row {
			values = append(values, float64(c))
		}
	}
	return values
}

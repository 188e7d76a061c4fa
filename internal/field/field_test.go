package field

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

// exampleGrid is the 2x2 grid [[1,2],[3,4]] over [0,0,20,20], row 0 north
func exampleGrid(t *testing.T) *ScalarGrid {
	t.Helper()
	g, err := NewScalarGridFromRows(Descriptor{NCols: 2, NRows: 2, CellSize: 10}, [][]float64{
		{1, 2},
		{3, 4},
	})
	if err != nil {
		t.Fatalf("NewScalarGridFromRows() error = %v", err)
	}
	return g
}

func TestDescriptor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		desc    Descriptor
		wantErr bool
	}{
		{"valid", Descriptor{NCols: 2, NRows: 3, CellSize: 0.5}, false},
		{"zero cols", Descriptor{NCols: 0, NRows: 3, CellSize: 0.5}, true},
		{"negative rows", Descriptor{NCols: 2, NRows: -1, CellSize: 0.5}, true},
		{"zero cellsize", Descriptor{NCols: 2, NRows: 2, CellSize: 0}, true},
		{"negative cellsize", Descriptor{NCols: 2, NRows: 2, CellSize: -1}, true},
		{"nan cellsize", Descriptor{NCols: 2, NRows: 2, CellSize: math.NaN()}, true},
		{"too many cells", Descriptor{NCols: 3037000500, NRows: 3037000500, CellSize: 1}, true},
		{"largest allowed", Descriptor{NCols: MaxCells, NRows: 1, CellSize: 1}, false},
		{"infinite corner", Descriptor{NCols: 2, NRows: 2, CellSize: 1, XLLCorner: math.Inf(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("Validate() error = %v, want ErrInvalidDescriptor", err)
			}
		})
	}
}

func TestNewScalarGrid_ValueCount(t *testing.T) {
	_, err := NewScalarGrid(Descriptor{NCols: 2, NRows: 2, CellSize: 1}, []float64{1, 2, 3})
	if !errors.Is(err, ErrValueCount) {
		t.Errorf("NewScalarGrid() error = %v, want ErrValueCount", err)
	}

	_, err = NewScalarGridFromRows(Descriptor{NCols: 2, NRows: 2, CellSize: 1}, [][]float64{{1, 2}, {3}})
	if !errors.Is(err, ErrValueCount) {
		t.Errorf("NewScalarGridFromRows() error = %v, want ErrValueCount", err)
	}

	_, err = NewVectorGrid(Descriptor{NCols: 2, NRows: 1, CellSize: 1}, []float64{1, 2}, []float64{1})
	if !errors.Is(err, ErrValueCount) {
		t.Errorf("NewVectorGrid() error = %v, want ErrValueCount", err)
	}
}

func TestLattice_Geometry(t *testing.T) {
	g := exampleGrid(t)

	if got := g.NumCells(); got != 4 {
		t.Errorf("NumCells() = %d, want 4", got)
	}
	want := Extent{XMin: 0, YMin: 0, XMax: 20, YMax: 20}
	if got := g.Extent(); got != want {
		t.Errorf("Extent() = %+v, want %+v", got, want)
	}
	if got := g.LongitudeAtX(0); got != 5 {
		t.Errorf("LongitudeAtX(0) = %v, want 5", got)
	}
	if got := g.LatitudeAtY(0); got != 15 {
		t.Errorf("LatitudeAtY(0) = %v, want 15", got)
	}
	if lon, lat := g.LonLatAtIndexes(1, 1); lon != 15 || lat != 5 {
		t.Errorf("LonLatAtIndexes(1, 1) = (%v, %v), want (15, 5)", lon, lat)
	}
}

func TestLattice_Contains(t *testing.T) {
	g := exampleGrid(t)
	const eps = 1e-9

	tests := []struct {
		name     string
		lon, lat float64
		want     bool
	}{
		{"lower-left corner", g.XLLCorner, g.YLLCorner, true},
		{"upper-right corner", g.XURCorner, g.YURCorner, true},
		{"center", 10, 10, true},
		{"west of grid", g.XLLCorner - eps, 10, false},
		{"east of grid", g.XURCorner + eps, 10, false},
		{"south of grid", 10, g.YLLCorner - eps, false},
		{"far away", 100, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.Contains(tt.lon, tt.lat); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.lon, tt.lat, got, tt.want)
			}
			if got := g.NotContains(tt.lon, tt.lat); got == tt.want {
				t.Errorf("NotContains(%v, %v) = %v, want %v", tt.lon, tt.lat, got, !tt.want)
			}
		})
	}
}

func TestLattice_IndexRoundTrip(t *testing.T) {
	g, err := NewScalarGrid(Descriptor{
		NCols: 7, NRows: 5, XLLCorner: -71.3, YLLCorner: 40.1, CellSize: 0.125,
	}, make([]float64, 35))
	if err != nil {
		t.Fatalf("NewScalarGrid() error = %v", err)
	}

	for j := 0; j < g.NRows; j++ {
		for i := 0; i < g.NCols; i++ {
			lon, lat := g.LonLatAtIndexes(i, j)
			gi, gj, ok := g.IndexesAt(lon, lat)
			if !ok || gi != i || gj != j {
				t.Errorf("IndexesAt(LonLatAtIndexes(%d, %d)) = (%d, %d, %v)", i, j, gi, gj, ok)
			}
		}
	}

	// the north-east corner belongs to the last column of the first row
	if i, j, ok := g.IndexesAt(g.XURCorner, g.YURCorner); !ok || i != 6 || j != 0 {
		t.Errorf("IndexesAt(upper-right) = (%d, %d, %v), want (6, 0, true)", i, j, ok)
	}
	if _, _, ok := g.IndexesAt(0, 0); ok {
		t.Error("IndexesAt(outside) should not be ok")
	}
}

func TestScalarGrid_ValueAt(t *testing.T) {
	g := exampleGrid(t)

	tests := []struct {
		name     string
		lon, lat float64
		want     float64
		wantOK   bool
	}{
		{"north-west center", 5, 15, 1, true},
		{"north-east center", 15, 15, 2, true},
		{"south-west center", 5, 5, 3, true},
		{"south-east center", 15, 5, 4, true},
		{"middle of the four", 10, 10, 2.5, true},
		{"between north cells", 10, 15, 1.5, true},
		{"lower-left corner clamps", 0, 0, 3, true},
		{"outside extent", 100, 100, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := g.ValueAt(tt.lon, tt.lat)
			if ok != tt.wantOK {
				t.Fatalf("ValueAt(%v, %v) ok = %v, want %v", tt.lon, tt.lat, ok, tt.wantOK)
			}
			if !ok {
				if v != nil {
					t.Errorf("ValueAt() = %v, want nil", v)
				}
				return
			}
			if math.Abs(v.Magnitude()-tt.want) > 1e-12 {
				t.Errorf("ValueAt(%v, %v) = %v, want %v", tt.lon, tt.lat, v.Magnitude(), tt.want)
			}
		})
	}
}

func TestScalarGrid_CellCentersAreExact(t *testing.T) {
	values := []float64{0.3, 1.7, -2.25, 8, 4.5, 6.125}
	g, err := NewScalarGrid(Descriptor{NCols: 3, NRows: 2, XLLCorner: -10, YLLCorner: 30, CellSize: 0.5}, values)
	if err != nil {
		t.Fatalf("NewScalarGrid() error = %v", err)
	}
	for j := 0; j < g.NRows; j++ {
		for i := 0; i < g.NCols; i++ {
			lon, lat := g.LonLatAtIndexes(i, j)
			got, ok := g.ScalarAt(lon, lat)
			if !ok || float64(got) != values[j*g.NCols+i] {
				t.Errorf("ScalarAt(center %d,%d) = %v, %v; want %v", i, j, got, ok, values[j*g.NCols+i])
			}
		}
	}
}

func TestScalarGrid_NoDataPropagates(t *testing.T) {
	nodata := -9999.0
	g, err := NewScalarGrid(Descriptor{NCols: 2, NRows: 2, CellSize: 10, NoDataValue: &nodata},
		[]float64{1, 2, 3, nodata})
	if err != nil {
		t.Fatalf("NewScalarGrid() error = %v", err)
	}

	if _, ok := g.ValueAtIndexes(1, 1); ok {
		t.Error("ValueAtIndexes(1, 1) should be no-data")
	}
	// every interpolation touching the south-east cell is no-data
	for _, p := range [][2]float64{{10, 10}, {15, 5}, {14, 12}, {5, 5}} {
		if v, ok := g.ValueAt(p[0], p[1]); ok {
			t.Errorf("ValueAt(%v) = %v, want no-data", p, v)
		}
	}
	// the north-west corner only touches valid cells through clamping
	if v, ok := g.ValueAt(0, 20); !ok || v.Magnitude() != 1 {
		t.Errorf("ValueAt(0, 20) = %v, %v; want 1", v, ok)
	}
	// nearest lookup only needs the holding cell
	if v, ok := g.NearestValueAt(4, 16); !ok || v.Magnitude() != 1 {
		t.Errorf("NearestValueAt(4, 16) = %v, %v; want 1", v, ok)
	}
	if g.HasValueAt(15, 5) {
		t.Error("HasValueAt(15, 5) = true, want false")
	}

	min, max, ok := g.Range()
	if !ok || min != 1 || max != 3 {
		t.Errorf("Range() = %v, %v, %v; want 1, 3, true", min, max, ok)
	}
	if vals := g.Values(); !math.IsNaN(vals[3]) {
		t.Errorf("Values()[3] = %v, want NaN", vals[3])
	}
}

func TestScalarGrid_RangeAllNoData(t *testing.T) {
	g, err := NewScalarGrid(Descriptor{NCols: 1, NRows: 2, CellSize: 1}, []float64{math.NaN(), math.NaN()})
	if err != nil {
		t.Fatalf("NewScalarGrid() error = %v", err)
	}
	if _, _, ok := g.Range(); ok {
		t.Error("Range() ok = true for a grid without data")
	}
}

func TestVector_Directions(t *testing.T) {
	tests := []struct {
		name     string
		v        Vector
		wantTo   float64
		wantFrom float64
	}{
		{"northward", Vector{U: 0, V: 1}, 0, 180},
		{"eastward", Vector{U: 1, V: 0}, 90, 270},
		{"southward", Vector{U: 0, V: -1}, 180, 0},
		{"westward", Vector{U: -1, V: 0}, 270, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.DirectionTo(); math.Abs(got-tt.wantTo) > 1e-9 {
				t.Errorf("DirectionTo() = %v, want %v", got, tt.wantTo)
			}
			if got := tt.v.DirectionFrom(); math.Abs(got-tt.wantFrom) > 1e-9 {
				t.Errorf("DirectionFrom() = %v, want %v", got, tt.wantFrom)
			}
		})
	}
}

func TestVectorGrid_InterpolatesComponents(t *testing.T) {
	a := VectorFromDirection(1, 350)
	b := VectorFromDirection(1, 10)
	g, err := NewVectorGrid(Descriptor{NCols: 2, NRows: 1, CellSize: 1},
		[]float64{a.U, b.U}, []float64{a.V, b.V})
	if err != nil {
		t.Fatalf("NewVectorGrid() error = %v", err)
	}

	mid, ok := g.VectorAt(1, 0.5)
	if !ok {
		t.Fatal("VectorAt(midpoint) returned no value")
	}
	dir := mid.DirectionFrom()
	if d := math.Min(dir, 360-dir); d > 1e-6 {
		t.Errorf("DirectionFrom() at midpoint = %v, want near 0/360", dir)
	}
	if want := math.Cos(10 * math.Pi / 180); math.Abs(mid.Magnitude()-want) > 1e-9 {
		t.Errorf("Magnitude() at midpoint = %v, want %v", mid.Magnitude(), want)
	}
}

func TestVectorGrid_NoDataAndDerived(t *testing.T) {
	nodata := -999.0
	g, err := NewVectorGrid(Descriptor{NCols: 2, NRows: 1, CellSize: 1, NoDataValue: &nodata},
		[]float64{3, nodata}, []float64{4, 1})
	if err != nil {
		t.Fatalf("NewVectorGrid() error = %v", err)
	}
	if g.Kind() != KindVector {
		t.Errorf("Kind() = %v, want %v", g.Kind(), KindVector)
	}
	if _, ok := g.ValueAt(1, 0.5); ok {
		t.Error("ValueAt() next to a no-data cell should be no-data")
	}

	mags := g.Magnitudes()
	if v, ok := mags.ValueAtIndexes(0, 0); !ok || v.Magnitude() != 5 {
		t.Errorf("Magnitudes()[0,0] = %v, %v; want 5", v, ok)
	}
	if _, ok := mags.ValueAtIndexes(1, 0); ok {
		t.Error("Magnitudes()[1,0] should be no-data")
	}
	if min, max, ok := g.Range(); !ok || min != 5 || max != 5 {
		t.Errorf("Range() = %v, %v, %v; want 5, 5, true", min, max, ok)
	}

	dirs := g.Directions()
	want := Vector{U: 3, V: 4}.DirectionFrom()
	if v, ok := dirs.ValueAtIndexes(0, 0); !ok || math.Abs(v.Magnitude()-want) > 1e-9 {
		t.Errorf("Directions()[0,0] = %v, want %v", v, want)
	}
}

func TestPoints(t *testing.T) {
	g := exampleGrid(t)
	points := g.Points()
	if len(points) != 4 {
		t.Fatalf("Points() returned %d points, want 4", len(points))
	}
	want := []Point{
		{Lon: 5, Lat: 15, Value: Scalar(1)},
		{Lon: 15, Lat: 15, Value: Scalar(2)},
		{Lon: 5, Lat: 5, Value: Scalar(3)},
		{Lon: 15, Lat: 5, Value: Scalar(4)},
	}
	for i, p := range points {
		if p != want[i] {
			t.Errorf("Points()[%d] = %+v, want %+v", i, p, want[i])
		}
	}
}

func TestRandomPosition_Reproducible(t *testing.T) {
	g := exampleGrid(t)
	r1 := rand.New(rand.NewPCG(1, 2))
	r2 := rand.New(rand.NewPCG(1, 2))

	for n := 0; n < 20; n++ {
		lon1, lat1 := g.RandomPosition(r1)
		lon2, lat2 := g.RandomPosition(r2)
		if lon1 != lon2 || lat1 != lat2 {
			t.Fatalf("RandomPosition() not reproducible: (%v,%v) vs (%v,%v)", lon1, lat1, lon2, lat2)
		}
		if _, _, ok := g.IndexesAt(lon1, lat1); !ok {
			t.Fatalf("RandomPosition() = (%v,%v) is outside the grid", lon1, lat1)
		}
		if lon1 != 5 && lon1 != 15 || lat1 != 5 && lat1 != 15 {
			t.Fatalf("RandomPosition() = (%v,%v) is not a cell center", lon1, lat1)
		}
	}
}

package gridio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ngmaloney/marine-fieldmap/internal/field"
)

const sampleGrid = `ncols        3
nrows        2
xllcorner    -71.0
yllcorner    42.0
cellsize     0.5
NODATA_value -9999
1 2 3
4 -9999 6
`

func TestReadASCIIGrid(t *testing.T) {
	d, values, err := ReadASCIIGrid(strings.NewReader(sampleGrid))
	if err != nil {
		t.Fatalf("ReadASCIIGrid() error = %v", err)
	}
	if d.NCols != 3 || d.NRows != 2 || d.XLLCorner != -71 || d.YLLCorner != 42 || d.CellSize != 0.5 {
		t.Errorf("descriptor = %+v", d)
	}
	if d.NoDataValue == nil || *d.NoDataValue != -9999 {
		t.Errorf("NoDataValue = %v, want -9999", d.NoDataValue)
	}
	if len(values) != 6 {
		t.Fatalf("got %d values, want 6", len(values))
	}
	if values[0] != 1 || values[5] != 6 {
		t.Errorf("values = %v", values)
	}
	if !math.IsNaN(values[4]) {
		t.Errorf("no-data value = %v, want NaN", values[4])
	}
}

func TestReadASCIIGrid_CenterHeader(t *testing.T) {
	src := "NCOLS 2\nNROWS 1\nXLLCENTER 0.5\nYLLCENTER 10.5\nCELLSIZE 1\n7 8\n"
	d, _, err := ReadASCIIGrid(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadASCIIGrid() error = %v", err)
	}
	if d.XLLCorner != 0 || d.YLLCorner != 10 {
		t.Errorf("corner = (%v, %v), want (0, 10)", d.XLLCorner, d.YLLCorner)
	}
	if d.NoDataValue != nil {
		t.Errorf("NoDataValue = %v, want nil", *d.NoDataValue)
	}
}

func TestReadASCIIGrid_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"missing cellsize", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\n5\n", ErrHeader},
		{"missing corner", "ncols 1\nnrows 1\ncellsize 1\nyllcorner 0\n5\n", ErrHeader},
		{"corner and center", "ncols 1\nnrows 1\nxllcorner 0\nxllcenter 0\nyllcorner 0\ncellsize 1\n5\n", ErrHeader},
		{"repeated key", "ncols 1\nncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n5\n", ErrHeader},
		{"bad header value", "ncols one\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n5\n", ErrHeader},
		{"fractional cols", "ncols 2.7\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2\n", ErrHeader},
		{"huge cols", "ncols 1e300\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1\n", ErrHeader},
		{"too many cells", "ncols 3037000500\nnrows 3037000500\nxllcorner 0\nyllcorner 0\ncellsize 1\n1\n", ErrHeader},
		{"zero rows", "ncols 1\nnrows 0\nxllcorner 0\nyllcorner 0\ncellsize 1\n", field.ErrInvalidDescriptor},
		{"too few values", "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n", field.ErrValueCount},
		{"too many values", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2\n", field.ErrValueCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadASCIIGrid(strings.NewReader(tt.src))
			if !errors.Is(err, tt.want) {
				t.Errorf("ReadASCIIGrid() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, _, err := ReadASCIIGrid(strings.NewReader("ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\nabc\n")); err == nil {
		t.Error("ReadASCIIGrid() with a non-numeric value should fail")
	}
}

func TestReadScalar(t *testing.T) {
	g, err := ReadScalar(strings.NewReader(sampleGrid))
	if err != nil {
		t.Fatalf("ReadScalar() error = %v", err)
	}
	if v, ok := g.ValueAtIndexes(2, 0); !ok || v.Magnitude() != 3 {
		t.Errorf("ValueAtIndexes(2, 0) = %v, %v, want 3", v, ok)
	}
	if _, ok := g.ValueAtIndexes(1, 1); ok {
		t.Error("no-data cell has a value")
	}
}

func TestReadVector(t *testing.T) {
	u := "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 0\n"
	v := "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n0 1\n"
	g, err := ReadVector(strings.NewReader(u), strings.NewReader(v))
	if err != nil {
		t.Fatalf("ReadVector() error = %v", err)
	}
	if got, _ := g.ValueAtIndexes(1, 0); got.(field.Vector) != (field.Vector{U: 0, V: 1}) {
		t.Errorf("cell (1, 0) = %v, want (0, 1)", got)
	}

	shifted := "ncols 2\nnrows 1\nxllcorner 1\nyllcorner 0\ncellsize 1\n0 1\n"
	if _, err := ReadVector(strings.NewReader(u), strings.NewReader(shifted)); !errors.Is(err, ErrMismatch) {
		t.Errorf("ReadVector() of shifted grids error = %v, want ErrMismatch", err)
	}
}

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantKind field.Kind
		wantErr  bool
	}{
		{"scalar", `{"ncols":2,"nrows":1,"xllcorner":0,"yllcorner":0,"cellsize":1,"zs":[1,null]}`, field.KindScalar, false},
		{"vector", `{"ncols":1,"nrows":1,"xllcorner":0,"yllcorner":0,"cellsize":1,"us":[1],"vs":[2]}`, field.KindVector, false},
		{"no values", `{"ncols":1,"nrows":1,"xllcorner":0,"yllcorner":0,"cellsize":1}`, "", true},
		{"wrong count", `{"ncols":2,"nrows":2,"xllcorner":0,"yllcorner":0,"cellsize":1,"zs":[1]}`, "", true},
		{"too many cells", `{"ncols":3037000500,"nrows":3037000500,"xllcorner":0,"yllcorner":0,"cellsize":1,"zs":[1]}`, "", true},
		{"fractional cols", `{"ncols":2.7,"nrows":1,"xllcorner":0,"yllcorner":0,"cellsize":1,"zs":[1,2]}`, "", true},
		{"not json", `ncols 1`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ReadJSON(strings.NewReader(tt.src))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ReadJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && f.Kind() != tt.wantKind {
				t.Errorf("ReadJSON() kind = %v, want %v", f.Kind(), tt.wantKind)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
		return path
	}
	asc := write("sst.asc", sampleGrid)
	u := write("u.asc", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n3\n")
	v := write("v.asc", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n4\n")
	js := write("grid.json", `{"ncols":1,"nrows":1,"xllcorner":0,"yllcorner":0,"cellsize":1,"zs":[5]}`)
	bad := write("grid.nc", "")

	if f, err := Open(asc); err != nil || f.Kind() != field.KindScalar {
		t.Errorf("Open(asc) = %v, %v", f, err)
	}
	if f, err := Open(js); err != nil || f.Kind() != field.KindScalar {
		t.Errorf("Open(json) = %v, %v", f, err)
	}
	f, err := Open(u, v)
	if err != nil {
		t.Fatalf("Open(u, v) error = %v", err)
	}
	if got, _ := f.ValueAtIndexes(0, 0); got.Magnitude() != 5 {
		t.Errorf("Open(u, v) magnitude = %v, want 5", got.Magnitude())
	}
	if _, err := Open(bad); !errors.Is(err, ErrFormat) {
		t.Errorf("Open(.nc) error = %v, want ErrFormat", err)
	}
	if _, err := Open(); !errors.Is(err, ErrFormat) {
		t.Errorf("Open() error = %v, want ErrFormat", err)
	}
}

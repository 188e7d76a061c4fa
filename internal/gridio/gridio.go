// Package gridio reads grids from ESRI ASCII raster files and from the JSON
// layout used by web map clients ({"ncols":..., "zs":[...]} or "us"/"vs").
package gridio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ngmaloney/marine-fieldmap/internal/field"
)

var (
	// ErrHeader is returned for a missing, repeated or malformed header line
	ErrHeader = errors.New("invalid ASCII grid header")

	// ErrMismatch is returned when the u and v grids of a vector field do not
	// share a lattice
	ErrMismatch = errors.New("u and v grids do not match")

	// ErrFormat is returned for a file extension gridio cannot read
	ErrFormat = errors.New("unsupported grid format")
)

const maxToken = 1024 * 1024

// header keys, lowercased
const (
	keyNCols     = "ncols"
	keyNRows     = "nrows"
	keyXLLCorner = "xllcorner"
	keyYLLCorner = "yllcorner"
	keyXLLCenter = "xllcenter"
	keyYLLCenter = "yllcenter"
	keyCellSize  = "cellsize"
	keyNoData    = "nodata_value"
)

func isHeaderKey(s string) bool {
	switch s {
	case keyNCols, keyNRows, keyXLLCorner, keyYLLCorner, keyXLLCenter, keyYLLCenter, keyCellSize, keyNoData:
		return true
	}
	return false
}

// ReadASCIIGrid parses an ESRI ASCII raster. Values are returned row-major
// from the northern row down, NoDataValue cells converted to NaN.
func ReadASCIIGrid(r io.Reader) (field.Descriptor, []float64, error) {
	var d field.Descriptor

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxToken)
	sc.Split(bufio.ScanWords)

	header := make(map[string]float64)
	var first string
	for sc.Scan() {
		key := strings.ToLower(sc.Text())
		if !isHeaderKey(key) {
			first = sc.Text()
			break
		}
		if _, dup := header[key]; dup {
			return d, nil, fmt.Errorf("%w: repeated %s", ErrHeader, key)
		}
		if !sc.Scan() {
			return d, nil, fmt.Errorf("%w: %s has no value", ErrHeader, key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return d, nil, fmt.Errorf("%w: %s: %v", ErrHeader, key, err)
		}
		header[key] = v
	}
	if err := sc.Err(); err != nil {
		return d, nil, fmt.Errorf("reading grid: %w", err)
	}

	if err := applyHeader(&d, header); err != nil {
		return d, nil, err
	}
	if err := d.Validate(); err != nil {
		return d, nil, err
	}

	n := d.NCols * d.NRows
	values := make([]float64, 0, n)
	parse := func(tok string) error {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("parsing value %d: %w", len(values), err)
		}
		if d.NoDataValue != nil && v == *d.NoDataValue {
			v = math.NaN()
		}
		values = append(values, v)
		return nil
	}
	if first != "" {
		if err := parse(first); err != nil {
			return d, nil, err
		}
	}
	for sc.Scan() {
		if err := parse(sc.Text()); err != nil {
			return d, nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return d, nil, fmt.Errorf("reading grid: %w", err)
	}
	if len(values) != n {
		return d, nil, fmt.Errorf("%w: got %d values for %dx%d", field.ErrValueCount, len(values), d.NCols, d.NRows)
	}
	return d, values, nil
}

func applyHeader(d *field.Descriptor, h map[string]float64) error {
	for _, k := range []string{keyNCols, keyNRows, keyCellSize} {
		if _, ok := h[k]; !ok {
			return fmt.Errorf("%w: missing %s", ErrHeader, k)
		}
	}
	var err error
	if d.NCols, err = count(h, keyNCols); err != nil {
		return err
	}
	if d.NRows, err = count(h, keyNRows); err != nil {
		return err
	}
	d.CellSize = h[keyCellSize]

	if d.XLLCorner, err = corner(h, keyXLLCorner, keyXLLCenter, d.CellSize); err != nil {
		return err
	}
	if d.YLLCorner, err = corner(h, keyYLLCorner, keyYLLCenter, d.CellSize); err != nil {
		return err
	}
	if v, ok := h[keyNoData]; ok {
		d.NoDataValue = &v
	}
	return nil
}

// count reads a row or column count, which must be a whole number no larger
// than field.MaxCells
func count(h map[string]float64, key string) (int, error) {
	v := h[key]
	if v != math.Trunc(v) || v < 0 || v > field.MaxCells {
		return 0, fmt.Errorf("%w: %s %v is not a valid count", ErrHeader, key, v)
	}
	return int(v), nil
}

// corner resolves the lower-left corner from either the corner or the center
// form of the header
func corner(h map[string]float64, cornerKey, centerKey string, cellSize float64) (float64, error) {
	c, hasCorner := h[cornerKey]
	m, hasCenter := h[centerKey]
	switch {
	case hasCorner && hasCenter:
		return 0, fmt.Errorf("%w: both %s and %s", ErrHeader, cornerKey, centerKey)
	case hasCorner:
		return c, nil
	case hasCenter:
		return m - cellSize/2, nil
	}
	return 0, fmt.Errorf("%w: missing %s", ErrHeader, cornerKey)
}

// ReadScalar reads an ESRI ASCII raster into a scalar grid
func ReadScalar(r io.Reader) (*field.ScalarGrid, error) {
	d, values, err := ReadASCIIGrid(r)
	if err != nil {
		return nil, err
	}
	return field.NewScalarGrid(d, values)
}

// ReadVector pairs two ESRI ASCII rasters holding the u and v components
func ReadVector(u, v io.Reader) (*field.VectorGrid, error) {
	du, us, err := ReadASCIIGrid(u)
	if err != nil {
		return nil, fmt.Errorf("reading u grid: %w", err)
	}
	dv, vs, err := ReadASCIIGrid(v)
	if err != nil {
		return nil, fmt.Errorf("reading v grid: %w", err)
	}
	if !sameLattice(du, dv) {
		return nil, ErrMismatch
	}
	return field.NewVectorGrid(du, us, vs)
}

func sameLattice(a, b field.Descriptor) bool {
	return a.NCols == b.NCols && a.NRows == b.NRows &&
		a.XLLCorner == b.XLLCorner && a.YLLCorner == b.YLLCorner &&
		a.CellSize == b.CellSize
}

type jsonGrid struct {
	field.Descriptor
	Zs []*float64 `json:"zs"`
	Us []*float64 `json:"us"`
	Vs []*float64 `json:"vs"`
}

// ReadJSON reads a grid object; "zs" gives a scalar grid, "us" and "vs" a
// vector grid. Null entries are no-data.
func ReadJSON(r io.Reader) (field.Field, error) {
	var g jsonGrid
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("decoding grid: %w", err)
	}
	switch {
	case g.Zs != nil:
		return field.NewScalarGrid(g.Descriptor, floats(g.Zs))
	case g.Us != nil && g.Vs != nil:
		return field.NewVectorGrid(g.Descriptor, floats(g.Us), floats(g.Vs))
	}
	return nil, fmt.Errorf("decoding grid: %w: neither zs nor us/vs present", ErrFormat)
}

func floats(ps []*float64) []float64 {
	out := make([]float64, len(ps))
	for k, p := range ps {
		if p == nil {
			out[k] = math.NaN()
			continue
		}
		out[k] = *p
	}
	return out
}

// Open reads one file (.asc or .json) as a grid, or two .asc files as the u
// and v components of a vector grid
func Open(paths ...string) (field.Field, error) {
	switch len(paths) {
	case 1:
		f, err := os.Open(paths[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()

		switch strings.ToLower(filepath.Ext(paths[0])) {
		case ".json":
			return ReadJSON(f)
		case ".asc", ".txt":
			return ReadScalar(f)
		}
		return nil, fmt.Errorf("%w: %s", ErrFormat, paths[0])
	case 2:
		u, err := os.Open(paths[0])
		if err != nil {
			return nil, err
		}
		defer u.Close()
		v, err := os.Open(paths[1])
		if err != nil {
			return nil, err
		}
		defer v.Close()
		return ReadVector(u, v)
	}
	return nil, fmt.Errorf("%w: expected 1 or 2 files, got %d", ErrFormat, len(paths))
}

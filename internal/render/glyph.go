package render

import (
	"fmt"
	"math"

	"github.com/ngmaloney/marine-fieldmap/internal/colorscale"
	"github.com/ngmaloney/marine-fieldmap/internal/field"
	"github.com/ngmaloney/marine-fieldmap/internal/viewport"
)

// Glyph is one arrow to draw at a grid cell center
type Glyph struct {
	X, Y float64 // container pixels

	// Angle rotates the arrow from the +x axis, clockwise on screen (y grows
	// downward), in radians.
	Angle float64
	Size  float64
	Color colorscale.Color

	Value    field.Value
	Lon, Lat float64
}

// Pt is a point in glyph or container coordinates
type Pt struct {
	X, Y float64
}

// ArrowPath returns the unrotated arrow of length size centered on the origin
// and pointing along +x: a shaft and a two-sided head.
func ArrowPath(size float64) [][]Pt {
	return [][]Pt{
		{{-size / 2, 0}, {size / 2, 0}},
		{{size * 0.25, -size * 0.25}, {size / 2, 0}, {size * 0.25, size * 0.25}},
	}
}

// CommandKind identifies a canvas operation
type CommandKind int

const (
	CmdTranslate CommandKind = iota
	CmdRotate
	CmdStroke
)

// Command is a canvas operation in the order a 2-D context would apply it
type Command struct {
	Kind  CommandKind
	X, Y  float64 // CmdTranslate
	Angle float64 // CmdRotate
	Path  [][]Pt  // CmdStroke
	Color colorscale.Color
}

// Commands returns translate, rotate and stroke for the glyph
func (g Glyph) Commands() []Command {
	return []Command{
		{Kind: CmdTranslate, X: g.X, Y: g.Y},
		{Kind: CmdRotate, Angle: g.Angle},
		{Kind: CmdStroke, Path: ArrowPath(g.Size), Color: g.Color},
	}
}

// Polylines returns the arrow in container coordinates
func (g Glyph) Polylines() [][]Pt {
	sin, cos := math.Sincos(g.Angle)
	path := ArrowPath(g.Size)
	for _, line := range path {
		for k, p := range line {
			line[k] = Pt{
				X: g.X + p.X*cos - p.Y*sin,
				Y: g.Y + p.X*sin + p.Y*cos,
			}
		}
	}
	return path
}

// GlyphAngle converts a direction in degrees clockwise from north to the
// on-screen rotation of the arrow
func GlyphAngle(directionDeg float64, o Orientation) float64 {
	angle := (90 + directionDeg) * math.Pi / 180
	if o == OrientationTowards {
		angle += math.Pi
	}
	return angle
}

// GlyphStride is the number of cells between drawn arrows so that arrows of
// glyphSize pixels do not overlap when a cell spans pixelSize pixels
func GlyphStride(glyphSize, pixelSize float64) int {
	if !(pixelSize > 0) || math.IsInf(pixelSize, 0) {
		return 1
	}
	stride := int(math.Floor(1.2 * glyphSize / pixelSize))
	if stride < 1 {
		return 1
	}
	return stride
}

// Glyphs returns one arrow per sampled cell center inside the viewport.
// Cells are sampled every GlyphStride cells in both directions; a center next
// to a no-data cell has no interpolated value and gets no arrow.
func Glyphs(f field.Field, vp viewport.Viewport, opts Options) ([]Glyph, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	colorFn := opts.Color
	if colorFn == nil {
		colorFn = DefaultColor(f)
	}

	g := f.Geometry()
	ext := f.Extent()
	west, _ := vp.GeoToContainerPoint(ext.XMin, ext.YMax)
	east, _ := vp.GeoToContainerPoint(ext.XMax, ext.YMin)
	pixelSize := (east - west) / float64(g.NCols)
	stride := GlyphStride(opts.GlyphSize, pixelSize)

	iMin, iMax, jMin, jMax, ok := visibleWindow(g, vp)
	if !ok {
		return nil, nil
	}
	// align to the stride so the same cells stay selected while panning
	iMin -= iMin % stride
	jMin -= jMin % stride

	var glyphs []Glyph
	for y := jMin; y <= jMax; y += stride {
		for x := iMin; x <= iMax; x += stride {
			lon, lat := f.LonLatAtIndexes(x, y)
			v, ok := f.ValueAt(lon, lat)
			if !ok || !vp.Contains(lon, lat) {
				continue
			}
			c := colorFn(v.Magnitude())
			if !c.Valid() {
				return nil, fmt.Errorf("%w: %+v for value %v at cell (%d, %d)",
					ErrInvalidColor, c, v.Magnitude(), x, y)
			}
			px, py := vp.GeoToContainerPoint(lon, lat)
			glyphs = append(glyphs, Glyph{
				X:     px,
				Y:     py,
				Angle: GlyphAngle(v.Direction(), opts.Orientation),
				Size:  opts.GlyphSize,
				Color: c,
				Value: v,
				Lon:   lon,
				Lat:   lat,
			})
		}
	}
	return glyphs, nil
}

// visibleWindow returns the column and row range of the cells overlapping the
// viewport bounds
func visibleWindow(g field.Lattice, vp viewport.Viewport) (iMin, iMax, jMin, jMax int, ok bool) {
	b := vp.Bounds()
	if math.IsNaN(b.Min.X) || math.IsNaN(b.Max.X) || math.IsNaN(b.Min.Y) || math.IsNaN(b.Max.Y) {
		return 0, g.NCols - 1, 0, g.NRows - 1, true
	}
	if b.Max.X < g.XLLCorner || b.Min.X > g.XURCorner ||
		b.Max.Y < g.YLLCorner || b.Min.Y > g.YURCorner {
		return 0, 0, 0, 0, false
	}
	iMin = clamp(int(math.Floor((b.Min.X-g.XLLCorner)/g.CellSize)), 0, g.NCols-1)
	iMax = clamp(int(math.Floor((b.Max.X-g.XLLCorner)/g.CellSize)), 0, g.NCols-1)
	jMin = clamp(int(math.Floor((g.YURCorner-b.Max.Y)/g.CellSize)), 0, g.NRows-1)
	jMax = clamp(int(math.Floor((g.YURCorner-b.Min.Y)/g.CellSize)), 0, g.NRows-1)
	return iMin, iMax, jMin, jMax, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package render draws a field over a viewport, either as a raster of colored
// pixels or as a set of oriented arrow glyphs.
package render

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ngmaloney/marine-fieldmap/internal/colorscale"
)

var (
	ErrUnknownMode        = errors.New("unknown renderer mode")
	ErrUnknownOrientation = errors.New("unknown glyph orientation")
	ErrInvalidStep        = errors.New("sample step must be 1 or 2")
	ErrInvalidGlyphSize   = errors.New("glyph size must be positive")

	// ErrInvalidColor is returned when the color function yields a color with
	// non-finite channels or an alpha outside [0, 1].
	ErrInvalidColor = errors.New("invalid color")
)

// Mode selects how a layer draws its field
type Mode int

const (
	ModeColormap Mode = iota
	ModeVector
)

func (m Mode) String() string {
	switch m {
	case ModeColormap:
		return "colormap"
	case ModeVector:
		return "vector"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode reads "colormap" or "vector"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "colormap", "":
		return ModeColormap, nil
	case "vector":
		return ModeVector, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Orientation is the arrow convention for directions
type Orientation int

const (
	// OrientationFrom points arrows where the flow comes from
	OrientationFrom Orientation = iota
	// OrientationTowards points arrows where the flow goes
	OrientationTowards
)

func (o Orientation) String() string {
	switch o {
	case OrientationFrom:
		return "from"
	case OrientationTowards:
		return "towards"
	default:
		return fmt.Sprintf("Orientation(%d)", int(o))
	}
}

// ParseOrientation reads "from" or "towards"
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "from", "":
		return OrientationFrom, nil
	case "towards", "to":
		return OrientationTowards, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOrientation, s)
}

// Options configures a render pass
type Options struct {
	Mode Mode

	// Color maps a value magnitude to a color. When nil, a grayscale ramp over the
	// field range is used.
	Color colorscale.Func

	// Interpolate selects bilinear lookups for the raster; otherwise the value of
	// the cell under each pixel is used.
	Interpolate bool

	// GlyphSize is the arrow length in pixels
	GlyphSize float64

	Orientation Orientation

	// SampleStep is the raster sampling stride. With 2, one sample is taken per
	// 2x2 pixel block and copied into the whole block: a quarter of the lookups
	// for half the resolution.
	SampleStep int
}

// DefaultOptions returns a colormap configuration with 2x2 sampling
func DefaultOptions() Options {
	return Options{
		Mode:        ModeColormap,
		Interpolate: false,
		GlyphSize:   20,
		Orientation: OrientationFrom,
		SampleStep:  2,
	}
}

// Validate fails on any setting a render pass could not honor
func (o Options) Validate() error {
	if o.Mode != ModeColormap && o.Mode != ModeVector {
		return fmt.Errorf("%w: %v", ErrUnknownMode, o.Mode)
	}
	if o.Orientation != OrientationFrom && o.Orientation != OrientationTowards {
		return fmt.Errorf("%w: %v", ErrUnknownOrientation, o.Orientation)
	}
	if o.SampleStep != 1 && o.SampleStep != 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidStep, o.SampleStep)
	}
	if o.Mode == ModeVector && (!(o.GlyphSize > 0) || math.IsInf(o.GlyphSize, 0)) {
		return fmt.Errorf("%w: got %v", ErrInvalidGlyphSize, o.GlyphSize)
	}
	return nil
}

// StepForZoom picks the raster sample step for a zoom level: full resolution
// from fullResZoom on, 2x2 blocks below it.
func StepForZoom(zoom, fullResZoom float64) int {
	if zoom >= fullResZoom {
		return 1
	}
	return 2
}

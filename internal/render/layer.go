package render

import (
	"image"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ngmaloney/marine-fieldmap/internal/colorscale"
	"github.com/ngmaloney/marine-fieldmap/internal/field"
	"github.com/ngmaloney/marine-fieldmap/internal/viewport"
)

// Frame is the output of one render pass
type Frame struct {
	Mode          Mode
	Width, Height int

	Image  *image.NRGBA // ModeColormap
	Glyphs []Glyph      // ModeVector
}

// Layer draws one field with a fixed configuration. A Layer is not safe for
// concurrent Draw calls; use one per viewport.
type Layer struct {
	// Log receives pass timings at debug level. It defaults to the logrus
	// standard logger.
	Log logrus.FieldLogger

	name  string
	field field.Field
	opts  Options
	draw  func(vp viewport.Viewport) (*Frame, error)
}

// NewLayer checks opts and returns a layer for f. Configuration errors are
// reported here rather than on the first Draw.
func NewLayer(name string, f field.Field, opts Options) (*Layer, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	l := &Layer{
		Log:   logrus.StandardLogger(),
		name:  name,
		field: f,
		opts:  opts,
	}
	switch opts.Mode {
	case ModeColormap:
		l.draw = l.drawImage
	case ModeVector:
		l.draw = l.drawArrows
	}
	return l, nil
}

// Name returns the layer name
func (l *Layer) Name() string {
	return l.name
}

// Field returns the field the layer draws
func (l *Layer) Field() field.Field {
	return l.field
}

// Options returns the current configuration
func (l *Layer) Options() Options {
	return l.opts
}

// SetColor replaces the color function; nil restores the default ramp
func (l *Layer) SetColor(fn colorscale.Func) {
	l.opts.Color = fn
}

// Draw renders the field over vp
func (l *Layer) Draw(vp viewport.Viewport) (*Frame, error) {
	l.ensureColor()
	start := time.Now()
	frame, err := l.draw(vp)
	if err != nil {
		return nil, err
	}
	l.Log.WithFields(logrus.Fields{
		"layer":   l.name,
		"mode":    l.opts.Mode,
		"glyphs":  len(frame.Glyphs),
		"elapsed": time.Since(start),
	}).Debug("render pass")
	return frame, nil
}

// Probe returns the value under the container pixel (x, y), interpolated when
// the layer interpolates
func (l *Layer) Probe(vp viewport.Viewport, x, y float64) (lon, lat float64, v field.Value, ok bool) {
	lon, lat = vp.ContainerPointToGeo(x, y)
	if l.opts.Interpolate {
		v, ok = l.field.ValueAt(lon, lat)
	} else {
		v, ok = l.field.NearestValueAt(lon, lat)
	}
	return lon, lat, v, ok
}

func (l *Layer) ensureColor() {
	if l.opts.Color == nil {
		l.opts.Color = DefaultColor(l.field)
	}
}

func (l *Layer) drawImage(vp viewport.Viewport) (*Frame, error) {
	img, err := Raster(l.field, vp, l.opts)
	if err != nil {
		return nil, err
	}
	w, h := vp.Size()
	return &Frame{Mode: ModeColormap, Width: w, Height: h, Image: img}, nil
}

func (l *Layer) drawArrows(vp viewport.Viewport) (*Frame, error) {
	glyphs, err := Glyphs(l.field, vp, l.opts)
	if err != nil {
		return nil, err
	}
	w, h := vp.Size()
	return &Frame{Mode: ModeVector, Width: w, Height: h, Glyphs: glyphs}, nil
}

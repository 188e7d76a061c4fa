package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ngmaloney/marine-fieldmap/internal/colorscale"
	"github.com/ngmaloney/marine-fieldmap/internal/field"
	"github.com/ngmaloney/marine-fieldmap/internal/viewport"
)

// Raster fills a new image the size of the viewport with the colors of the
// field under each pixel. Pixels with no value stay transparent.
//
// With opts.SampleStep == 2 only the top-left pixel of every 2x2 block is
// sampled and its color is copied into the rest of the block. Blocks on the
// last column or row of an odd-sized image are cut at the image edge.
func Raster(f field.Field, vp viewport.Viewport, opts Options) (*image.NRGBA, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	colorFn := opts.Color
	if colorFn == nil {
		colorFn = DefaultColor(f)
	}
	lookup := f.NearestValueAt
	if opts.Interpolate {
		lookup = f.ValueAt
	}

	width, height := vp.Size()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	step := opts.SampleStep

	for py := 0; py < height; py += step {
		for px := 0; px < width; px += step {
			lon, lat := vp.ContainerPointToGeo(float64(px), float64(py))
			if math.IsNaN(lon) || math.IsNaN(lat) {
				continue
			}
			v, ok := lookup(lon, lat)
			if !ok {
				continue
			}
			c := colorFn(v.Magnitude())
			if !c.Valid() {
				return nil, fmt.Errorf("%w: %+v for value %v at pixel (%d, %d)",
					ErrInvalidColor, c, v.Magnitude(), px, py)
			}
			fillBlock(img, px, py, step, c.NRGBA())
		}
	}
	return img, nil
}

// fillBlock writes c into the step x step block whose top-left pixel is (x, y),
// clipped to the image
func fillBlock(img *image.NRGBA, x, y, step int, c color.NRGBA) {
	maxX, maxY := img.Rect.Max.X, img.Rect.Max.Y
	for dy := 0; dy < step && y+dy < maxY; dy++ {
		off := img.PixOffset(x, y+dy)
		for dx := 0; dx < step && x+dx < maxX; dx++ {
			p := img.Pix[off+4*dx : off+4*dx+4 : off+4*dx+4]
			p[0] = c.R
			p[1] = c.G
			p[2] = c.B
			p[3] = c.A
		}
	}
}

// DefaultColor is the white to black ramp over the field's value range
func DefaultColor(f field.Field) colorscale.Func {
	min, max, ok := f.Range()
	if !ok {
		min, max = 0, 1
	}
	return colorscale.Grayscale(min, max)
}

// Package colorscale maps field values to colors.
//
// A Func is the opaque value -> color mapping the renderers and the legend use;
// this package provides the uniform, linear and named ramps built on go-colorful
// and the gonum palettes.
package colorscale

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// Color is an RGB color with a fractional opacity in [0, 1]
type Color struct {
	colorful.Color
	Alpha float64
}

// Func maps a value to a color
type Func func(v float64) Color

var (
	White       = Color{Color: colorful.Color{R: 1, G: 1, B: 1}, Alpha: 1}
	Black       = Color{Color: colorful.Color{R: 0, G: 0, B: 0}, Alpha: 1}
	Transparent = Color{}
)

// Valid reports whether every channel is finite and inside [0, 1]
func (c Color) Valid() bool {
	for _, ch := range []float64{c.R, c.G, c.B, c.Alpha} {
		if math.IsNaN(ch) || ch < 0 || ch > 1 {
			return false
		}
	}
	return true
}

// RGBA8 returns the channels as bytes; alpha is round(alpha*255)
func (c Color) RGBA8() (r, g, b, a uint8) {
	r, g, b = c.Clamped().RGB255()
	a = uint8(math.Round(c.Alpha * 255))
	return r, g, b, a
}

// NRGBA converts to the non-premultiplied image/color type
func (c Color) NRGBA() color.NRGBA {
	r, g, b, a := c.RGBA8()
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

// FromColor converts any image/color value
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{
		Color: colorful.Color{R: float64(n.R) / 255, G: float64(n.G) / 255, B: float64(n.B) / 255},
		Alpha: float64(n.A) / 255,
	}
}

// Parse reads a "#rrggbb" hex color or one of a few common names
func Parse(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white":
		return White, nil
	case "black":
		return Black, nil
	case "transparent", "none":
		return Transparent, nil
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parsing color %q: %w", s, err)
	}
	return Color{Color: c, Alpha: 1}, nil
}

// Uniform returns a Func that ignores the value
func Uniform(c Color) Func {
	return func(float64) Color { return c }
}

// Linear interpolates between evenly spaced stops over [min, max].
// Values outside the domain take the color of the nearest end.
func Linear(min, max float64, stops ...Color) Func {
	if len(stops) == 0 {
		stops = []Color{White, Black}
	}
	return func(v float64) Color {
		if len(stops) == 1 || max == min {
			return stops[0]
		}
		t := (v - min) / (max - min)
		switch {
		case math.IsNaN(t):
			return Color{Color: colorful.Color{R: math.NaN(), G: math.NaN(), B: math.NaN()}, Alpha: math.NaN()}
		case t <= 0:
			return stops[0]
		case t >= 1:
			return stops[len(stops)-1]
		}
		pos := t * float64(len(stops)-1)
		lo := int(math.Floor(pos))
		frac := pos - float64(lo)
		a, b := stops[lo], stops[lo+1]
		return Color{
			Color: a.Color.BlendRgb(b.Color, frac),
			Alpha: a.Alpha + (b.Alpha-a.Alpha)*frac,
		}
	}
}

// Grayscale is the default ramp: white at min to black at max
func Grayscale(min, max float64) Func {
	return Linear(min, max, White, Black)
}

// FromColorMap adapts a gonum palette.ColorMap over [min, max]
func FromColorMap(cm palette.ColorMap, min, max float64) Func {
	if max <= min {
		max = min + 1
	}
	cm.SetMax(max)
	cm.SetMin(min)
	if d, ok := cm.(palette.DivergingColorMap); ok {
		d.SetConvergePoint((min + max) / 2)
	}
	return func(v float64) Color {
		if v < min {
			v = min
		} else if v > max {
			v = max
		}
		c, err := cm.At(v)
		if err != nil {
			return Color{Color: colorful.Color{R: math.NaN(), G: math.NaN(), B: math.NaN()}, Alpha: math.NaN()}
		}
		return FromColor(c)
	}
}

var named = map[string]func() palette.ColorMap{
	"smooth-blue-red":     func() palette.ColorMap { return moreland.SmoothBlueRed() },
	"smooth-green-purple": func() palette.ColorMap { return moreland.SmoothGreenPurple() },
	"black-body":          moreland.BlackBody,
	"extended-black-body": moreland.ExtendedBlackBody,
	"kindlmann":           moreland.Kindlmann,
	"extended-kindlmann":  moreland.ExtendedKindlmann,
}

// Names lists the ramps accepted by Named
func Names() []string {
	return []string{
		"grayscale",
		"smooth-blue-red",
		"smooth-green-purple",
		"black-body",
		"extended-black-body",
		"kindlmann",
		"extended-kindlmann",
	}
}

// Named returns a built-in ramp over [min, max]
func Named(name string, min, max float64) (Func, error) {
	name = strings.ToLower(name)
	if name == "grayscale" || name == "" {
		return Grayscale(min, max), nil
	}
	mk, ok := named[name]
	if !ok {
		return nil, fmt.Errorf("unknown color ramp %q (known: %s)", name, strings.Join(Names(), ", "))
	}
	return FromColorMap(mk(), min, max), nil
}

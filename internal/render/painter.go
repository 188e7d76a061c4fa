package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/ctessum/geom"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/ngmaloney/marine-fieldmap/internal/viewport"
)

// Polyline is an outline in container pixels
type Polyline struct {
	Points []Pt
	Color  color.Color
	Width  float64
}

// Overlay projects lon/lat rings into the viewport. Rings that do not overlap
// the viewport bounds are dropped.
func Overlay(vp viewport.Viewport, rings [][]geom.Point, c color.Color) []Polyline {
	view := vp.Bounds()
	var out []Polyline
	for _, ring := range rings {
		if len(ring) < 2 {
			continue
		}
		b := geom.NewBounds()
		for _, p := range ring {
			b.Extend(geom.NewBoundsPoint(p))
		}
		if !b.Overlaps(view) {
			continue
		}
		line := Polyline{Points: make([]Pt, 0, len(ring)), Color: c, Width: 1}
		for _, p := range ring {
			x, y := vp.GeoToContainerPoint(p.X, p.Y)
			if math.IsNaN(x) || math.IsNaN(y) {
				continue
			}
			line.Points = append(line.Points, Pt{X: x, Y: y})
		}
		if len(line.Points) > 1 {
			out = append(out, line)
		}
	}
	return out
}

// Paint draws the frame and overlays onto a vg canvas of the frame's size
// measured in points. Container y grows downward; vg y grows upward.
func Paint(c vg.Canvas, frame *Frame, overlays []Polyline) {
	h := float64(frame.Height)
	toVG := func(p Pt) vg.Point {
		return vg.Point{X: vg.Length(p.X), Y: vg.Length(h - p.Y)}
	}

	if frame.Image != nil {
		c.DrawImage(vg.Rectangle{
			Min: vg.Point{},
			Max: vg.Point{X: vg.Length(frame.Width), Y: vg.Length(frame.Height)},
		}, frame.Image)
	}

	for _, g := range frame.Glyphs {
		c.Push()
		c.SetColor(g.Color.NRGBA())
		c.SetLineWidth(1)
		for _, line := range g.Polylines() {
			c.Stroke(path(line, toVG))
		}
		c.Pop()
	}

	for _, o := range overlays {
		c.Push()
		c.SetColor(o.Color)
		c.SetLineWidth(vg.Length(o.Width))
		c.Stroke(path(o.Points, toVG))
		c.Pop()
	}
}

func path(line []Pt, toVG func(Pt) vg.Point) vg.Path {
	var p vg.Path
	for k, pt := range line {
		if k == 0 {
			p.Move(toVG(pt))
			continue
		}
		p.Line(toVG(pt))
	}
	return p
}

// WritePNG paints the frame on a transparent canvas at one point per pixel and
// writes it as PNG
func WritePNG(w io.Writer, frame *Frame, overlays []Polyline) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(frame.Width), vg.Length(frame.Height)),
		vgimg.UseDPI(72),
		vgimg.UseBackgroundColor(color.Transparent),
	)
	Paint(c, frame, overlays)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("writing png: %w", err)
	}
	return nil
}

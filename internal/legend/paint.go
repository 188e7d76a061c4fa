package legend

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Paint draws the view onto a canvas of at least v.Width x v.Height points
func Paint(c vg.CanvasSizer, v View) {
	_, ch := c.Size()
	top := float64(ch)
	// view y grows downward from the top edge
	pt := func(x, y float64) vg.Point {
		return vg.Point{X: vg.Length(x), Y: vg.Length(top - y)}
	}
	rect := func(x, y, w, h float64) vg.Path {
		var p vg.Path
		p.Move(pt(x, y))
		p.Line(pt(x+w, y))
		p.Line(pt(x+w, y+h))
		p.Line(pt(x, y+h))
		p.Close()
		return p
	}

	c.SetColor(v.Background.NRGBA())
	c.Fill(rect(0, 0, v.Width, v.Height))

	for _, b := range v.Buckets {
		c.SetColor(b.Color.NRGBA())
		c.Fill(rect(b.X, b.Y, b.Width, b.Height))
	}

	dc := draw.New(c)
	style := draw.TextStyle{
		Color:   v.TextColor.NRGBA(),
		Font:    font.From(plot.DefaultFont, vg.Length(v.FontSize)),
		XAlign:  text.XLeft,
		YAlign:  text.YBottom,
		Handler: plot.DefaultTextHandler,
	}
	if len(v.Buckets) > 0 {
		dc.FillText(style, pt(v.Buckets[0].X, v.FontSize+2), v.Title)
	}

	for _, t := range v.Ticks {
		s := style
		switch t.Anchor {
		case AnchorStart:
			s.XAlign = text.XLeft
		case AnchorEnd:
			s.XAlign = text.XRight
		default:
			s.XAlign = text.XCenter
		}
		dc.FillText(s, pt(t.X, t.Y), t.Text)
	}
}

// WritePNG paints the view at one point per pixel and writes it as PNG
func WritePNG(w io.Writer, v View) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(v.Width), vg.Length(v.Height)),
		vgimg.UseDPI(72),
	)
	Paint(c, v)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("writing legend png: %w", err)
	}
	return nil
}

package ui

import (
	"image"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ngmaloney/marine-fieldmap/internal/render"
)

// A terminal cell holds two vertically stacked pixels: the canvas is cols
// pixels wide and 2*rows pixels tall.
type cell struct {
	r      rune
	fg, bg string // hex, empty for the terminal default
	style  *lipgloss.Style
}

type canvas struct {
	cols, rows int
	cells      []cell
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{cols: cols, rows: rows, cells: make([]cell, cols*rows)}
	for k := range c.cells {
		c.cells[k].r = ' '
	}
	return c
}

func (c *canvas) at(col, row int) *cell {
	if col < 0 || row < 0 || col >= c.cols || row >= c.rows {
		return nil
	}
	return &c.cells[row*c.cols+col]
}

func hexAt(img *image.NRGBA, x, y int) string {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return ""
	}
	px := img.NRGBAAt(x, y)
	if px.A == 0 {
		return ""
	}
	cf, _ := colorful.MakeColor(px)
	return cf.Hex()
}

// drawImage fills the canvas with half blocks, top pixel in the foreground
// and bottom pixel in the background
func (c *canvas) drawImage(img *image.NRGBA) {
	for row := 0; row < c.rows; row++ {
		for col := 0; col < c.cols; col++ {
			top, bottom := hexAt(img, col, 2*row), hexAt(img, col, 2*row+1)
			cl := c.at(col, row)
			switch {
			case top != "" && bottom != "":
				cl.r, cl.fg, cl.bg = '▀', top, bottom
			case top != "":
				cl.r, cl.fg = '▀', top
			case bottom != "":
				cl.r, cl.fg = '▄', bottom
			}
		}
	}
}

var arrowRunes = [8]rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}

// arrowRune picks the arrow closest to a glyph angle (clockwise from +x with
// y growing downward)
func arrowRune(angle float64) rune {
	deg := math.Mod(angle*180/math.Pi, 360)
	if deg < 0 {
		deg += 360
	}
	return arrowRunes[int(math.Round(deg/45))%8]
}

func (c *canvas) drawGlyphs(glyphs []render.Glyph) {
	for _, g := range glyphs {
		cl := c.at(int(g.X), int(g.Y/2))
		if cl == nil {
			continue
		}
		cl.r = arrowRune(g.Angle)
		cl.fg = g.Color.Hex()
	}
}

// drawPolylines marks the cells each segment passes through
func (c *canvas) drawPolylines(lines []render.Polyline) {
	for _, l := range lines {
		for k := 1; k < len(l.Points); k++ {
			a, b := l.Points[k-1], l.Points[k]
			n := int(math.Ceil(math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y)/2)))
			if n > c.cols+2*c.rows {
				n = c.cols + 2*c.rows
			}
			for s := 0; s <= n; s++ {
				t := 0.0
				if n > 0 {
					t = float64(s) / float64(n)
				}
				x := a.X + t*(b.X-a.X)
				y := a.Y + t*(b.Y-a.Y)
				if cl := c.at(int(x), int(y/2)); cl != nil {
					cl.r = '·'
					cl.style = &outlineStyle
				}
			}
		}
	}
}

func (c *canvas) mark(col, row int, r rune, style lipgloss.Style) {
	if cl := c.at(col, row); cl != nil {
		cl.r = r
		cl.style = &style
	}
}

func (c *canvas) String() string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < c.cols; col++ {
			cl := c.cells[row*c.cols+col]
			var st lipgloss.Style
			if cl.style != nil {
				st = *cl.style
			} else {
				st = lipgloss.NewStyle()
			}
			if cl.fg != "" && cl.style == nil {
				st = st.Foreground(lipgloss.Color(cl.fg))
			}
			if cl.bg != "" {
				st = st.Background(lipgloss.Color(cl.bg))
			}
			if cl.fg == "" && cl.bg == "" && cl.style == nil {
				b.WriteRune(cl.r)
				continue
			}
			b.WriteString(st.Render(string(cl.r)))
		}
	}
	return b.String()
}

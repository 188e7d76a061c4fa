package render

import (
	"bytes"
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ngmaloney/marine-fieldmap/internal/colorscale"
	"github.com/ngmaloney/marine-fieldmap/internal/field"
)

// plateView is an equirectangular viewport: res degrees per pixel with the
// top-left pixel at (west, north)
type plateView struct {
	w, h             int
	west, north, res float64
}

func (v plateView) Size() (int, int) { return v.w, v.h }

func (v plateView) ContainerPointToGeo(x, y float64) (float64, float64) {
	return v.west + x*v.res, v.north - y*v.res
}

func (v plateView) GeoToContainerPoint(lon, lat float64) (float64, float64) {
	return (lon - v.west) / v.res, (v.north - lat) / v.res
}

func (v plateView) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: v.west, Y: v.north - float64(v.h)*v.res},
		Max: geom.Point{X: v.west + float64(v.w)*v.res, Y: v.north},
	}
}

func (v plateView) Contains(lon, lat float64) bool {
	b := v.Bounds()
	return lon >= b.Min.X && lon <= b.Max.X && lat >= b.Min.Y && lat <= b.Max.Y
}

func squareGrid(t *testing.T) *field.ScalarGrid {
	t.Helper()
	d := field.Descriptor{NCols: 2, NRows: 2, XLLCorner: 0, YLLCorner: 0, CellSize: 10}
	g, err := field.NewScalarGrid(d, []float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("NewScalarGrid() error = %v", err)
	}
	return g
}

func rasterOpts(step int) Options {
	opts := DefaultOptions()
	opts.SampleStep = step
	return opts
}

func TestRaster_FullResolution(t *testing.T) {
	g := squareGrid(t)
	vp := plateView{w: 20, h: 20, west: 0, north: 20, res: 1}

	img, err := Raster(g, vp, rasterOpts(1))
	if err != nil {
		t.Fatalf("Raster() error = %v", err)
	}

	tests := []struct {
		name string
		x, y int
		want color.NRGBA
	}{
		{"north-west cell holds the minimum", 0, 0, color.NRGBA{255, 255, 255, 255}},
		{"south-east cell holds the maximum", 19, 19, color.NRGBA{0, 0, 0, 255}},
		{"inside the minimum cell", 9, 9, color.NRGBA{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := img.NRGBAAt(tt.x, tt.y); got != tt.want {
				t.Errorf("pixel (%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestRaster_SubSampleReplicatesBlocks(t *testing.T) {
	g := squareGrid(t)
	vp := plateView{w: 20, h: 20, west: 0, north: 20, res: 1}
	opts := rasterOpts(2)
	opts.Interpolate = true

	img, err := Raster(g, vp, opts)
	if err != nil {
		t.Fatalf("Raster() error = %v", err)
	}
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if got, want := img.NRGBAAt(x, y), img.NRGBAAt(x-x%2, y-y%2); got != want {
				t.Fatalf("pixel (%d, %d) = %v, want block color %v", x, y, got, want)
			}
		}
	}
}

func TestRaster_OddSizeStaysInBounds(t *testing.T) {
	g := squareGrid(t)
	vp := plateView{w: 21, h: 21, west: 0, north: 20, res: 20.0 / 21.0}

	img, err := Raster(g, vp, rasterOpts(2))
	if err != nil {
		t.Fatalf("Raster() error = %v", err)
	}
	if len(img.Pix) != 21*21*4 {
		t.Fatalf("len(Pix) = %d, want %d", len(img.Pix), 21*21*4)
	}
	// the last column and row are single-pixel blocks
	if got := img.NRGBAAt(20, 20); got.A != 255 {
		t.Errorf("corner pixel (20, 20) = %v, want opaque", got)
	}
	if got, want := img.NRGBAAt(20, 0), img.NRGBAAt(20, 1); got != want {
		t.Errorf("last column block split: %v vs %v", got, want)
	}
}

func TestRaster_NoDataAndOutsideStayTransparent(t *testing.T) {
	d := field.Descriptor{NCols: 2, NRows: 1, XLLCorner: 0, YLLCorner: 0, CellSize: 10}
	g, err := field.NewScalarGrid(d, []float64{math.NaN(), 5})
	if err != nil {
		t.Fatalf("NewScalarGrid() error = %v", err)
	}
	// 40 x 20 degrees: the grid fills only the lower-left quarter
	vp := plateView{w: 40, h: 20, west: 0, north: 20, res: 1}

	img, err := Raster(g, vp, rasterOpts(1))
	if err != nil {
		t.Fatalf("Raster() error = %v", err)
	}

	transparent := color.NRGBA{}
	for _, p := range [][2]int{{5, 15}, {30, 15}, {15, 2}} {
		if got := img.NRGBAAt(p[0], p[1]); got != transparent {
			t.Errorf("pixel %v = %v, want transparent", p, got)
		}
	}
	if got := img.NRGBAAt(15, 15); got.A == 0 {
		t.Errorf("pixel in the valid cell is transparent")
	}
}

func TestRaster_Deterministic(t *testing.T) {
	g := squareGrid(t)
	vp := plateView{w: 33, h: 17, west: -2, north: 21, res: 0.7}
	opts := rasterOpts(2)
	opts.Interpolate = true

	a, err := Raster(g, vp, opts)
	if err != nil {
		t.Fatalf("Raster() error = %v", err)
	}
	b, err := Raster(g, vp, opts)
	if err != nil {
		t.Fatalf("Raster() error = %v", err)
	}
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("two passes over the same grid and viewport differ")
	}
}

func TestRaster_InvalidColor(t *testing.T) {
	g := squareGrid(t)
	vp := plateView{w: 4, h: 4, west: 0, north: 20, res: 5}
	opts := rasterOpts(1)
	opts.Color = func(float64) colorscale.Color {
		return colorscale.Color{Color: colorscale.White.Color, Alpha: 2}
	}

	img, err := Raster(g, vp, opts)
	if !errors.Is(err, ErrInvalidColor) {
		t.Fatalf("Raster() error = %v, want ErrInvalidColor", err)
	}
	if img != nil {
		t.Error("Raster() returned a partial image")
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Options)
		wantErr error
	}{
		{"defaults", func(*Options) {}, nil},
		{"unknown mode", func(o *Options) { o.Mode = Mode(7) }, ErrUnknownMode},
		{"unknown orientation", func(o *Options) { o.Orientation = Orientation(3) }, ErrUnknownOrientation},
		{"step 3", func(o *Options) { o.SampleStep = 3 }, ErrInvalidStep},
		{"step 0", func(o *Options) { o.SampleStep = 0 }, ErrInvalidStep},
		{"vector without size", func(o *Options) { o.Mode = ModeVector; o.GlyphSize = 0 }, ErrInvalidGlyphSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("vector"); err != nil || m != ModeVector {
		t.Errorf("ParseMode(vector) = %v, %v", m, err)
	}
	if _, err := ParseMode("heatmap"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("ParseMode(heatmap) error = %v, want ErrUnknownMode", err)
	}
	if o, err := ParseOrientation("towards"); err != nil || o != OrientationTowards {
		t.Errorf("ParseOrientation(towards) = %v, %v", o, err)
	}
}

func TestNewLayer_FailsFast(t *testing.T) {
	opts := DefaultOptions()
	opts.Mode = Mode(42)
	if _, err := NewLayer("bad", squareGrid(t), opts); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("NewLayer() error = %v, want ErrUnknownMode", err)
	}
}

func TestStepForZoom(t *testing.T) {
	if got := StepForZoom(4, 8); got != 2 {
		t.Errorf("StepForZoom(4, 8) = %d, want 2", got)
	}
	if got := StepForZoom(9, 8); got != 1 {
		t.Errorf("StepForZoom(9, 8) = %d, want 1", got)
	}
}

func TestGlyphStride(t *testing.T) {
	tests := []struct {
		glyph, pixel float64
		want         int
	}{
		{20, 10, 2},
		{20, 100, 1},
		{10, 4, 3},
		{20, 0, 1},
		{20, -5, 1},
	}
	for _, tt := range tests {
		if got := GlyphStride(tt.glyph, tt.pixel); got != tt.want {
			t.Errorf("GlyphStride(%v, %v) = %d, want %d", tt.glyph, tt.pixel, got, tt.want)
		}
	}
}

func TestGlyphAngle(t *testing.T) {
	if got := GlyphAngle(0, OrientationFrom); math.Abs(got-math.Pi/2) > 1e-12 {
		t.Errorf("GlyphAngle(0, from) = %v, want pi/2", got)
	}
	if got := GlyphAngle(0, OrientationTowards); math.Abs(got-3*math.Pi/2) > 1e-12 {
		t.Errorf("GlyphAngle(0, towards) = %v, want 3pi/2", got)
	}
	if got := GlyphAngle(90, OrientationFrom); math.Abs(got-math.Pi) > 1e-12 {
		t.Errorf("GlyphAngle(90, from) = %v, want pi", got)
	}
}

func TestGlyph_Geometry(t *testing.T) {
	g := Glyph{X: 100, Y: 50, Angle: 0, Size: 20}

	lines := g.Polylines()
	if len(lines) != 2 {
		t.Fatalf("len(Polylines()) = %d, want 2", len(lines))
	}
	shaft := lines[0]
	if shaft[0] != (Pt{90, 50}) || shaft[1] != (Pt{110, 50}) {
		t.Errorf("shaft = %v, want (90,50)-(110,50)", shaft)
	}
	head := lines[1]
	if head[1] != (Pt{110, 50}) || head[0] != (Pt{105, 45}) || head[2] != (Pt{105, 55}) {
		t.Errorf("head = %v", head)
	}

	cmds := g.Commands()
	if len(cmds) != 3 || cmds[0].Kind != CmdTranslate || cmds[1].Kind != CmdRotate || cmds[2].Kind != CmdStroke {
		t.Errorf("Commands() = %+v, want translate, rotate, stroke", cmds)
	}
}

func vortex(t *testing.T, n int) *field.VectorGrid {
	t.Helper()
	d := field.Descriptor{NCols: n, NRows: n, XLLCorner: 0, YLLCorner: 0, CellSize: 1}
	u := make([]float64, n*n)
	v := make([]float64, n*n)
	for k := range u {
		u[k], v[k] = 1, 0
	}
	g, err := field.NewVectorGrid(d, u, v)
	if err != nil {
		t.Fatalf("NewVectorGrid() error = %v", err)
	}
	return g
}

func TestGlyphs_Stride(t *testing.T) {
	g := vortex(t, 4)
	opts := DefaultOptions()
	opts.Mode = ModeVector
	opts.GlyphSize = 20

	tests := []struct {
		name string
		vp   plateView
		want int
	}{
		{"100 px cells draw every cell", plateView{w: 400, h: 400, west: 0, north: 4, res: 0.01}, 16},
		{"10 px cells draw every other cell", plateView{w: 40, h: 40, west: 0, north: 4, res: 0.1}, 4},
		{"viewport away from the grid", plateView{w: 40, h: 40, west: 50, north: 60, res: 0.1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			glyphs, err := Glyphs(g, tt.vp, opts)
			if err != nil {
				t.Fatalf("Glyphs() error = %v", err)
			}
			if len(glyphs) != tt.want {
				t.Errorf("len(Glyphs()) = %d, want %d", len(glyphs), tt.want)
			}
		})
	}
}

func TestGlyphs_Orientation(t *testing.T) {
	g := vortex(t, 2)
	vp := plateView{w: 200, h: 200, west: 0, north: 2, res: 0.01}
	opts := DefaultOptions()
	opts.Mode = ModeVector
	opts.Color = colorscale.Uniform(colorscale.Black)

	from, err := Glyphs(g, vp, opts)
	if err != nil {
		t.Fatalf("Glyphs() error = %v", err)
	}
	opts.Orientation = OrientationTowards
	towards, err := Glyphs(g, vp, opts)
	if err != nil {
		t.Fatalf("Glyphs() error = %v", err)
	}
	if len(from) == 0 || len(from) != len(towards) {
		t.Fatalf("glyph counts %d and %d", len(from), len(towards))
	}
	// eastward flow comes from 270 degrees
	if want := GlyphAngle(270, OrientationFrom); math.Abs(from[0].Angle-want) > 1e-9 {
		t.Errorf("from angle = %v, want %v", from[0].Angle, want)
	}
	if d := towards[0].Angle - from[0].Angle; math.Abs(d-math.Pi) > 1e-9 {
		t.Errorf("towards - from = %v, want pi", d)
	}
	if from[0].Color != colorscale.Black {
		t.Errorf("glyph color = %v, want uniform black", from[0].Color)
	}
}

func TestLayer_DrawAndProbe(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	l, err := NewLayer("square", squareGrid(t), DefaultOptions())
	if err != nil {
		t.Fatalf("NewLayer() error = %v", err)
	}
	l.Log = logger
	if l.Options().Color != nil {
		t.Fatal("color set before the first draw")
	}

	vp := plateView{w: 20, h: 20, west: 0, north: 20, res: 1}
	frame, err := l.Draw(vp)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if frame.Image == nil || frame.Mode != ModeColormap {
		t.Fatalf("Draw() = %+v, want a colormap image", frame)
	}
	if l.Options().Color == nil {
		t.Error("default color not kept after the first draw")
	}
	if len(hook.Entries) != 1 || hook.LastEntry().Level != logrus.DebugLevel {
		t.Errorf("log entries = %v, want one debug entry", hook.Entries)
	}

	lon, lat, v, ok := l.Probe(vp, 15, 5)
	if !ok || v.Magnitude() != 2 {
		t.Errorf("Probe(15, 5) = (%v, %v, %v, %v), want value 2", lon, lat, v, ok)
	}
}

func TestWritePNG(t *testing.T) {
	g := squareGrid(t)
	vp := plateView{w: 20, h: 20, west: 0, north: 20, res: 1}
	img, err := Raster(g, vp, rasterOpts(2))
	if err != nil {
		t.Fatalf("Raster() error = %v", err)
	}
	frame := &Frame{
		Mode:   ModeColormap,
		Width:  20,
		Height: 20,
		Image:  img,
		Glyphs: []Glyph{{X: 10, Y: 10, Size: 8, Color: colorscale.Black}},
	}
	rings := [][]geom.Point{
		{{X: 1, Y: 1}, {X: 19, Y: 1}, {X: 19, Y: 19}},
		{{X: 100, Y: 100}, {X: 101, Y: 101}},
	}
	overlays := Overlay(vp, rings, color.Black)
	if len(overlays) != 1 {
		t.Fatalf("len(Overlay()) = %d, want 1 visible ring", len(overlays))
	}

	var buf bytes.Buffer
	if err := WritePNG(&buf, frame, overlays); err != nil {
		t.Fatalf("WritePNG() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("WritePNG() output is not a PNG")
	}
}

// Package viewport converts between container pixels and geographic coordinates.
package viewport

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// Viewport is the host map's transform between container pixels and lon/lat.
// Pixel (0,0) is the top-left corner of the container.
type Viewport interface {
	Size() (width, height int)
	ContainerPointToGeo(x, y float64) (lon, lat float64)
	GeoToContainerPoint(lon, lat float64) (x, y float64)
	Bounds() *geom.Bounds
	Contains(lon, lat float64) bool
}

const (
	// webMapProj is the spherical (web) mercator used by slippy maps
	webMapProj = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +no_defs"

	tileSize     = 256
	earthRadius  = 6378137.0
	maxLatitude  = 85.0511287798
	deg2rad      = math.Pi / 180
	rad2deg      = 180 / math.Pi
	MinZoom      = 0.0
	MaxZoom      = 22.0
	zoom0MPerPix = 2 * math.Pi * earthRadius / tileSize
)

// Mercator is a web-mercator viewport of width x height pixels centered on a
// lon/lat at a fractional zoom level.
type Mercator struct {
	center        geom.Point
	zoom          float64
	width, height int

	forward, inverse proj.Transformer
	cx, cy           float64 // center in projected meters
	res              float64 // meters per pixel
}

// NewMercator creates a viewport; center is (lon, lat) in degrees
func NewMercator(center geom.Point, zoom float64, width, height int) (*Mercator, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("viewport size %dx%d must be positive", width, height)
	}
	sr, err := proj.Parse(webMapProj)
	if err != nil {
		return nil, fmt.Errorf("parsing web mercator projection: %w", err)
	}
	forward, inverse, err := sr.Transformers()
	if err != nil {
		return nil, fmt.Errorf("creating web mercator transformers: %w", err)
	}

	m := &Mercator{
		width:   width,
		height:  height,
		forward: forward,
		inverse: inverse,
	}
	if err := m.set(center, zoom); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mercator) set(center geom.Point, zoom float64) error {
	zoom = math.Max(MinZoom, math.Min(MaxZoom, zoom))
	center.Y = math.Max(-maxLatitude, math.Min(maxLatitude, center.Y))

	cx, cy, err := m.forward(center.X*deg2rad, center.Y*deg2rad)
	if err != nil {
		return fmt.Errorf("projecting center (%v, %v): %w", center.X, center.Y, err)
	}
	m.center = center
	m.zoom = zoom
	m.cx, m.cy = cx, cy
	m.res = zoom0MPerPix / math.Pow(2, zoom)
	return nil
}

// Size returns the container size in pixels
func (m *Mercator) Size() (width, height int) {
	return m.width, m.height
}

// Center returns the lon/lat at the middle of the container
func (m *Mercator) Center() geom.Point {
	return m.center
}

// Zoom returns the fractional zoom level
func (m *Mercator) Zoom() float64 {
	return m.zoom
}

// ContainerPointToGeo is the inverse transform used by the raster renderer.
// Points the projection cannot invert map to NaN.
func (m *Mercator) ContainerPointToGeo(x, y float64) (lon, lat float64) {
	mx := m.cx + (x-float64(m.width)/2)*m.res
	my := m.cy - (y-float64(m.height)/2)*m.res
	lonR, latR, err := m.inverse(mx, my)
	if err != nil {
		return math.NaN(), math.NaN()
	}
	return lonR * rad2deg, latR * rad2deg
}

// GeoToContainerPoint projects lon/lat to container pixels
func (m *Mercator) GeoToContainerPoint(lon, lat float64) (x, y float64) {
	lat = math.Max(-maxLatitude, math.Min(maxLatitude, lat))
	mx, my, err := m.forward(lon*deg2rad, lat*deg2rad)
	if err != nil {
		return math.NaN(), math.NaN()
	}
	x = float64(m.width)/2 + (mx-m.cx)/m.res
	y = float64(m.height)/2 - (my-m.cy)/m.res
	return x, y
}

// Bounds returns the geographic rectangle visible in the container
func (m *Mercator) Bounds() *geom.Bounds {
	west, south := m.ContainerPointToGeo(0, float64(m.height))
	east, north := m.ContainerPointToGeo(float64(m.width), 0)
	return &geom.Bounds{
		Min: geom.Point{X: west, Y: south},
		Max: geom.Point{X: east, Y: north},
	}
}

// Contains reports whether lon/lat is inside the visible rectangle
func (m *Mercator) Contains(lon, lat float64) bool {
	b := m.Bounds()
	return lon >= b.Min.X && lon <= b.Max.X && lat >= b.Min.Y && lat <= b.Max.Y
}

// Pan returns a viewport moved by dx, dy pixels (positive dx moves east,
// positive dy moves south)
func (m *Mercator) Pan(dx, dy float64) (*Mercator, error) {
	lon, lat := m.ContainerPointToGeo(float64(m.width)/2+dx, float64(m.height)/2+dy)
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return m, nil
	}
	out := *m
	if err := out.set(geom.Point{X: lon, Y: lat}, m.zoom); err != nil {
		return nil, err
	}
	return &out, nil
}

// ZoomBy returns a viewport with the same center and zoom+delta
func (m *Mercator) ZoomBy(delta float64) (*Mercator, error) {
	out := *m
	if err := out.set(m.center, m.zoom+delta); err != nil {
		return nil, err
	}
	return &out, nil
}

// Resize returns a viewport with the same center and zoom and a new container size
func (m *Mercator) Resize(width, height int) (*Mercator, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("viewport size %dx%d must be positive", width, height)
	}
	out := *m
	out.width, out.height = width, height
	return &out, nil
}

// Fit returns a viewport of the given size showing all of b
func Fit(b *geom.Bounds, width, height int) (*Mercator, error) {
	m, err := NewMercator(geom.Point{}, 0, width, height)
	if err != nil {
		return nil, err
	}
	south := math.Max(-maxLatitude, b.Min.Y)
	north := math.Min(maxLatitude, b.Max.Y)
	x0, y0, err := m.forward(b.Min.X*deg2rad, south*deg2rad)
	if err != nil {
		return nil, fmt.Errorf("projecting bounds: %w", err)
	}
	x1, y1, err := m.forward(b.Max.X*deg2rad, north*deg2rad)
	if err != nil {
		return nil, fmt.Errorf("projecting bounds: %w", err)
	}

	zoom := MaxZoom
	if dx, dy := x1-x0, y1-y0; dx > 0 && dy > 0 {
		zx := math.Log2(float64(width) * zoom0MPerPix / dx)
		zy := math.Log2(float64(height) * zoom0MPerPix / dy)
		zoom = math.Min(zx, zy)
	}
	lonC, latC, err := m.inverse((x0+x1)/2, (y0+y1)/2)
	if err != nil {
		return nil, fmt.Errorf("finding bounds center: %w", err)
	}
	if err := m.set(geom.Point{X: lonC * rad2deg, Y: latC * rad2deg}, zoom); err != nil {
		return nil, err
	}
	return m, nil
}

package field

import "math"

// Kind identifies the value type stored in a grid
type Kind string

const (
	KindScalar Kind = "scalar"
	KindVector Kind = "vector"
)

// Value is a cell value or an interpolated sample
type Value interface {
	// Magnitude is the number used for coloring
	Magnitude() float64

	// Direction is the glyph orientation in degrees
	Direction() float64
}

// Scalar is a single measurement (e.g. speed or temperature)
type Scalar float64

// Magnitude returns the scalar itself
func (s Scalar) Magnitude() float64 {
	return float64(s)
}

// Direction treats the scalar as a direction in degrees, so a grid of directions
// can be drawn as glyphs.
func (s Scalar) Direction() float64 {
	return float64(s)
}

func (s Scalar) valid() bool {
	return !math.IsNaN(float64(s))
}

// Vector is a (u, v) pair: u positive eastward, v positive northward
type Vector struct {
	U, V float64
}

// Magnitude returns the length of the vector
func (v Vector) Magnitude() float64 {
	return math.Hypot(v.U, v.V)
}

// DirectionTo returns the direction the vector points towards, in degrees
// clockwise from north, in [0, 360)
func (v Vector) DirectionTo() float64 {
	deg := math.Atan2(v.U, v.V) * (180.0 / math.Pi)
	if deg < 0 {
		deg += 360.0
	}
	return math.Mod(deg, 360.0)
}

// DirectionFrom returns the direction the flow comes from (meteorological
// convention), in [0, 360)
func (v Vector) DirectionFrom() float64 {
	return math.Mod(v.DirectionTo()+180.0, 360.0)
}

// Direction returns DirectionFrom
func (v Vector) Direction() float64 {
	return v.DirectionFrom()
}

func (v Vector) valid() bool {
	return !math.IsNaN(v.U) && !math.IsNaN(v.V)
}

// VectorFromDirection builds a vector of the given magnitude flowing from the given
// direction (degrees clockwise from north).
func VectorFromDirection(magnitude, fromDeg float64) Vector {
	to := (fromDeg + 180.0) * math.Pi / 180.0
	return Vector{U: magnitude * math.Sin(to), V: magnitude * math.Cos(to)}
}

// Point is a cell center with its value; Value is nil for no-data cells
type Point struct {
	Lon, Lat float64
	Value    Value
}

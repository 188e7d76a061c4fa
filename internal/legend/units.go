package legend

import (
	"math"
	"strconv"
)

// Unit is a display unit: values are converted then shown with Precision decimals
type Unit struct {
	Label     string
	Convert   func(v float64) float64
	Precision int
}

// Identity is a unit that shows values unconverted
func Identity(label string, precision int) Unit {
	return Unit{Label: label, Precision: precision}
}

// Format converts v and rounds it to the unit's precision
func (u Unit) Format(v float64) string {
	if u.Convert != nil {
		v = u.Convert(v)
	}
	prec := u.Precision
	if prec < 0 {
		prec = 0
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func scale(k float64) func(float64) float64 {
	return func(v float64) float64 { return v * k }
}

// SpeedUnits converts a speed stored in m/s
func SpeedUnits() []Unit {
	return []Unit{
		{Label: "m/s", Convert: scale(1), Precision: 2},
		{Label: "km/h", Convert: scale(3.6), Precision: 1},
		{Label: "kt", Convert: scale(3600.0 / 1852.0), Precision: 1},
		{Label: "mph", Convert: scale(3600.0 / 1609.344), Precision: 1},
	}
}

// DirectionUnits shows a direction stored in degrees
func DirectionUnits() []Unit {
	return []Unit{
		{Label: "°", Convert: scale(1), Precision: 0},
		{Label: "rad", Convert: scale(math.Pi / 180), Precision: 2},
	}
}

// TemperatureUnits converts a temperature stored in degrees Celsius
func TemperatureUnits() []Unit {
	return []Unit{
		{Label: "°C", Convert: scale(1), Precision: 1},
		{Label: "°F", Convert: func(c float64) float64 { return c*9/5 + 32 }, Precision: 1},
		{Label: "K", Convert: func(c float64) float64 { return c + 273.15 }, Precision: 1},
	}
}

// NamedUnits returns a unit preset by name ("speed", "direction",
// "temperature"); any other name becomes a single unconverted unit with
// that label
func NamedUnits(name string, decimals int) []Unit {
	switch name {
	case "speed":
		return SpeedUnits()
	case "direction":
		return DirectionUnits()
	case "temperature":
		return TemperatureUnits()
	case "":
		return nil
	}
	return []Unit{Identity(name, decimals)}
}

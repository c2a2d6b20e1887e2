// Package weather provides the current-conditions block of an environmental report.
package weather

import (
	"errors"
	"fmt"
)

// ErrInvalidReading is returned when an upstream observation fails validation.
var ErrInvalidReading = errors.New("invalid weather reading")

// Reading represents current weather at a point.
type Reading struct {
	// Temperature in Celsius.
	Temperature float64

	// Humidity percentage (0-100).
	Humidity int

	// WindSpeed in km/h.
	WindSpeed float64

	// WindDirection in degrees (0-359, 0=N, 90=E).
	WindDirection int

	// Pressure in hPa.
	Pressure float64

	// Visibility in km.
	Visibility float64

	// Precipitation over the last hour in mm. Not part of the public report;
	// feeds the health score.
	Precipitation float64
}

// Fallback returns the fixed reading used when no live data is available.
func Fallback() Reading {
	return Reading{
		Temperature:   24.5,
		Humidity:      65,
		WindSpeed:     8.2,
		WindDirection: 180,
		Pressure:      1013.2,
		Visibility:    10.0,
	}
}

// Validate rejects physically implausible readings.
func (r Reading) Validate() error {
	switch {
	case r.Humidity < 0 || r.Humidity > 100:
		return fmt.Errorf("%w: humidity %d out of range", ErrInvalidReading, r.Humidity)
	case r.WindSpeed < 0:
		return fmt.Errorf("%w: wind speed %.1f is negative", ErrInvalidReading, r.WindSpeed)
	case r.WindDirection < 0 || r.WindDirection >= 360:
		return fmt.Errorf("%w: wind direction %d out of range", ErrInvalidReading, r.WindDirection)
	case r.Pressure <= 0:
		return fmt.Errorf("%w: pressure %.1f", ErrInvalidReading, r.Pressure)
	case r.Visibility < 0:
		return fmt.Errorf("%w: visibility %.1f is negative", ErrInvalidReading, r.Visibility)
	case r.Temperature < -90 || r.Temperature > 60:
		return fmt.Errorf("%w: temperature %.1f out of range", ErrInvalidReading, r.Temperature)
	}
	return nil
}

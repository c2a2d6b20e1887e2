// Package airquality provides the air-quality reading used in environmental reports.
package airquality

import (
	"errors"
	"fmt"
)

// ErrInvalidReading is returned when an upstream reading fails validation.
var ErrInvalidReading = errors.New("invalid air quality reading")

// Status is the qualitative band derived from an AQI value.
type Status string

const (
	StatusGood      Status = "Good"
	StatusModerate  Status = "Moderate"
	StatusUnhealthy Status = "Unhealthy"
)

// StatusFor maps an AQI value to its band: 0-50 Good, 51-100 Moderate, above Unhealthy.
func StatusFor(aqi int) Status {
	switch {
	case aqi <= 50:
		return StatusGood
	case aqi <= 100:
		return StatusModerate
	default:
		return StatusUnhealthy
	}
}

// Pollutants holds individual pollutant concentrations.
type Pollutants struct {
	PM25 float64
	PM10 float64
	O3   float64
	NO2  float64
	SO2  float64
	CO   float64
}

// DefaultPollutants are substituted for any pollutant a live reading omits.
var DefaultPollutants = Pollutants{PM25: 15, PM10: 25, O3: 30, NO2: 20, SO2: 10, CO: 0.5}

// ForecastDay is one day of the short AQI outlook.
type ForecastDay struct {
	Day    string
	AQI    int
	Status Status
}

// Reading is a point-in-time air-quality observation plus a three-day outlook.
type Reading struct {
	AQI        int
	Status     Status
	Pollutants Pollutants
	Forecast   []ForecastDay
}

var forecastDays = [3]string{"Today", "Tomorrow", "Day 3"}

// NewReading builds a reading whose status and outlook are derived from aqi.
// The outlook is aqi, aqi+10 and aqi+5.
func NewReading(aqi int, p Pollutants) Reading {
	offsets := [3]int{0, 10, 5}
	forecast := make([]ForecastDay, len(forecastDays))
	for i, day := range forecastDays {
		v := aqi + offsets[i]
		forecast[i] = ForecastDay{Day: day, AQI: v, Status: StatusFor(v)}
	}
	return Reading{
		AQI:        aqi,
		Status:     StatusFor(aqi),
		Pollutants: p,
		Forecast:   forecast,
	}
}

// Fallback returns the fixed reading used when no live data is available.
func Fallback() Reading {
	return Reading{
		AQI:    45,
		Status: StatusGood,
		Pollutants: Pollutants{
			PM25: 12.5,
			PM10: 20,
			O3:   25,
			NO2:  18,
			SO2:  8,
			CO:   0.4,
		},
		Forecast: []ForecastDay{
			{Day: "Today", AQI: 45, Status: StatusGood},
			{Day: "Tomorrow", AQI: 52, Status: StatusModerate},
			{Day: "Day 3", AQI: 48, Status: StatusGood},
		},
	}
}

// Normalized returns a copy whose statuses agree with their AQI values.
func (r Reading) Normalized() Reading {
	out := r
	out.Status = StatusFor(r.AQI)
	out.Forecast = make([]ForecastDay, len(r.Forecast))
	for i, d := range r.Forecast {
		out.Forecast[i] = ForecastDay{Day: d.Day, AQI: d.AQI, Status: StatusFor(d.AQI)}
	}
	return out
}

// MaxAQI is the largest index WAQI publishes. Anything above it is a feed
// error rather than a measurement.
const MaxAQI = 999

// Validate rejects readings no upstream should produce.
func (r Reading) Validate() error {
	if r.AQI < 0 || r.AQI > MaxAQI {
		return fmt.Errorf("%w: aqi %d out of range", ErrInvalidReading, r.AQI)
	}
	p := r.Pollutants
	for name, v := range map[string]float64{
		"pm25": p.PM25, "pm10": p.PM10, "o3": p.O3, "no2": p.NO2, "so2": p.SO2, "co": p.CO,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s concentration %.2f is negative", ErrInvalidReading, name, v)
		}
	}
	return nil
}

// Package risk holds the pure location and environment scoring functions.
package risk

// Level is a qualitative risk band.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}

// latitudeBand is an open interval of latitudes sharing a risk level.
type latitudeBand struct {
	minLat, maxLat float64
	level          Level
}

// Known flood-prone latitude bands. Bounds are exclusive.
var waterLoggingBands = []latitudeBand{
	{minLat: 28.6, maxLat: 28.7, level: LevelMedium}, // Delhi
	{minLat: 19.0, maxLat: 19.2, level: LevelHigh},   // Mumbai
}

// EstimateWaterLoggingRisk returns the water-logging risk for a coordinate.
// Only latitude is consulted; longitude is accepted so the signature stays
// stable when the bands become two-dimensional.
func EstimateWaterLoggingRisk(lat, _ float64) Level {
	for _, b := range waterLoggingBands {
		if lat > b.minLat && lat < b.maxLat {
			return b.level
		}
	}
	return LevelLow
}

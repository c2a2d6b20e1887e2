// Package worker provides background job processing for EcoSphere.
package worker

import (
	"sort"
	"time"
)

// Hotspot is a named area whose reports are rebuilt on every refresh.
type Hotspot struct {
	Name string

	// Points are the coordinates a report is built for.
	Points []Point

	// Priority orders hotspots (lower = earlier).
	Priority int
}

// Point is a labelled coordinate.
type Point struct {
	Name string
	Lat  float64
	Lon  float64
}

// RefreshConfig holds configuration for the hotspot refresh job.
type RefreshConfig struct {
	// Hotspots to refresh. If empty, DefaultHotspots is used.
	Hotspots []Hotspot

	// Concurrency is the number of reports built at once.
	// Default: 4
	Concurrency int

	// Timeout bounds a single report build.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Hotspots:    DefaultHotspots(),
		Concurrency: 4,
		Timeout:     30 * time.Second,
	}
}

// DefaultHotspots returns the metro areas monitored out of the box.
// Delhi and Mumbai lead because they sit in the water-logging risk bands.
func DefaultHotspots() []Hotspot {
	return []Hotspot{
		{
			Name:     "Delhi",
			Priority: 1,
			Points: []Point{
				{Name: "Delhi", Lat: 28.6139, Lon: 77.2090},
				{Name: "Connaught Place", Lat: 28.6315, Lon: 77.2167},
				{Name: "Anand Vihar", Lat: 28.6469, Lon: 77.3160},
			},
		},
		{
			Name:     "Mumbai",
			Priority: 1,
			Points: []Point{
				{Name: "Mumbai", Lat: 19.0760, Lon: 72.8777},
				{Name: "Bandra", Lat: 19.0596, Lon: 72.8295},
			},
		},
		{
			Name:     "Kolkata",
			Priority: 2,
			Points: []Point{
				{Name: "Kolkata", Lat: 22.5726, Lon: 88.3639},
			},
		},
		{
			Name:     "Chennai",
			Priority: 2,
			Points: []Point{
				{Name: "Chennai", Lat: 13.0827, Lon: 80.2707},
			},
		},
		{
			Name:     "Bengaluru",
			Priority: 3,
			Points: []Point{
				{Name: "Bengaluru", Lat: 12.9716, Lon: 77.5946},
			},
		},
		{
			Name:     "Hyderabad",
			Priority: 3,
			Points: []Point{
				{Name: "Hyderabad", Lat: 17.3850, Lon: 78.4867},
			},
		},
	}
}

// AllPoints returns every point ordered by hotspot priority.
func (c RefreshConfig) AllPoints() []Point {
	hotspots := make([]Hotspot, len(c.Hotspots))
	copy(hotspots, c.Hotspots)
	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].Priority < hotspots[j].Priority
	})

	var points []Point
	for _, h := range hotspots {
		points = append(points, h.Points...)
	}
	return points
}

// TotalPoints returns the number of points across all hotspots.
func (c RefreshConfig) TotalPoints() int {
	n := 0
	for _, h := range c.Hotspots {
		n += len(h.Points)
	}
	return n
}

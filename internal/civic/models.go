// Package civic stores citizen-submitted environmental complaints and answers
// bounding-box queries over them.
package civic

import (
	"errors"
	"slices"
	"time"
)

// Store errors.
var (
	// ErrStoreUnavailable wraps any failure of the backing store.
	ErrStoreUnavailable = errors.New("civic store unavailable")
)

// Category classifies a complaint.
type Category string

const (
	CategoryWaterLog   Category = "water_log"
	CategoryVisibility Category = "visibility"
	CategoryTreeFall   Category = "tree_fall"
	CategoryRoadBlock  Category = "road_block"
)

// Categories lists every accepted category. New categories are added here.
var Categories = []Category{
	CategoryWaterLog,
	CategoryVisibility,
	CategoryTreeFall,
	CategoryRoadBlock,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Severity grades how serious a complaint is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Status tracks a complaint's lifecycle. Only active complaints are returned
// by nearby queries.
type Status string

const (
	StatusActive        Status = "active"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
)

// Location is a geographic point with an optional address.
type Location struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Address   string  `json:"address,omitempty" validate:"max=300"`
}

// Complaint is a stored civic report.
type Complaint struct {
	ID          string    `json:"id"`
	Location    Location  `json:"location"`
	Category    Category  `json:"report_type"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	Status      Status    `json:"status"`
	ReporterID  *string   `json:"reporter_id,omitempty"`
	CreatedAt   time.Time `json:"timestamp"`
}

// BoundingBox is the axis-aligned square center +/- radius degrees, inclusive
// on every edge. It approximates a radius search and widens with latitude in
// ground distance; callers needing geodesic accuracy must post-filter.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// NewBoundingBox builds the box around center.
func NewBoundingBox(center Location, radiusDegrees float64) BoundingBox {
	return BoundingBox{
		MinLat: center.Latitude - radiusDegrees,
		MaxLat: center.Latitude + radiusDegrees,
		MinLon: center.Longitude - radiusDegrees,
		MaxLon: center.Longitude + radiusDegrees,
	}
}

// Contains reports whether loc lies inside the box.
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Latitude >= b.MinLat && loc.Latitude <= b.MaxLat &&
		loc.Longitude >= b.MinLon && loc.Longitude <= b.MaxLon
}

// Query defaults.
const (
	DefaultRadiusDegrees = 0.01
	ReportLimit          = 10
	ListLimit            = 50
	MaxLimit             = 100
)

// NearbyQuery selects active complaints. A nil Center skips the geo filter.
type NearbyQuery struct {
	Center        *Location
	RadiusDegrees float64
	Category      Category
	Limit         int

	// NewestFirst orders by creation time descending. When false the store's
	// natural order is used.
	NewestFirst bool
}

// Box returns the query's bounding box. ok is false when there is no center.
func (q NearbyQuery) Box() (box BoundingBox, ok bool) {
	if q.Center == nil {
		return BoundingBox{}, false
	}
	radius := q.RadiusDegrees
	if radius <= 0 {
		radius = DefaultRadiusDegrees
	}
	return NewBoundingBox(*q.Center, radius), true
}

func (q NearbyQuery) limit() int {
	if q.Limit <= 0 {
		return ListLimit
	}
	return q.Limit
}

// matches reports whether c satisfies every filter of q.
func (q NearbyQuery) matches(c *Complaint) bool {
	if c.Status != StatusActive {
		return false
	}
	if q.Category != "" && c.Category != q.Category {
		return false
	}
	if box, ok := q.Box(); ok && !box.Contains(c.Location) {
		return false
	}
	return true
}

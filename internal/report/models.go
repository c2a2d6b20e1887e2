// Package report assembles the per-location environmental report from
// independent, unreliable sources.
package report

import (
	"errors"
	"time"

	"github.com/ecosphere/ecosphere/internal/airquality"
	"github.com/ecosphere/ecosphere/internal/api/models"
	"github.com/ecosphere/ecosphere/internal/civic"
	"github.com/ecosphere/ecosphere/internal/risk"
	"github.com/ecosphere/ecosphere/internal/weather"
)

// ErrReportGenerationFailed is the only error BuildReport returns for a valid
// location. No partial report accompanies it.
var ErrReportGenerationFailed = errors.New("failed to generate environmental report")

// ValidationError holds field-level input errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Location is the point a report is built for.
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// Validate checks coordinate ranges.
func (l Location) Validate() []models.FieldError {
	var errs []models.FieldError
	if l.Latitude < -90 || l.Latitude > 90 {
		errs = append(errs, models.FieldError{
			Field:   "latitude",
			Message: "must be between -90 and 90",
			Code:    "OUT_OF_RANGE",
		})
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		errs = append(errs, models.FieldError{
			Field:   "longitude",
			Message: "must be between -180 and 180",
			Code:    "OUT_OF_RANGE",
		})
	}
	return errs
}

// Report is a point-in-time environmental snapshot.
type Report struct {
	Location         Location
	AirQuality       airquality.Reading
	Weather          weather.Reading
	NoiseLevel       float64
	WaterLoggingRisk risk.Level

	// Complaints holds at most civic.ReportLimit nearby active complaints.
	Complaints []*civic.Complaint

	// Suggestions holds between one and suggestion.MaxSuggestions entries.
	Suggestions []string

	HealthScore risk.HealthScore
	GeneratedAt time.Time
}

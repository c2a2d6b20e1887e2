// Package handler provides HTTP handlers for the EcoSphere API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/api/middleware"
	"github.com/ecosphere/ecosphere/internal/api/models"
	"github.com/ecosphere/ecosphere/internal/api/response"
	"github.com/ecosphere/ecosphere/internal/civic"
	"github.com/ecosphere/ecosphere/internal/report"
)

// ReportBuilder assembles environmental reports.
type ReportBuilder interface {
	BuildReport(ctx context.Context, loc report.Location) (*report.Report, error)
}

// ReportHandler handles the environmental report endpoint.
type ReportHandler struct {
	reports  ReportBuilder
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports ReportBuilder, logger zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		reports:  reports,
		validate: models.NewValidator(),
		logger:   logger,
	}
}

// CreateReport handles POST /api/environmental-report.
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var input models.EnvironmentalReportRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		response.BadRequest(w, r, "invalid location", models.FieldErrorsFrom(err))
		return
	}

	loc := report.Location{
		Latitude:  *input.Latitude,
		Longitude: *input.Longitude,
	}
	if input.Address != nil {
		loc.Address = *input.Address
	}

	rep, err := h.reports.BuildReport(r.Context(), loc)
	if err != nil {
		var verr *report.ValidationError
		if errors.As(err, &verr) {
			response.BadRequest(w, r, "invalid location", verr.Errors)
			return
		}
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Float64("latitude", loc.Latitude).
			Float64("longitude", loc.Longitude).
			Msg("environmental report failed")
		response.Error(w, r, models.NewReportGenerationFailed(middleware.GetRequestID(r.Context())))
		return
	}

	response.JSON(w, r, http.StatusOK, toEnvironmentalReport(rep))
}

func toEnvironmentalReport(rep *report.Report) models.EnvironmentalReport {
	aq := rep.AirQuality
	forecast := make([]models.AQIForecast, len(aq.Forecast))
	for i, f := range aq.Forecast {
		forecast[i] = models.AQIForecast{Day: f.Day, AQI: f.AQI, Status: string(f.Status)}
	}

	complaints := make([]models.CivicReport, 0, len(rep.Complaints))
	for _, c := range rep.Complaints {
		complaints = append(complaints, toCivicReport(c))
	}

	suggestions := rep.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	wx := rep.Weather
	return models.EnvironmentalReport{
		Location: models.Location{
			Latitude:  rep.Location.Latitude,
			Longitude: rep.Location.Longitude,
			Address:   optionalString(rep.Location.Address),
		},
		AQIData: models.AQIData{
			AQI:      aq.AQI,
			PM25:     aq.Pollutants.PM25,
			PM10:     aq.Pollutants.PM10,
			O3:       aq.Pollutants.O3,
			NO2:      aq.Pollutants.NO2,
			SO2:      aq.Pollutants.SO2,
			CO:       aq.Pollutants.CO,
			Status:   string(aq.Status),
			Forecast: forecast,
		},
		WeatherData: models.WeatherData{
			Temperature:   wx.Temperature,
			Humidity:      wx.Humidity,
			WindSpeed:     wx.WindSpeed,
			WindDirection: wx.WindDirection,
			Pressure:      wx.Pressure,
			Visibility:    wx.Visibility,
		},
		NoiseLevel:       rep.NoiseLevel,
		WaterLoggingRisk: string(rep.WaterLoggingRisk),
		CivicComplaints:  complaints,
		AISuggestions:    suggestions,
		HealthScore: models.HealthScore{
			Score:        rep.HealthScore.Score,
			AirScore:     rep.HealthScore.AirScore,
			NoiseScore:   rep.HealthScore.NoiseScore,
			WeatherScore: rep.HealthScore.WeatherScore,
		},
		Timestamp: models.Timestamp(rep.GeneratedAt),
	}
}

func toCivicReport(c *civic.Complaint) models.CivicReport {
	return models.CivicReport{
		ID: c.ID,
		Location: models.Location{
			Latitude:  c.Location.Latitude,
			Longitude: c.Location.Longitude,
			Address:   optionalString(c.Location.Address),
		},
		ReportType:  string(c.Category),
		Description: c.Description,
		Severity:    string(c.Severity),
		Status:      string(c.Status),
		ReporterID:  c.ReporterID,
		Timestamp:   models.Timestamp(c.CreatedAt),
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

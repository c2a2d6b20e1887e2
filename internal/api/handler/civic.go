package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/api/middleware"
	"github.com/ecosphere/ecosphere/internal/api/models"
	"github.com/ecosphere/ecosphere/internal/api/response"
	"github.com/ecosphere/ecosphere/internal/civic"
)

// ComplaintService lists and accepts civic complaints.
type ComplaintService interface {
	Submit(ctx context.Context, in civic.SubmitInput) (*civic.Complaint, error)
	FindNearby(ctx context.Context, req civic.NearbyRequest) ([]*civic.Complaint, error)
}

// CivicHandler handles the civic report endpoints.
type CivicHandler struct {
	complaints ComplaintService
	validate   *validator.Validate
	logger     zerolog.Logger
}

// NewCivicHandler creates a new CivicHandler.
func NewCivicHandler(complaints ComplaintService, logger zerolog.Logger) *CivicHandler {
	return &CivicHandler{
		complaints: complaints,
		validate:   models.NewValidator(),
		logger:     logger,
	}
}

// ListReports handles GET /api/civic-reports.
// The area filter applies only when both latitude and longitude are given.
func (h *CivicHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	req, fieldErrors := parseNearbyQuery(r)
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "invalid query parameters", fieldErrors)
		return
	}

	found, err := h.complaints.FindNearby(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to fetch civic reports")
		return
	}

	out := make([]models.CivicReport, 0, len(found))
	for _, c := range found {
		out = append(out, toCivicReport(c))
	}
	response.JSON(w, r, http.StatusOK, out)
}

// CreateReport handles POST /api/civic-reports.
func (h *CivicHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var input models.CivicReportCreateRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		response.BadRequest(w, r, "invalid civic report", models.FieldErrorsFrom(err))
		return
	}

	in := civic.SubmitInput{
		Location: civic.Location{
			Latitude:  *input.Location.Latitude,
			Longitude: *input.Location.Longitude,
		},
		Category:    civic.Category(input.ReportType),
		Description: input.Description,
		Severity:    civic.Severity(input.Severity),
		ReporterID:  input.ReporterID,
	}
	if input.Location.Address != nil {
		in.Location.Address = *input.Location.Address
	}

	created, err := h.complaints.Submit(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to create civic report")
		return
	}

	response.Created(w, r, "", toCivicReport(created))
}

func (h *CivicHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var verr *civic.ValidationError
	if errors.As(err, &verr) {
		response.BadRequest(w, r, "invalid civic report", verr.Errors)
		return
	}

	h.logger.Error().
		Err(err).
		Str("request_id", middleware.GetRequestID(r.Context())).
		Msg(msg)

	if errors.Is(err, civic.ErrStoreUnavailable) {
		response.ServiceUnavailable(w, r, "civic report store is unavailable")
		return
	}
	response.InternalError(w, r, msg)
}

func parseNearbyQuery(r *http.Request) (civic.NearbyRequest, []models.FieldError) {
	q := r.URL.Query()
	var (
		req  civic.NearbyRequest
		errs []models.FieldError
	)

	lat, latOK, err := queryFloat(q.Get("latitude"))
	if err != nil {
		errs = append(errs, invalidNumber("latitude"))
	}
	lon, lonOK, err := queryFloat(q.Get("longitude"))
	if err != nil {
		errs = append(errs, invalidNumber("longitude"))
	}
	if latOK && lonOK {
		req.Center = &civic.Location{Latitude: lat, Longitude: lon}
	}

	radius, ok, err := queryFloat(q.Get("radius"))
	switch {
	case err != nil:
		errs = append(errs, invalidNumber("radius"))
	case ok:
		req.RadiusDegrees = radius
	default:
		req.RadiusDegrees = civic.DefaultRadiusDegrees
	}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, models.FieldError{Field: "limit", Message: "must be an integer", Code: "INVALID_NUMBER"})
		} else {
			req.Limit = limit
		}
	}

	req.Category = civic.Category(strings.TrimSpace(q.Get("report_type")))
	return req, errs
}

func queryFloat(raw string) (v float64, present bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func invalidNumber(field string) models.FieldError {
	return models.FieldError{Field: field, Message: "must be a number", Code: "INVALID_NUMBER"}
}

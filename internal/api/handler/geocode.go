package handler

import (
	"context"
	"net/http"

	"github.com/ecosphere/ecosphere/internal/api/models"
	"github.com/ecosphere/ecosphere/internal/api/response"
)

// AddressResolver turns a coordinate into a display address, never failing.
type AddressResolver interface {
	Address(ctx context.Context, lat, lon float64) string
}

// GeocodeHandler proxies reverse geocoding for browser clients.
type GeocodeHandler struct {
	resolver AddressResolver
}

// NewGeocodeHandler creates a new GeocodeHandler.
func NewGeocodeHandler(resolver AddressResolver) *GeocodeHandler {
	return &GeocodeHandler{resolver: resolver}
}

// ReverseGeocode handles GET /api/geocode/reverse?lat=..&lon=..
func (h *GeocodeHandler) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var errs []models.FieldError

	lat, latOK, err := queryFloat(q.Get("lat"))
	switch {
	case err != nil:
		errs = append(errs, invalidNumber("lat"))
	case !latOK:
		errs = append(errs, models.FieldError{Field: "lat", Message: "is required", Code: "REQUIRED"})
	case lat < -90 || lat > 90:
		errs = append(errs, models.FieldError{Field: "lat", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"})
	}

	lon, lonOK, err := queryFloat(q.Get("lon"))
	switch {
	case err != nil:
		errs = append(errs, invalidNumber("lon"))
	case !lonOK:
		errs = append(errs, models.FieldError{Field: "lon", Message: "is required", Code: "REQUIRED"})
	case lon < -180 || lon > 180:
		errs = append(errs, models.FieldError{Field: "lon", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE"})
	}

	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid coordinates", errs)
		return
	}

	response.JSON(w, r, http.StatusOK, models.ReverseGeocodeResponse{
		Address: h.resolver.Address(r.Context(), lat, lon),
	})
}

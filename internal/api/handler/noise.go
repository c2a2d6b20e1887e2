package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/api/middleware"
	"github.com/ecosphere/ecosphere/internal/api/models"
	"github.com/ecosphere/ecosphere/internal/api/response"
	"github.com/ecosphere/ecosphere/internal/noise"
)

// NoiseMonitor records microphone samples and reports on them.
type NoiseMonitor interface {
	Record(ctx context.Context, s noise.Sample) (int, error)
	Stats(ctx context.Context, location string) (noise.Stats, error)
	Assess(ctx context.Context, location string, outlook noise.Outlook) (noise.Assessment, error)
	Current(ctx context.Context, location string) (noise.Current, error)
}

// NoiseHandler handles the noise sample endpoints.
type NoiseHandler struct {
	monitor  NoiseMonitor
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewNoiseHandler creates a new NoiseHandler.
func NewNoiseHandler(monitor NoiseMonitor, logger zerolog.Logger) *NoiseHandler {
	return &NoiseHandler{monitor: monitor, validate: models.NewValidator(), logger: logger}
}

// RecordSample handles POST /api/noise.
func (h *NoiseHandler) RecordSample(w http.ResponseWriter, r *http.Request) {
	var input models.NoiseSampleRequest
	if err := response.DecodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if err := h.validate.Struct(input); err != nil {
		response.BadRequest(w, r, "invalid noise sample", models.FieldErrorsFrom(err))
		return
	}

	total, err := h.monitor.Record(r.Context(), noise.Sample{
		Timestamp: time.Time(*input.Timestamp),
		Level:     *input.DBSPL,
		Location:  input.Location,
	})
	if err != nil {
		h.writeError(w, r, err, "failed to record noise sample")
		return
	}
	response.JSON(w, r, http.StatusCreated, models.NoiseSampleAccepted{TotalSamples: total})
}

// Stats handles GET /api/noise/stats.
func (h *NoiseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	location := locationQuery(r)
	st, err := h.monitor.Stats(r.Context(), location)
	if err != nil {
		h.writeError(w, r, err, "failed to compute noise statistics")
		return
	}
	response.JSON(w, r, http.StatusOK, toNoiseStats(location, st))
}

// Advice handles GET /api/noise/ai.
func (h *NoiseHandler) Advice(w http.ResponseWriter, r *http.Request) {
	h.assess(w, r, noise.OutlookSummary)
}

// Trends handles GET /api/noise/trends.
func (h *NoiseHandler) Trends(w http.ResponseWriter, r *http.Request) {
	h.assess(w, r, noise.OutlookTrend)
}

func (h *NoiseHandler) assess(w http.ResponseWriter, r *http.Request, outlook noise.Outlook) {
	a, err := h.monitor.Assess(r.Context(), locationQuery(r), outlook)
	if err != nil {
		h.writeError(w, r, err, "failed to assess noise")
		return
	}
	response.JSON(w, r, http.StatusOK, models.NoiseAssessment{
		Location: a.Location,
		Stats:    toNoiseStats(a.Location, a.Stats),
		Advice:   a.Advice,
	})
}

// Current handles GET /api/noise/current.
func (h *NoiseHandler) Current(w http.ResponseWriter, r *http.Request) {
	c, err := h.monitor.Current(r.Context(), locationQuery(r))
	if err != nil {
		h.writeError(w, r, err, "failed to read current noise")
		return
	}
	response.JSON(w, r, http.StatusOK, models.CurrentNoise{
		Location:     c.Location,
		CurrentNoise: c.Level,
		Timestamp:    models.Timestamp(c.At),
		Advice:       c.Advice,
	})
}

func (h *NoiseHandler) writeError(w http.ResponseWriter, r *http.Request, err error, detail string) {
	switch {
	case errors.Is(err, noise.ErrNoSamples):
		response.NotFound(w, r, "no noise data available for this location")
	case errors.Is(err, noise.ErrInvalidSample):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		h.logger.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg(detail)
		response.InternalError(w, r, detail)
	}
}

func locationQuery(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("location"))
}

func toNoiseStats(location string, st noise.Stats) models.NoiseStats {
	if location == "" {
		location = "all"
	}
	return models.NoiseStats{
		Location: location,
		Samples:  st.Samples,
		Leq:      st.Leq,
		Lmax:     st.Lmax,
		Lmin:     st.Lmin,
		L10:      st.L10,
		L90:      st.L90,
	}
}

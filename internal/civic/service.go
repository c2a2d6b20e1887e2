package civic

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/api/models"
	"github.com/ecosphere/ecosphere/internal/events"
	"github.com/ecosphere/ecosphere/internal/observability"
	"github.com/ecosphere/ecosphere/internal/provider/fallback"
)

// GeocodeSourceName labels reverse-geocoding attempts in logs and metrics.
const GeocodeSourceName = "geocode"

// ValidationError holds field-level input errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Geocoder resolves a coordinate to a display address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// SubmitInput is a new complaint as submitted by a citizen.
type SubmitInput struct {
	Location    Location `json:"location"`
	Category    Category `json:"report_type" validate:"required,category"`
	Description string   `json:"description" validate:"required,max=1000"`
	Severity    Severity `json:"severity" validate:"required,oneof=low medium high"`
	ReporterID  *string  `json:"reporter_id" validate:"omitempty,max=128"`
}

// NearbyRequest lists complaints, optionally around a center.
type NearbyRequest struct {
	Center        *Location `json:"location"`
	RadiusDegrees float64   `json:"radius" validate:"gte=0,lte=1"`
	Category      Category  `json:"report_type" validate:"omitempty,category"`
	Limit         int       `json:"limit" validate:"gte=0,lte=100"`
}

// ServiceConfig holds configuration for the civic service.
type ServiceConfig struct {
	Repository Repository

	// Geocoder is optional. When set, submissions without an address get one
	// best-effort.
	Geocoder       Geocoder
	GeocodeTimeout time.Duration
	Publisher      events.Publisher
	PublishTimeout time.Duration
	Clock          clockwork.Clock
	Logger         zerolog.Logger
	Metrics        *observability.Metrics
}

// Service provides complaint submission and listing.
type Service struct {
	repo           Repository
	geocoder       Geocoder
	geocodePolicy  fallback.Policy
	publisher      events.Publisher
	publishTimeout time.Duration
	clock          clockwork.Clock
	validate       *validator.Validate
	logger         zerolog.Logger
	metrics        *observability.Metrics
}

// NewService creates a new civic service.
func NewService(cfg ServiceConfig) *Service {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	geocodeTimeout := cfg.GeocodeTimeout
	if geocodeTimeout == 0 {
		geocodeTimeout = 5 * time.Second
	}
	publishTimeout := cfg.PublishTimeout
	if publishTimeout == 0 {
		publishTimeout = 5 * time.Second
	}

	v := models.NewValidator()
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return Category(fl.Field().String()).Valid()
	})

	return &Service{
		repo:     cfg.Repository,
		geocoder: cfg.Geocoder,
		geocodePolicy: fallback.Policy{
			Source:  GeocodeSourceName,
			Timeout: geocodeTimeout,
			Logger:  cfg.Logger,
			Metrics: cfg.Metrics,
		},
		publisher:      publisher,
		publishTimeout: publishTimeout,
		clock:          clock,
		validate:       v,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}
}

// Submit validates and stores a new active complaint.
// Store failures wrap ErrStoreUnavailable.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Complaint, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.Location.Address = strings.TrimSpace(in.Location.Address)

	if fieldErrors := s.check(in); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	c := &Complaint{
		ID:          uuid.NewString(),
		Location:    in.Location,
		Category:    in.Category,
		Description: in.Description,
		Severity:    in.Severity,
		Status:      StatusActive,
		ReporterID:  in.ReporterID,
		CreatedAt:   s.clock.Now().UTC(),
	}

	if c.Location.Address == "" && s.geocoder != nil {
		c.Location.Address = fallback.Attempt(ctx, s.geocodePolicy, func(ctx context.Context) (string, error) {
			return s.geocoder.ReverseGeocode(ctx, c.Location.Latitude, c.Location.Longitude)
		}, "")
	}

	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.Error().Err(err).Str("category", string(c.Category)).Msg("failed to store complaint")
		return nil, err
	}

	s.metrics.ComplaintSubmitted(string(c.Category))
	s.publishSubmitted(ctx, c)

	return c, nil
}

// FindNearby lists active complaints newest first. Without a center every
// active complaint is eligible.
func (s *Service) FindNearby(ctx context.Context, req NearbyRequest) ([]*Complaint, error) {
	if fieldErrors := s.check(req); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	limit := req.Limit
	if limit == 0 {
		limit = ListLimit
	}

	return s.repo.FindNearby(ctx, NearbyQuery{
		Center:        req.Center,
		RadiusDegrees: req.RadiusDegrees,
		Category:      req.Category,
		Limit:         limit,
		NewestFirst:   true,
	})
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) check(v any) []models.FieldError {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	fieldErrors := models.FieldErrorsFrom(err)
	for i := range fieldErrors {
		if fieldErrors[i].Code == "CATEGORY" {
			fieldErrors[i].Message = "must be one of: " + categoryList()
		}
	}
	if len(fieldErrors) == 0 {
		return []models.FieldError{{Field: "", Message: err.Error()}}
	}
	return fieldErrors
}

// publishSubmitted announces a stored complaint. Failures are logged only.
func (s *Service) publishSubmitted(ctx context.Context, c *Complaint) {
	e, err := events.New(events.TypeComplaintSubmitted, c.CreatedAt, c)
	if err == nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
		defer cancel()
		err = s.publisher.Publish(pubCtx, e)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("complaint_id", c.ID).Msg("failed to publish complaint event")
	}
}

func categoryList() string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

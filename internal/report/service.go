package report

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ecosphere/ecosphere/internal/airquality"
	"github.com/ecosphere/ecosphere/internal/civic"
	"github.com/ecosphere/ecosphere/internal/noise"
	"github.com/ecosphere/ecosphere/internal/observability"
	"github.com/ecosphere/ecosphere/internal/provider/fallback"
	"github.com/ecosphere/ecosphere/internal/risk"
	"github.com/ecosphere/ecosphere/internal/suggestion"
	"github.com/ecosphere/ecosphere/internal/telemetry"
	"github.com/ecosphere/ecosphere/internal/weather"
)

const tracerName = "github.com/ecosphere/ecosphere/internal/report"

// ComplaintsSourceName labels the nearby-complaints query in logs and metrics.
const ComplaintsSourceName = "civic_complaints"

// AirQualitySource returns a reading for a coordinate, never failing.
type AirQualitySource interface {
	Fetch(ctx context.Context, lat, lon float64) airquality.Reading
}

// WeatherSource returns a reading for a coordinate, never failing.
type WeatherSource interface {
	Fetch(ctx context.Context, lat, lon float64) weather.Reading
}

// NoiseSource returns an ambient noise level in dB, never failing.
type NoiseSource interface {
	Fetch(ctx context.Context, lat, lon float64) float64
}

// SuggestionSource returns advice for a snapshot, never failing.
type SuggestionSource interface {
	Generate(ctx context.Context, c suggestion.Context) []string
}

// ComplaintFinder runs the bounding-box complaint query.
type ComplaintFinder interface {
	FindNearby(ctx context.Context, q civic.NearbyQuery) ([]*civic.Complaint, error)
}

// ServiceConfig holds configuration for the report service.
// Nil sources are replaced by their provider-less defaults, which always
// yield fallback values.
type ServiceConfig struct {
	AirQuality  AirQualitySource
	Weather     WeatherSource
	Noise       NoiseSource
	Suggestions SuggestionSource
	Complaints  ComplaintFinder

	// ComplaintsTimeout bounds the nearby-complaints query (default: 5s).
	ComplaintsTimeout time.Duration

	Clock   clockwork.Clock
	Tracer  trace.Tracer
	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Service builds environmental reports.
type Service struct {
	airQuality  AirQualitySource
	weather     WeatherSource
	noise       NoiseSource
	suggestions SuggestionSource
	complaints  ComplaintFinder

	complaintsPolicy fallback.Policy

	clock   clockwork.Clock
	tracer  trace.Tracer
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewService creates a new report service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		airQuality:  cfg.AirQuality,
		weather:     cfg.Weather,
		noise:       cfg.Noise,
		suggestions: cfg.Suggestions,
		complaints:  cfg.Complaints,
		clock:       cfg.Clock,
		tracer:      cfg.Tracer,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}

	if s.airQuality == nil {
		s.airQuality = airquality.NewFetcher(airquality.FetcherConfig{Logger: cfg.Logger, Metrics: cfg.Metrics})
	}
	if s.weather == nil {
		s.weather = weather.NewFetcher(weather.FetcherConfig{Logger: cfg.Logger, Metrics: cfg.Metrics})
	}
	if s.noise == nil {
		s.noise = noise.NewFetcher(noise.FetcherConfig{Logger: cfg.Logger, Metrics: cfg.Metrics})
	}
	if s.suggestions == nil {
		s.suggestions = suggestion.NewGenerator(suggestion.GeneratorConfig{Logger: cfg.Logger, Metrics: cfg.Metrics})
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.tracer == nil {
		s.tracer = telemetry.Tracer(tracerName)
	}

	timeout := cfg.ComplaintsTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	s.complaintsPolicy = fallback.Policy{
		Source:  ComplaintsSourceName,
		Timeout: timeout,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	}

	return s
}

// BuildReport assembles the report for loc. Air quality, weather, noise and
// nearby complaints are fetched concurrently and each degrades to its
// fallback on failure. The water-logging risk is computed after the fan-out
// is launched and suggestions after it joins. An invalid loc returns a
// *ValidationError; any other error wraps ErrReportGenerationFailed.
func (s *Service) BuildReport(ctx context.Context, loc Location) (rep *Report, err error) {
	start := s.clock.Now()

	if fieldErrors := loc.Validate(); len(fieldErrors) > 0 {
		s.metrics.ObserveReport(observability.OutcomeInvalid, 0)
		return nil, &ValidationError{Errors: fieldErrors}
	}

	ctx, span := s.tracer.Start(ctx, "report.BuildReport", trace.WithAttributes(
		attribute.Float64("location.latitude", loc.Latitude),
		attribute.Float64("location.longitude", loc.Longitude),
	))
	defer span.End()

	logger := s.logger.With().
		Float64("lat", loc.Latitude).
		Float64("lon", loc.Longitude).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("panic while assembling report")
			rep, err = nil, fmt.Errorf("%w: panic: %v", ErrReportGenerationFailed, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.metrics.ObserveReport(observability.OutcomeFailure, 0)
			return
		}
		s.metrics.ObserveReport(observability.OutcomeSuccess, s.clock.Since(start))
	}()

	var (
		aq         airquality.Reading
		wx         weather.Reading
		noiseDB    float64
		complaints []*civic.Complaint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard("air_quality", func() {
		aq = s.airQuality.Fetch(gctx, loc.Latitude, loc.Longitude)
	}))
	g.Go(guard("weather", func() {
		wx = s.weather.Fetch(gctx, loc.Latitude, loc.Longitude)
	}))
	g.Go(guard("noise", func() {
		noiseDB = s.noise.Fetch(gctx, loc.Latitude, loc.Longitude)
	}))
	g.Go(guard(ComplaintsSourceName, func() {
		complaints = s.nearbyComplaints(gctx, loc)
	}))

	level := risk.EstimateWaterLoggingRisk(loc.Latitude, loc.Longitude)

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("report source task failed")
		return nil, fmt.Errorf("%w: %w", ErrReportGenerationFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportGenerationFailed, err)
	}

	suggestions := s.suggestions.Generate(ctx, suggestion.Context{
		AQI:              aq.AQI,
		Temperature:      wx.Temperature,
		Humidity:         wx.Humidity,
		WindSpeed:        wx.WindSpeed,
		WaterLoggingRisk: level,
	})
	if len(suggestions) > suggestion.MaxSuggestions {
		suggestions = suggestions[:suggestion.MaxSuggestions]
	}

	health := risk.EnvironmentalHealth(risk.HealthInput{
		AQI:             aq.AQI,
		Temperature:     wx.Temperature,
		Humidity:        float64(wx.Humidity),
		WindSpeed:       wx.WindSpeed,
		NoiseDB:         noiseDB,
		PrecipitationMM: wx.Precipitation,
	}, risk.DefaultHealthWeights)

	rep = &Report{
		Location:         loc,
		AirQuality:       aq,
		Weather:          wx,
		NoiseLevel:       noiseDB,
		WaterLoggingRisk: level,
		Complaints:       complaints,
		Suggestions:      suggestions,
		HealthScore:      health,
		GeneratedAt:      s.clock.Now().UTC(),
	}

	span.SetAttributes(
		attribute.Int("report.aqi", aq.AQI),
		attribute.String("report.water_logging_risk", string(level)),
		attribute.Int("report.complaints", len(complaints)),
		attribute.Int("report.health_score", health.Score),
	)
	logger.Debug().
		Int("aqi", aq.AQI).
		Str("water_logging_risk", string(level)).
		Int("complaints", len(complaints)).
		Msg("report assembled")

	return rep, nil
}

// nearbyComplaints returns up to civic.ReportLimit active complaints in the
// default box around loc, or an empty list when the store fails.
func (s *Service) nearbyComplaints(ctx context.Context, loc Location) []*civic.Complaint {
	empty := []*civic.Complaint{}
	if s.complaints == nil {
		return empty
	}

	center := civic.Location{Latitude: loc.Latitude, Longitude: loc.Longitude}
	found := fallback.Attempt(ctx, s.complaintsPolicy, func(ctx context.Context) ([]*civic.Complaint, error) {
		return s.complaints.FindNearby(ctx, civic.NearbyQuery{
			Center:        &center,
			RadiusDegrees: civic.DefaultRadiusDegrees,
			Limit:         civic.ReportLimit,
		})
	}, empty)

	if found == nil {
		return empty
	}
	if len(found) > civic.ReportLimit {
		found = found[:civic.ReportLimit]
	}
	return found
}

// guard runs fn and converts a panic into an error so it surfaces from Wait
// instead of crashing the process.
func guard(task string, fn func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s task panicked: %v", task, r)
			}
		}()
		fn()
		return nil
	}
}

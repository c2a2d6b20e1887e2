// Package app wires configuration into the services shared by the API and
// worker binaries.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/airquality"
	"github.com/ecosphere/ecosphere/internal/airquality/waqi"
	"github.com/ecosphere/ecosphere/internal/civic"
	"github.com/ecosphere/ecosphere/internal/config"
	"github.com/ecosphere/ecosphere/internal/database"
	"github.com/ecosphere/ecosphere/internal/geocode"
	"github.com/ecosphere/ecosphere/internal/geocode/nominatim"
	"github.com/ecosphere/ecosphere/internal/noise"
	"github.com/ecosphere/ecosphere/internal/noise/tomtom"
	"github.com/ecosphere/ecosphere/internal/observability"
	"github.com/ecosphere/ecosphere/internal/provider/resilience"
	"github.com/ecosphere/ecosphere/internal/report"
	"github.com/ecosphere/ecosphere/internal/suggestion"
	"github.com/ecosphere/ecosphere/internal/suggestion/gemini"
	"github.com/ecosphere/ecosphere/internal/weather"
	"github.com/ecosphere/ecosphere/internal/weather/openweathermap"
)

// Providers holds the upstream-backed sources. Each upstream with credentials
// gets a resilient client registered in Registry; the rest stay provider-less
// and always serve fallbacks.
type Providers struct {
	Registry *resilience.Registry

	AirQuality  *airquality.Fetcher
	Weather     *weather.Fetcher
	Noise       *noise.Fetcher
	Suggestions *suggestion.Generator
	Addresses   *geocode.Resolver

	// Text is nil without a Gemini key.
	Text suggestion.TextGenerator

	// Geocoder is nil when geocoding is disabled.
	Geocoder civic.Geocoder
}

// NewProviders builds the sources described by cfg.
func NewProviders(cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) *Providers {
	registry := resilience.NewRegistry()
	httpClient := func(name string) *resilience.Client {
		c := resilience.DefaultClientConfig(name)
		c.Registry = registry
		c.Logger = &logger
		return resilience.NewClient(c)
	}

	p := &Providers{Registry: registry}

	p.AirQuality = airquality.NewFetcher(airquality.FetcherConfig{
		Provider: waqi.NewClient(waqi.ClientConfig{
			Token:      cfg.WAQIToken,
			BaseURL:    cfg.WAQIBaseURL,
			HTTPClient: httpClient(waqi.ProviderName),
		}),
		Timeout: cfg.AQITimeout,
		Logger:  logger,
		Metrics: metrics,
	})

	weatherCfg := weather.FetcherConfig{Timeout: cfg.WeatherTimeout, Logger: logger, Metrics: metrics}
	if cfg.OpenWeatherAPIKey != "" {
		weatherCfg.Provider = openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:     cfg.OpenWeatherAPIKey,
			HTTPClient: httpClient(openweathermap.ProviderName),
			Logger:     logger,
		})
	} else {
		logger.Warn().Msg("OPENWEATHER_API_KEY not set, weather will use fallback values")
	}
	p.Weather = weather.NewFetcher(weatherCfg)

	noiseCfg := noise.FetcherConfig{Timeout: cfg.NoiseTimeout, Logger: logger, Metrics: metrics}
	if cfg.TomTomAPIKey != "" {
		noiseCfg.Provider = tomtom.NewClient(tomtom.ClientConfig{
			APIKey:     cfg.TomTomAPIKey,
			HTTPClient: httpClient(tomtom.ProviderName),
		})
	}
	p.Noise = noise.NewFetcher(noiseCfg)

	if cfg.GeminiAPIKey != "" {
		p.Text = gemini.NewClient(gemini.ClientConfig{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			HTTPClient: httpClient(gemini.ProviderName),
		})
	} else {
		logger.Warn().Msg("GEMINI_API_KEY not set, suggestions and chat will use fallback text")
	}
	p.Suggestions = suggestion.NewGenerator(suggestion.GeneratorConfig{
		Client:  p.Text,
		Timeout: cfg.SuggestionTimeout,
		Logger:  logger,
		Metrics: metrics,
	})

	resolverCfg := geocode.ResolverConfig{Timeout: cfg.GeocodeTimeout, Logger: logger, Metrics: metrics}
	if cfg.GeocodeEnabled {
		client := nominatim.NewClient(nominatim.ClientConfig{
			HTTPClient: httpClient(nominatim.ProviderName),
		})
		resolverCfg.Provider = client
		p.Geocoder = client
	}
	p.Addresses = geocode.NewResolver(resolverCfg)

	return p
}

// OpenStore connects the complaint store selected by cfg.StoreDriver and
// prepares its schema or indexes. The returned close function releases the
// connection.
func OpenStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (civic.Repository, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		repo := civic.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("postgres complaint store connected")
		return repo, pool.Close, nil

	case config.StoreMongo:
		client, db, err := database.ConnectMongo(ctx, database.MongoConfig{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			ConnectTimeout: cfg.StoreTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		repo := civic.NewMongoRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		logger.Info().Str("database", cfg.MongoDatabase).Msg("mongo complaint store connected")
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.StoreMemory:
		logger.Warn().Msg("using in-memory complaint store, complaints are lost on restart")
		return civic.NewInMemoryRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// NewReportService assembles the report aggregator over p and the complaint store.
func NewReportService(cfg *config.Config, p *Providers, complaints report.ComplaintFinder, logger zerolog.Logger, metrics *observability.Metrics) *report.Service {
	return report.NewService(report.ServiceConfig{
		AirQuality:        p.AirQuality,
		Weather:           p.Weather,
		Noise:             p.Noise,
		Suggestions:       p.Suggestions,
		Complaints:        complaints,
		ComplaintsTimeout: cfg.StoreTimeout,
		Logger:            logger,
		Metrics:           metrics,
	})
}

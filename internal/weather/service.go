package weather

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/observability"
	"github.com/ecosphere/ecosphere/internal/provider/fallback"
)

// SourceName labels weather fetches in logs and metrics.
const SourceName = "weather"

// Provider fetches current weather for a coordinate.
type Provider interface {
	Name() string
	CurrentWeather(ctx context.Context, lat, lon float64) (*Reading, error)
}

// FetcherConfig holds configuration for the weather fetcher.
type FetcherConfig struct {
	// Provider is optional. Without one every fetch returns Fallback().
	Provider Provider

	// Timeout bounds a single provider call (default: 5s).
	Timeout time.Duration

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Fetcher returns current weather for a location, never failing.
type Fetcher struct {
	provider Provider
	policy   fallback.Policy
}

// NewFetcher creates a new weather fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	return &Fetcher{
		provider: cfg.Provider,
		policy: fallback.Policy{
			Source:  SourceName,
			Timeout: timeout,
			Logger:  cfg.Logger,
			Metrics: cfg.Metrics,
		},
	}
}

// Fetch returns current weather for (lat, lon), or Fallback() when the
// provider is absent, fails, times out or returns an implausible reading.
func (f *Fetcher) Fetch(ctx context.Context, lat, lon float64) Reading {
	if f.provider == nil {
		return Fallback()
	}

	return fallback.Attempt(ctx, f.policy, func(ctx context.Context) (Reading, error) {
		obs, err := f.provider.CurrentWeather(ctx, lat, lon)
		if err != nil {
			return Reading{}, err
		}
		if obs == nil {
			return Reading{}, ErrInvalidReading
		}
		if err := obs.Validate(); err != nil {
			return Reading{}, err
		}
		return *obs, nil
	}, Fallback())
}

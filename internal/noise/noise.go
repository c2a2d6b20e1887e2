// Package noise estimates ambient road-noise level from live traffic flow.
package noise

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/observability"
	"github.com/ecosphere/ecosphere/internal/provider/fallback"
)

// SourceName labels noise fetches in logs and metrics.
const SourceName = "noise"

// DefaultLevel is the noise level in dB reported when no traffic data is available.
const DefaultLevel = 45.0

// ErrInvalidFlow is returned for flow segments that cannot yield a congestion figure.
var ErrInvalidFlow = errors.New("invalid traffic flow segment")

// Flow is the observed and free-flow speed on the nearest road segment.
type Flow struct {
	CurrentSpeed  float64
	FreeFlowSpeed float64
}

// Congestion returns how far below free-flow traffic is moving, as 0-100.
func (f Flow) Congestion() (float64, error) {
	if f.FreeFlowSpeed <= 0 || f.CurrentSpeed < 0 {
		return 0, fmt.Errorf("%w: current %.1f free-flow %.1f", ErrInvalidFlow, f.CurrentSpeed, f.FreeFlowSpeed)
	}
	c := (f.FreeFlowSpeed - f.CurrentSpeed) / f.FreeFlowSpeed * 100
	return math.Max(0, math.Min(100, c)), nil
}

// DecibelsFor maps congestion (0-100) onto the 50-85 dB road-noise range.
func DecibelsFor(congestion float64) float64 {
	return math.Round((50+congestion/100*35)*10) / 10
}

// Provider fetches the flow segment nearest to a coordinate.
type Provider interface {
	Name() string
	FlowSegment(ctx context.Context, lat, lon float64) (*Flow, error)
}

// FetcherConfig holds configuration for the noise fetcher.
type FetcherConfig struct {
	// Provider is optional. Without one every fetch returns DefaultLevel.
	Provider Provider

	// Timeout bounds a single provider call (default: 5s).
	Timeout time.Duration

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Fetcher returns the estimated noise level at a location, never failing.
type Fetcher struct {
	provider Provider
	policy   fallback.Policy
}

// NewFetcher creates a new noise fetcher.
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

// Fetch returns the estimated noise level in dB at (lat, lon).
func (f *Fetcher) Fetch(ctx context.Context, lat, lon float64) float64 {
	if f.provider == nil {
		return DefaultLevel
	}

	return fallback.Attempt(ctx, f.policy, func(ctx context.Context) (float64, error) {
		flow, err := f.provider.FlowSegment(ctx, lat, lon)
		if err != nil {
			return 0, err
		}
		if flow == nil {
			return 0, ErrInvalidFlow
		}
		congestion, err := flow.Congestion()
		if err != nil {
			return 0, err
		}
		return DecibelsFor(congestion), nil
	}, DefaultLevel)
}

// Package geocode resolves coordinates to human-readable addresses.
package geocode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/observability"
	"github.com/ecosphere/ecosphere/internal/provider/fallback"
)

// SourceName labels reverse-geocoding attempts in logs and metrics.
const SourceName = "geocode"

// Provider resolves a coordinate to a display address.
type Provider interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// ResolverConfig holds configuration for the address resolver.
type ResolverConfig struct {
	// Provider is optional. Without one every lookup returns the coordinate label.
	Provider Provider

	// Timeout bounds one lookup (default: 5s).
	Timeout time.Duration

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Resolver always produces an address, falling back to the coordinates.
type Resolver struct {
	provider Provider
	policy   fallback.Policy
}

// NewResolver creates a new address resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		provider: cfg.Provider,
		policy: fallback.Policy{
			Source:  SourceName,
			Timeout: timeout,
			Logger:  cfg.Logger,
			Metrics: cfg.Metrics,
		},
	}
}

// CoordinateLabel formats a coordinate as "lat, lon" with four decimals.
func CoordinateLabel(lat, lon float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lon)
}

// Address returns the provider's address for (lat, lon) or CoordinateLabel.
func (r *Resolver) Address(ctx context.Context, lat, lon float64) string {
	label := CoordinateLabel(lat, lon)
	if r.provider == nil {
		return label
	}
	return fallback.Attempt(ctx, r.policy, func(ctx context.Context) (string, error) {
		return r.provider.ReverseGeocode(ctx, lat, lon)
	}, label)
}

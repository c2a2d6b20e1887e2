// Package suggestion turns an environmental snapshot into short actionable advice
// using an external text generator, with a fixed fallback list.
package suggestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/observability"
	"github.com/ecosphere/ecosphere/internal/provider/fallback"
	"github.com/ecosphere/ecosphere/internal/risk"
)

// SourceName labels suggestion generation in logs and metrics.
const SourceName = "suggestions"

// MaxSuggestions is the most suggestions a report carries.
const MaxSuggestions = 5

// SystemRole frames the generator as an environmental advisor.
const SystemRole = "You are an environmental expert providing actionable suggestions based on air quality, " +
	"weather, and local conditions. Provide 3-5 concise, practical suggestions."

// ErrNoSuggestions is returned when generated text contains no usable lines.
var ErrNoSuggestions = errors.New("no suggestions in generated text")

// TextGenerator produces free text for a system role and a user prompt.
// Implementations must honor ctx cancellation.
type TextGenerator interface {
	Generate(ctx context.Context, systemRole, prompt string) (string, error)
}

// Context is the environmental snapshot suggestions are generated for.
type Context struct {
	AQI              int
	Temperature      float64
	Humidity         int
	WindSpeed        float64
	WaterLoggingRisk risk.Level
}

// Prompt renders the user prompt for c.
func (c Context) Prompt() string {
	return fmt.Sprintf(`Based on the following environmental data, provide specific actionable suggestions:

Air Quality Index: %d
Temperature: %v°C
Humidity: %d%%
Wind Speed: %v km/h
Water Logging Risk: %s

Provide 3-5 bullet points with practical advice for residents in this area.`,
		c.AQI, c.Temperature, c.Humidity, c.WindSpeed, c.WaterLoggingRisk)
}

// Fallback returns the generic advice used when generation fails or yields nothing.
func Fallback() []string {
	return []string{
		"Monitor air quality regularly using reliable sources",
		"Stay hydrated and avoid outdoor activities during peak pollution hours",
		"Use air purifiers indoors when AQI is high",
		"Keep windows closed during high pollution periods",
		"Consider wearing N95 masks when outdoors",
	}
}

// GeneratorConfig holds configuration for the suggestion generator.
type GeneratorConfig struct {
	// Client is optional. Without one every call returns Fallback().
	Client TextGenerator

	// Timeout bounds one generation call (default: 15s).
	Timeout time.Duration

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Generator produces between one and MaxSuggestions suggestions, never failing.
type Generator struct {
	client TextGenerator
	policy fallback.Policy
}

// NewGenerator creates a new suggestion generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Generator{
		client: cfg.Client,
		policy: fallback.Policy{
			Source:  SourceName,
			Timeout: timeout,
			Logger:  cfg.Logger,
			Metrics: cfg.Metrics,
		},
	}
}

// Generate returns suggestions for c. Any error, timeout or empty parse
// yields Fallback().
func (g *Generator) Generate(ctx context.Context, c Context) []string {
	if g.client == nil {
		return Fallback()
	}

	return fallback.Attempt(ctx, g.policy, func(ctx context.Context) ([]string, error) {
		text, err := g.client.Generate(ctx, SystemRole, c.Prompt())
		if err != nil {
			return nil, err
		}
		parsed := ParseSuggestions(text)
		if len(parsed) == 0 {
			return nil, ErrNoSuggestions
		}
		return parsed, nil
	}, Fallback())
}

package noise

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/observability"
	"github.com/ecosphere/ecosphere/internal/provider/fallback"
)

// AdviceSource labels noise advice generation in logs and metrics.
const AdviceSource = "noise_advice"

const adviceRole = "You are EcoSphere's environmental AI assistant. Explain noise exposure in plain language."

var errEmptyAdvice = errors.New("generator returned empty advice")

// TextGenerator produces free text for a system role and a user prompt.
type TextGenerator interface {
	Generate(ctx context.Context, systemRole, prompt string) (string, error)
}

// Outlook selects the question asked about a set of statistics.
type Outlook int

const (
	// OutlookSummary asks how noisy the area is.
	OutlookSummary Outlook = iota
	// OutlookTrend asks how the noise has developed.
	OutlookTrend
)

// Assessment is the statistics for a location with advice on them.
type Assessment struct {
	Location string
	Stats    Stats
	Advice   string
}

// Current is the newest sample for a location with advice on it.
type Current struct {
	Location string
	Level    float64
	At       time.Time
	Advice   string
}

// MonitorConfig holds configuration for the Monitor.
type MonitorConfig struct {
	// Store defaults to an in-memory store of StatsWindow samples.
	Store SampleStore

	// Client is optional. Without one advice comes from AdviceFor.
	Client TextGenerator

	// Timeout bounds one advice generation (default: 30s).
	Timeout time.Duration

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Monitor records microphone samples and reports noise exposure.
type Monitor struct {
	store  SampleStore
	client TextGenerator
	policy fallback.Policy
	logger zerolog.Logger
}

// NewMonitor creates a new Monitor.
func NewMonitor(cfg MonitorConfig) *Monitor {
	store := cfg.Store
	if store == nil {
		store = NewInMemorySampleStore(StatsWindow)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Monitor{
		store:  store,
		client: cfg.Client,
		policy: fallback.Policy{
			Source:  AdviceSource,
			Timeout: timeout,
			Logger:  cfg.Logger,
			Metrics: cfg.Metrics,
		},
		logger: cfg.Logger,
	}
}

// Record validates and stores s, returning how many samples are held.
func (m *Monitor) Record(ctx context.Context, s Sample) (int, error) {
	if s.Timestamp.IsZero() {
		return 0, fmt.Errorf("%w: timestamp is required", ErrInvalidSample)
	}
	if s.Level < 0 || s.Level > MaxLevel {
		return 0, fmt.Errorf("%w: level %.1f dB out of range", ErrInvalidSample, s.Level)
	}
	s.Location = strings.TrimSpace(s.Location)
	if s.Location == "" {
		s.Location = UnknownLocation
	}

	total, err := m.store.Add(ctx, s)
	if err != nil {
		return 0, fmt.Errorf("store noise sample: %w", err)
	}
	m.logger.Debug().
		Str("location", s.Location).
		Float64("dbspl", s.Level).
		Int("total", total).
		Msg("noise sample recorded")
	return total, nil
}

// Stats summarizes the newest StatsWindow samples at location, or everywhere
// when location is empty.
func (m *Monitor) Stats(ctx context.Context, location string) (Stats, error) {
	samples, err := m.store.Recent(ctx, location, StatsWindow)
	if err != nil {
		return Stats{}, fmt.Errorf("load noise samples: %w", err)
	}
	return Summarize(samples)
}

// Assess returns the statistics at location with generated advice. Generator
// failures fall back to AdviceFor the Leq.
func (m *Monitor) Assess(ctx context.Context, location string, outlook Outlook) (Assessment, error) {
	st, err := m.Stats(ctx, location)
	if err != nil {
		return Assessment{}, err
	}

	prompt := fmt.Sprintf("Based on these noise levels (Leq: %.2f dB, Lmax: %.2f dB, L90: %.2f dB), "+
		"give a simple explanation of how noisy the area is and whether it's healthy.", st.Leq, st.Lmax, st.L90)
	if outlook == OutlookTrend {
		prompt = fmt.Sprintf("Based on these noise levels over time (Leq: %.2f dB, Lmax: %.2f dB, L90: %.2f dB), "+
			"explain the noise pollution trend in this area in simple language and whether it's healthy.", st.Leq, st.Lmax, st.L90)
	}
	prompt += " Keep it short and easy to understand. Don't show data to the user."

	return Assessment{
		Location: displayLocation(location),
		Stats:    st,
		Advice:   m.advise(ctx, prompt, st.Leq),
	}, nil
}

// Current returns the newest sample at location with generated advice.
func (m *Monitor) Current(ctx context.Context, location string) (Current, error) {
	samples, err := m.store.Recent(ctx, location, 1)
	if err != nil {
		return Current{}, fmt.Errorf("load noise samples: %w", err)
	}
	if len(samples) == 0 {
		return Current{}, ErrNoSamples
	}
	latest := samples[0]

	prompt := fmt.Sprintf("The current noise level is %.2f dB. Explain in simple terms how noisy the area is "+
		"right now and if it's healthy for people. Keep it short and easy to understand.", latest.Level)

	return Current{
		Location: displayLocation(location),
		Level:    latest.Level,
		At:       latest.Timestamp,
		Advice:   m.advise(ctx, prompt, latest.Level),
	}, nil
}

func (m *Monitor) advise(ctx context.Context, prompt string, level float64) string {
	def := AdviceFor(level)
	if m.client == nil {
		return def
	}
	return fallback.Attempt(ctx, m.policy, func(ctx context.Context) (string, error) {
		text, err := m.client.Generate(ctx, adviceRole, prompt)
		if err != nil {
			return "", err
		}
		if text = strings.TrimSpace(text); text == "" {
			return "", errEmptyAdvice
		}
		return text, nil
	}, def)
}

// AdviceFor is fixed guidance for a level in dB, banded on the WHO
// community noise guidelines.
func AdviceFor(level float64) string {
	switch {
	case level < 55:
		return "The area is fairly quiet. Noise at this level is not a health concern."
	case level < 70:
		return "The area is moderately noisy. Long stays can be tiring, so take quiet breaks when you can."
	case level < 85:
		return "The area is loud. Extended exposure can disturb sleep and raise stress, so limit time here."
	default:
		return "The area is very loud. Noise at this level can damage hearing, so use ear protection or move away."
	}
}

func displayLocation(location string) string {
	if location == "" {
		return "all"
	}
	return location
}

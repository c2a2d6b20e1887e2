// Package chat answers free-form environmental questions with a text generator.
package chat

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/api/models"
	"github.com/ecosphere/ecosphere/internal/observability"
	"github.com/ecosphere/ecosphere/internal/provider/fallback"
	"github.com/ecosphere/ecosphere/internal/suggestion"
)

// SystemRole frames the generator as the EcoSphere assistant.
const SystemRole = "You are EcoSphere's environmental AI assistant. Help users understand air quality, " +
	"weather conditions, and environmental health. Provide accurate, helpful, and actionable advice. " +
	"Keep responses concise but informative."

// Apology is returned when the generator fails.
const Apology = "I'm sorry, I'm experiencing some technical difficulties. Please try again later."

// MaxMessageLength bounds a user message.
const MaxMessageLength = 4000

// Source labels chat generation in upstream logs and metrics.
const Source = "chat"

var (
	errEmptyReply  = errors.New("generator returned an empty reply")
	errNoGenerator = errors.New("no text generator configured")
)

// FollowUps are offered after every successful answer.
func FollowUps() []string {
	return []string{
		"Check current air quality index",
		"Get weather forecast",
		"Report environmental issue",
		"Find nearby water logging areas",
	}
}

// ValidationError holds field-level input errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Location is the optional position a question is asked from.
type Location struct {
	Latitude  float64
	Longitude float64
}

// Answer is the assistant's reply.
type Answer struct {
	Text        string
	Suggestions []string

	// Degraded is set when Text is the apology.
	Degraded bool
}

// ServiceConfig holds configuration for the chat service.
type ServiceConfig struct {
	// Client is optional. Without one every answer is the apology.
	Client suggestion.TextGenerator

	// Timeout bounds one generation call (default: 30s).
	Timeout time.Duration

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Service answers chat messages.
type Service struct {
	client  suggestion.TextGenerator
	timeout time.Duration
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewService creates a new chat service.
func NewService(cfg ServiceConfig) *Service {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		client:  cfg.Client,
		timeout: timeout,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Answer replies to message. Generator failures produce the apology with no
// suggestions; only an empty or oversized message is an error.
func (s *Service) Answer(ctx context.Context, message string, loc *Location) (Answer, error) {
	message = strings.TrimSpace(message)
	if fieldErrors := validateMessage(message, loc); len(fieldErrors) > 0 {
		return Answer{}, &ValidationError{Errors: fieldErrors}
	}

	text := s.generate(ctx, Prompt(message, loc))
	if text == "" {
		s.metrics.ChatAnswered(observability.OutcomeFallback)
		return Answer{Text: Apology, Suggestions: []string{}, Degraded: true}, nil
	}

	s.metrics.ChatAnswered(observability.OutcomeSuccess)
	return Answer{Text: text, Suggestions: FollowUps()}, nil
}

// generate returns the trimmed reply, or "" when the generator is missing,
// fails, times out or answers with whitespace.
func (s *Service) generate(ctx context.Context, prompt string) string {
	policy := fallback.Policy{Source: Source, Timeout: s.timeout, Logger: s.logger, Metrics: s.metrics}
	return fallback.Attempt(ctx, policy, func(ctx context.Context) (string, error) {
		if s.client == nil {
			return "", errNoGenerator
		}
		text, err := s.client.Generate(ctx, SystemRole, prompt)
		if err != nil {
			return "", err
		}
		if text = strings.TrimSpace(text); text == "" {
			return "", errEmptyReply
		}
		return text, nil
	}, "")
}

// Prompt appends the user's location to message when one is given.
func Prompt(message string, loc *Location) string {
	if loc == nil {
		return message
	}
	return message + "\nUser's location: " +
		strconv.FormatFloat(loc.Latitude, 'f', -1, 64) + ", " +
		strconv.FormatFloat(loc.Longitude, 'f', -1, 64)
}

func validateMessage(message string, loc *Location) []models.FieldError {
	var errs []models.FieldError
	if message == "" {
		errs = append(errs, models.FieldError{Field: "message", Message: "is required", Code: "REQUIRED"})
	} else if utf8.RuneCountInString(message) > MaxMessageLength {
		errs = append(errs, models.FieldError{Field: "message", Message: "must be at most 4000 characters", Code: "MAX"})
	}
	if loc != nil {
		if loc.Latitude < -90 || loc.Latitude > 90 {
			errs = append(errs, models.FieldError{Field: "location.latitude", Message: "must be between -90 and 90", Code: "OUT_OF_RANGE"})
		}
		if loc.Longitude < -180 || loc.Longitude > 180 {
			errs = append(errs, models.FieldError{Field: "location.longitude", Message: "must be between -180 and 180", Code: "OUT_OF_RANGE"})
		}
	}
	return errs
}

// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/database"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	// CORSAllowedOrigins lists browser origins; "*" allows any.
	CORSAllowedOrigins []string
	RequireTLS         bool

	// StoreDriver selects the civic complaint store: memory, postgres or mongo.
	StoreDriver   string
	StoreTimeout  time.Duration
	Database      database.Config
	MongoURI      string
	MongoDatabase string

	WAQIToken   string
	WAQIBaseURL string
	AQITimeout  time.Duration

	// OpenWeatherAPIKey is optional; without it weather always falls back.
	OpenWeatherAPIKey string
	WeatherTimeout    time.Duration

	TomTomAPIKey string
	NoiseTimeout time.Duration

	// NoiseSampleCapacity bounds the microphone samples held in memory.
	NoiseSampleCapacity int

	GeminiAPIKey      string
	GeminiModel       string
	SuggestionTimeout time.Duration
	ChatTimeout       time.Duration

	GeocodeEnabled bool
	GeocodeTimeout time.Duration

	PubSubProjectID    string
	PubSubTopic        string
	PubSubSubscription string

	OTELEnabled     bool
	OTLPEndpoint    string
	OTELSampleRatio float64

	WorkerPort            string
	WorkerRefreshInterval time.Duration
	WorkerConcurrency     int
	ShutdownTimeout       time.Duration
}

// Load reads an optional .env file, then environment variables, applying
// defaults where unset. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var errs []error
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(envOrDefault(key, def))
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("invalid %s: must be a positive duration", key))
		}
		return d
	}
	boolean := func(key string, def bool) bool {
		v := os.Getenv(key)
		if v == "" {
			return def
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return b
	}

	integer := func(key string, def, min int) int {
		v := os.Getenv(key)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < min {
			errs = append(errs, fmt.Errorf("invalid %s: must be an integer >= %d", key, min))
		}
		return n
	}
	ratio := func(key string, def float64) float64 {
		v := os.Getenv(key)
		if v == "" {
			return def
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			errs = append(errs, fmt.Errorf("invalid %s: must be between 0 and 1", key))
		}
		return f
	}

	cfg := &Config{
		AppPort:  envOrDefault("APP_PORT", "8080"),
		AppEnv:   envOrDefault("APP_ENV", "development"),
		LogLevel: strings.ToLower(envOrDefault("LOG_LEVEL", "info")),

		CORSAllowedOrigins: splitList(envOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		RequireTLS:         boolean("REQUIRE_TLS", false),

		StoreDriver:   strings.ToLower(envOrDefault("STORE_DRIVER", StoreMemory)),
		StoreTimeout:  duration("STORE_TIMEOUT", "5s"),
		Database:      database.ConfigFromEnv(),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: envOrDefault("MONGO_DATABASE", "ecosphere"),

		WAQIToken:   envOrDefault("WAQI_API_TOKEN", "demo"),
		WAQIBaseURL: os.Getenv("WAQI_BASE_URL"),
		AQITimeout:  duration("AQI_TIMEOUT", "10s"),

		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		WeatherTimeout:    duration("WEATHER_TIMEOUT", "10s"),

		TomTomAPIKey: os.Getenv("TOMTOM_API_KEY"),
		NoiseTimeout: duration("NOISE_TIMEOUT", "5s"),

		NoiseSampleCapacity: integer("NOISE_SAMPLE_CAPACITY", 10000, 1000),

		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       os.Getenv("GEMINI_MODEL"),
		SuggestionTimeout: duration("SUGGESTION_TIMEOUT", "15s"),
		ChatTimeout:       duration("CHAT_TIMEOUT", "30s"),

		GeocodeEnabled: boolean("GEOCODE_ENABLED", true),
		GeocodeTimeout: duration("GEOCODE_TIMEOUT", "5s"),

		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:        envOrDefault("PUBSUB_TOPIC", "ecosphere-events"),
		PubSubSubscription: envOrDefault("PUBSUB_SUBSCRIPTION", "ecosphere-worker"),

		OTELEnabled:     boolean("OTEL_ENABLED", false),
		OTLPEndpoint:    envOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELSampleRatio: ratio("OTEL_SAMPLE_RATIO", 1),

		WorkerPort:            envOrDefault("WORKER_PORT", "8081"),
		WorkerRefreshInterval: duration("WORKER_REFRESH_INTERVAL", "30m"),
		WorkerConcurrency:     integer("WORKER_CONCURRENCY", 4, 1),
		ShutdownTimeout:       duration("SHUTDOWN_TIMEOUT", "30s"),
	}

	switch cfg.StoreDriver {
	case StoreMemory, StorePostgres:
	case StoreMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required when STORE_DRIVER is mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid STORE_DRIVER %q: must be memory, postgres or mongo", cfg.StoreDriver))
	}

	if _, err := zerolog.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q", cfg.LogLevel))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Level returns the configured zerolog level.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// PubSubEnabled reports whether a Pub/Sub project is configured.
func (c *Config) PubSubEnabled() bool {
	return c.PubSubProjectID != ""
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package app_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosphere/ecosphere/internal/app"
	"github.com/ecosphere/ecosphere/internal/civic"
	"github.com/ecosphere/ecosphere/internal/config"
	"github.com/ecosphere/ecosphere/internal/report"
	"github.com/ecosphere/ecosphere/internal/risk"
)

func minimalConfig() *config.Config {
	return &config.Config{
		StoreDriver:  config.StoreMemory,
		StoreTimeout: time.Second,
		WAQIToken:    "demo",
		// An unroutable base URL keeps the test offline; the fetcher falls back.
		WAQIBaseURL:       "http://127.0.0.1:1",
		AQITimeout:        time.Second,
		WeatherTimeout:    time.Second,
		NoiseTimeout:      time.Second,
		SuggestionTimeout: time.Second,
		GeocodeTimeout:    time.Second,
	}
}

func TestNewProviders_OnlyConfiguredUpstreamsRegistered(t *testing.T) {
	p := app.NewProviders(minimalConfig(), zerolog.New(io.Discard), nil)

	snapshot := p.Registry.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "waqi", snapshot[0].Name)
	assert.Nil(t, p.Text)
	assert.Nil(t, p.Geocoder)
}

func TestNewProviders_AllUpstreams(t *testing.T) {
	cfg := minimalConfig()
	cfg.OpenWeatherAPIKey = "owm"
	cfg.TomTomAPIKey = "tt"
	cfg.GeminiAPIKey = "gm"
	cfg.GeocodeEnabled = true

	p := app.NewProviders(cfg, zerolog.New(io.Discard), nil)

	var names []string
	for _, h := range p.Registry.Snapshot() {
		names = append(names, h.Name)
	}
	assert.Equal(t, []string{"gemini", "nominatim", "openweathermap", "tomtom", "waqi"}, names)
	assert.NotNil(t, p.Text)
	assert.NotNil(t, p.Geocoder)
}

func TestOpenStore_Memory(t *testing.T) {
	repo, closeStore, err := app.OpenStore(context.Background(), minimalConfig(), zerolog.New(io.Discard))
	require.NoError(t, err)
	defer closeStore()

	assert.IsType(t, &civic.InMemoryRepository{}, repo)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := minimalConfig()
	cfg.StoreDriver = "sqlite"

	_, _, err := app.OpenStore(context.Background(), cfg, zerolog.New(io.Discard))
	assert.ErrorContains(t, err, `unknown store driver "sqlite"`)
}

func TestNewReportService_FallsBackWhenUpstreamUnreachable(t *testing.T) {
	cfg := minimalConfig()
	p := app.NewProviders(cfg, zerolog.New(io.Discard), nil)
	svc := app.NewReportService(cfg, p, civic.NewInMemoryRepository(), zerolog.New(io.Discard), nil)

	r, err := svc.BuildReport(context.Background(), report.Location{Latitude: 19.0760, Longitude: 72.8777})

	require.NoError(t, err)
	assert.Equal(t, risk.LevelHigh, r.WaterLoggingRisk)
	assert.NotEmpty(t, r.Suggestions)
	assert.Empty(t, r.Complaints)
}

// Package main provides the entrypoint for the EcoSphere API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/api"
	"github.com/ecosphere/ecosphere/internal/api/handler"
	"github.com/ecosphere/ecosphere/internal/api/middleware"
	"github.com/ecosphere/ecosphere/internal/app"
	"github.com/ecosphere/ecosphere/internal/chat"
	"github.com/ecosphere/ecosphere/internal/civic"
	"github.com/ecosphere/ecosphere/internal/config"
	"github.com/ecosphere/ecosphere/internal/events"
	"github.com/ecosphere/ecosphere/internal/noise"
	"github.com/ecosphere/ecosphere/internal/observability"
	"github.com/ecosphere/ecosphere/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "ecosphere-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log = log.Level(cfg.Level())

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.AppEnv).
		Str("store", cfg.StoreDriver).
		Msg("starting EcoSphere API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.AppEnv,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTELEnabled,
		SampleRatio:    cfg.OTELSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTELEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Float64("sample_ratio", cfg.OTELSampleRatio).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewHTTPMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize HTTP metrics")
	}
	metrics := observability.NewMetrics()

	store, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open complaint store")
	}
	defer closeStore()

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.PubSubEnabled() {
		pub, err := events.NewPubSubPublisher(ctx, events.PubSubConfig{
			ProjectID: cfg.PubSubProjectID,
			Topic:     cfg.PubSubTopic,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub publisher")
		}
		defer func() {
			if closeErr := pub.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("failed to close pubsub publisher")
			}
		}()
		publisher = pub
		log.Info().Str("topic", cfg.PubSubTopic).Msg("complaint events publish to pubsub")
	}

	providers := app.NewProviders(cfg, log, metrics)

	complaints := civic.NewService(civic.ServiceConfig{
		Repository:     store,
		Geocoder:       providers.Geocoder,
		GeocodeTimeout: cfg.GeocodeTimeout,
		Publisher:      publisher,
		Logger:         log,
		Metrics:        metrics,
	})

	reports := app.NewReportService(cfg, providers, store, log, metrics)

	assistant := chat.NewService(chat.ServiceConfig{
		Client:  providers.Text,
		Timeout: cfg.ChatTimeout,
		Logger:  log,
		Metrics: metrics,
	})

	noiseMonitor := noise.NewMonitor(noise.MonitorConfig{
		Store:   noise.NewInMemorySampleStore(cfg.NoiseSampleCapacity),
		Client:  providers.Text,
		Timeout: cfg.ChatTimeout,
		Logger:  log,
		Metrics: metrics,
	})

	router := api.NewRouter(api.RouterConfig{
		Logger:         log,
		ServiceName:    serviceName,
		HTTPMetrics:    httpMetrics,
		MetricsHandler: promhttp.Handler(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequireTLS:     cfg.RequireTLS,
		Reports:        reports,
		Complaints:     complaints,
		Assistant:      assistant,
		Addresses:      providers.Addresses,
		Noise:          noiseMonitor,
		Ops: handler.OpsConfig{
			Version:   Version,
			BuildTime: BuildTime,
			StoreName: cfg.StoreDriver + "-store",
			Store:     complaints,
			Upstreams: providers.Registry,
		},
	})

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}

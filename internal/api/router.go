// Package api provides the HTTP API for EcoSphere.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/api/handler"
	"github.com/ecosphere/ecosphere/internal/api/middleware"
	"github.com/ecosphere/ecosphere/internal/api/response"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger      zerolog.Logger
	ServiceName string

	// HTTPMetrics is optional OpenTelemetry request instrumentation.
	HTTPMetrics *middleware.HTTPMetrics

	// MetricsHandler, when set, is served on GET /metrics.
	MetricsHandler http.Handler

	AllowedOrigins []string
	RequireTLS     bool

	Reports    handler.ReportBuilder
	Complaints handler.ComplaintService
	Assistant  handler.Assistant
	Addresses  handler.AddressResolver
	Ops        handler.OpsConfig

	// Noise, when set, serves the microphone sample routes under /api/noise.
	Noise handler.NoiseMonitor
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "ecosphere-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger, "/api/ops/health", "/api/ops/ready", "/metrics"))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route matches "+r.URL.Path)
	})
	r.MethodNotAllowed(response.MethodNotAllowed)

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	opsHandler := handler.NewOpsHandler(cfg.Ops)
	reportHandler := handler.NewReportHandler(cfg.Reports, cfg.Logger)
	civicHandler := handler.NewCivicHandler(cfg.Complaints, cfg.Logger)
	chatHandler := handler.NewChatHandler(cfg.Assistant)
	geocodeHandler := handler.NewGeocodeHandler(cfg.Addresses)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireJSON)

		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		r.Post("/environmental-report", reportHandler.CreateReport)

		r.Route("/civic-reports", func(r chi.Router) {
			r.Get("/", civicHandler.ListReports)
			r.Post("/", civicHandler.CreateReport)
		})

		r.Post("/chat", chatHandler.Chat)
		r.Get("/geocode/reverse", geocodeHandler.ReverseGeocode)

		if cfg.Noise != nil {
			noiseHandler := handler.NewNoiseHandler(cfg.Noise, cfg.Logger)
			r.Route("/noise", func(r chi.Router) {
				r.Post("/", noiseHandler.RecordSample)
				r.Get("/stats", noiseHandler.Stats)
				r.Get("/ai", noiseHandler.Advice)
				r.Get("/trends", noiseHandler.Trends)
				r.Get("/current", noiseHandler.Current)
			})
		}
	})

	return r
}

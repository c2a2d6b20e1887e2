package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosphere/ecosphere/internal/api"
	"github.com/ecosphere/ecosphere/internal/api/handler"
	"github.com/ecosphere/ecosphere/internal/api/models"
	"github.com/ecosphere/ecosphere/internal/chat"
	"github.com/ecosphere/ecosphere/internal/civic"
	"github.com/ecosphere/ecosphere/internal/geocode"
	"github.com/ecosphere/ecosphere/internal/noise"
	"github.com/ecosphere/ecosphere/internal/provider/resilience"
	"github.com/ecosphere/ecosphere/internal/report"
	"github.com/ecosphere/ecosphere/internal/suggestion"
)

var testNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	router http.Handler
	repo   *civic.InMemoryRepository
	clock  *clockwork.FakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	clock := clockwork.NewFakeClockAt(testNow)
	repo := civic.NewInMemoryRepository()

	complaints := civic.NewService(civic.ServiceConfig{Repository: repo, Clock: clock, Logger: logger})
	reports := report.NewService(report.ServiceConfig{Complaints: repo, Clock: clock, Logger: logger})
	assistant := chat.NewService(chat.ServiceConfig{Logger: logger})
	addresses := geocode.NewResolver(geocode.ResolverConfig{Logger: logger})
	monitor := noise.NewMonitor(noise.MonitorConfig{Logger: logger})

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AllowedOrigins: []string{"*"},
		Reports:        reports,
		Complaints:     complaints,
		Assistant:      assistant,
		Addresses:      addresses,
		Noise:          monitor,
		Ops: handler.OpsConfig{
			Version:   "test",
			BuildTime: "2025-01-01T00:00:00Z",
			StoreName: "memory",
			Store:     repo,
			Upstreams: resilience.NewRegistry(),
			Clock:     clock,
		},
	})

	return &testEnv{router: router, repo: repo, clock: clock}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_HealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/ops/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	health := decode[models.Health](t, rec)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Version)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/ops/ready", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.HealthStatusOK, decode[models.Health](t, rec).Status)
}

func TestRouter_SystemStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/ops/status", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.SystemStatus](t, rec)
	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "memory", status.Subsystems[0].Name)
	assert.Empty(t, status.Upstreams)
}

func TestRouter_EnvironmentalReport_AllFallbacks(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/environmental-report", map[string]interface{}{
		"latitude":  28.6139,
		"longitude": 77.2090,
		"address":   "Connaught Place, New Delhi",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	rep := decode[models.EnvironmentalReport](t, rec)
	assert.Equal(t, 28.6139, rep.Location.Latitude)
	require.NotNil(t, rep.Location.Address)
	assert.Equal(t, "Connaught Place, New Delhi", *rep.Location.Address)
	assert.Equal(t, 45, rep.AQIData.AQI)
	assert.Equal(t, "Good", rep.AQIData.Status)
	assert.Len(t, rep.AQIData.Forecast, 3)
	assert.Equal(t, 24.5, rep.WeatherData.Temperature)
	assert.Equal(t, 45.0, rep.NoiseLevel)
	assert.Equal(t, "medium", rep.WaterLoggingRisk)
	assert.NotNil(t, rep.CivicComplaints)
	assert.Empty(t, rep.CivicComplaints)
	assert.Equal(t, suggestion.Fallback(), rep.AISuggestions)
	assert.Equal(t, models.HealthScore{Score: 86, AirScore: 89, NoiseScore: 90, WeatherScore: 77}, rep.HealthScore)
	assert.Equal(t, testNow, rep.Timestamp.Time())
}

func TestRouter_EnvironmentalReport_WireFormat(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/environmental-report", `{"latitude": 19.076, "longitude": 72.8777}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	for _, key := range []string{
		"location", "aqi_data", "weather_data", "noise_level", "water_logging_risk",
		"civic_complaints", "ai_suggestions", "health_score", "timestamp",
	} {
		assert.Contains(t, raw, key)
	}
	assert.JSONEq(t, `"high"`, string(raw["water_logging_risk"]))
	assert.JSONEq(t, `"2025-06-01T09:30:00Z"`, string(raw["timestamp"]))
}

func TestRouter_EnvironmentalReport_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing latitude", `{"longitude": 77.2}`, "latitude"},
		{"missing longitude", `{"latitude": 28.6}`, "longitude"},
		{"latitude out of range", `{"latitude": 91, "longitude": 77.2}`, "latitude"},
		{"longitude out of range", `{"latitude": 28.6, "longitude": -181}`, "longitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(t, http.MethodPost, "/api/environmental-report", tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			problem := decode[models.Problem](t, rec)
			assert.Equal(t, models.ProblemTypeValidation, problem.Type)
			require.NotEmpty(t, problem.Errors)
			assert.Equal(t, tt.field, problem.Errors[0].Field)
		})
	}
}

func TestRouter_EnvironmentalReport_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/environmental-report", `{"latitude":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_EnvironmentalReport_IncludesNearbyComplaints(t *testing.T) {
	env := newTestEnv(t)

	created := env.do(t, http.MethodPost, "/api/civic-reports", map[string]interface{}{
		"location":    map[string]interface{}{"latitude": 28.6140, "longitude": 77.2091},
		"report_type": "water_log",
		"description": "Knee-deep water near the metro exit",
		"severity":    "high",
	})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())

	rec := env.do(t, http.MethodPost, "/api/environmental-report", `{"latitude": 28.6139, "longitude": 77.2090}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rep := decode[models.EnvironmentalReport](t, rec)
	require.Len(t, rep.CivicComplaints, 1)
	assert.Equal(t, "water_log", rep.CivicComplaints[0].ReportType)
	assert.Equal(t, "active", rep.CivicComplaints[0].Status)
}

func TestRouter_CivicReports_CreateAndList(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/civic-reports", map[string]interface{}{
		"location":    map[string]interface{}{"latitude": 19.0760, "longitude": 72.8777, "address": "Bandra"},
		"report_type": "tree_fall",
		"description": "  Fallen tree blocking the lane  ",
		"severity":    "medium",
		"reporter_id": "citizen-7",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[models.CivicReport](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "tree_fall", created.ReportType)
	assert.Equal(t, "Fallen tree blocking the lane", created.Description)
	assert.Equal(t, "active", created.Status)
	require.NotNil(t, created.ReporterID)
	assert.Equal(t, "citizen-7", *created.ReporterID)
	assert.Equal(t, testNow, created.Timestamp.Time())

	rec = env.do(t, http.MethodGet, "/api/civic-reports?latitude=19.08&longitude=72.88&radius=0.1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]models.CivicReport](t, rec)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	rec = env.do(t, http.MethodGet, "/api/civic-reports?latitude=28.61&longitude=77.20&radius=0.1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRouter_CivicReports_ListFilters(t *testing.T) {
	env := newTestEnv(t)

	for _, category := range []string{"water_log", "road_block", "water_log"} {
		env.clock.Advance(time.Minute)
		rec := env.do(t, http.MethodPost, "/api/civic-reports", map[string]interface{}{
			"location":    map[string]interface{}{"latitude": 12.9716, "longitude": 77.5946},
			"report_type": category,
			"description": "reported " + category,
			"severity":    "low",
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/api/civic-reports?report_type=water_log", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.CivicReport](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/api/civic-reports?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]models.CivicReport](t, rec)
	require.Len(t, listed, 1)
	assert.Equal(t, "water_log", listed[0].ReportType, "newest first")
}

func TestRouter_CivicReports_BadQuery(t *testing.T) {
	env := newTestEnv(t)

	for _, target := range []string{
		"/api/civic-reports?latitude=north&longitude=1",
		"/api/civic-reports?radius=wide",
		"/api/civic-reports?limit=ten",
		"/api/civic-reports?limit=500",
		"/api/civic-reports?report_type=earthquake",
	} {
		rec := env.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestRouter_CivicReports_CreateValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/civic-reports", map[string]interface{}{
		"location":    map[string]interface{}{"latitude": 19.0, "longitude": 72.0},
		"report_type": "earthquake",
		"description": "shaking",
		"severity":    "low",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decode[models.Problem](t, rec)
	require.Len(t, problem.Errors, 1)
	assert.Equal(t, "report_type", problem.Errors[0].Field)
	assert.Contains(t, problem.Errors[0].Message, "water_log")

	rec = env.do(t, http.MethodPost, "/api/civic-reports", `{"report_type": "water_log"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[models.Problem](t, rec).Errors)
}

type unavailableStore struct{ civic.InMemoryRepository }

func (*unavailableStore) Create(context.Context, *civic.Complaint) error {
	return civic.ErrStoreUnavailable
}

func TestRouter_CivicReports_StoreUnavailable(t *testing.T) {
	logger := zerolog.New(io.Discard)
	store := &unavailableStore{}
	router := api.NewRouter(api.RouterConfig{
		Logger:     logger,
		Complaints: civic.NewService(civic.ServiceConfig{Repository: store, Logger: logger}),
	})

	body := `{"location":{"latitude":1,"longitude":2},"report_type":"visibility","description":"smog","severity":"high"}`
	req := httptest.NewRequest(http.MethodPost, "/api/civic-reports", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, models.ProblemTypeUnavailable, decode[models.Problem](t, rec).Type)
}

func TestRouter_Chat_ApologyWithoutGenerator(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/chat", map[string]interface{}{
		"message":  "Is it safe to jog today?",
		"location": map[string]interface{}{"latitude": 28.6, "longitude": 77.2},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[models.ChatResponse](t, rec)
	assert.Equal(t, chat.Apology, resp.Response)
	assert.NotNil(t, resp.Suggestions)
	assert.Empty(t, resp.Suggestions)
}

func TestRouter_Chat_EmptyMessage(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{`{"message": ""}`, `{"message": "   "}`} {
		rec := env.do(t, http.MethodPost, "/api/chat", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestRouter_ReverseGeocode(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/geocode/reverse?lat=28.61394&lon=77.20902", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "28.6139, 77.2090", decode[models.ReverseGeocodeResponse](t, rec).Address)

	rec = env.do(t, http.MethodGet, "/api/geocode/reverse?lat=95&lon=x", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decode[models.Problem](t, rec).Errors, 2)
}

func TestRouter_Noise_RecordAndStats(t *testing.T) {
	env := newTestEnv(t)

	samples := []interface{}{
		map[string]interface{}{"ts": "2025-06-01T09:00:00Z", "dbspl": 50, "location": "park"},
		map[string]interface{}{"ts": testNow.UnixMilli(), "dbspl": 60, "location": "park"},
		map[string]interface{}{"ts": "2025-06-01T09:10:00Z", "dbspl": 80},
	}
	for i, body := range samples {
		rec := env.do(t, http.MethodPost, "/api/noise", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, i+1, decode[models.NoiseSampleAccepted](t, rec).TotalSamples)
	}

	rec := env.do(t, http.MethodGet, "/api/noise/stats?location=park", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[models.NoiseStats](t, rec)
	assert.Equal(t, "park", stats.Location)
	assert.Equal(t, 2, stats.Samples)
	assert.InDelta(t, 60, stats.Lmax, 0)
	assert.InDelta(t, 50, stats.Lmin, 0)
	assert.InDelta(t, 57.4036, stats.Leq, 0.001)

	rec = env.do(t, http.MethodGet, "/api/noise/stats?location=unknown", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[models.NoiseStats](t, rec).Samples)

	rec = env.do(t, http.MethodGet, "/api/noise/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "all", decode[models.NoiseStats](t, rec).Location)
}

func TestRouter_Noise_AdviceWithoutGenerator(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/noise", `{"ts":"2025-06-01T09:20:00Z","dbspl":72,"location":"road"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, path := range []string{"/api/noise/ai?location=road", "/api/noise/trends?location=road"} {
		rec = env.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		got := decode[models.NoiseAssessment](t, rec)
		assert.Equal(t, "road", got.Location)
		assert.Equal(t, noise.AdviceFor(72), got.Advice)
	}

	rec = env.do(t, http.MethodGet, "/api/noise/current?location=road", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode[models.CurrentNoise](t, rec)
	assert.InDelta(t, 72, current.CurrentNoise, 0)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 20, 0, 0, time.UTC), current.Timestamp.Time())
}

func TestRouter_Noise_Errors(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`{"dbspl": 50}`,
		`{"ts": "2025-06-01T09:00:00Z"}`,
		`{"ts": "2025-06-01T09:00:00Z", "dbspl": "loud"}`,
		`{"ts": "2025-06-01T09:00:00Z", "dbspl": 250}`,
		`{"ts": "yesterday", "dbspl": 50}`,
	} {
		rec := env.do(t, http.MethodPost, "/api/noise", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	for _, path := range []string{"/api/noise/stats", "/api/noise/ai", "/api/noise/current"} {
		rec := env.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, models.ProblemTypeNotFound, decode[models.Problem](t, rec).Type)
	}
}

func TestRouter_NotFoundAndMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/water-logging-zones", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, models.ProblemTypeNotFound, decode[models.Problem](t, rec).Type)

	rec = env.do(t, http.MethodDelete, "/api/civic-reports", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, models.ProblemTypeMethodNotAllowed, decode[models.Problem](t, rec).Type)
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString("message=hi"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := api.NewRouter(api.RouterConfig{
		Logger: zerolog.New(io.Discard),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; version=0.0.4")
			_, _ = w.Write([]byte("ecosphere_reports_built_total 0\n"))
		}),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ecosphere_reports_built_total")
}

package worker_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosphere/ecosphere/internal/observability"
	"github.com/ecosphere/ecosphere/internal/report"
	"github.com/ecosphere/ecosphere/internal/risk"
	"github.com/ecosphere/ecosphere/internal/worker"
)

// fakeBuilder returns canned readings keyed by address and records every call.
type fakeBuilder struct {
	mu     sync.Mutex
	calls  []report.Location
	aqi    map[string]int
	health map[string]int
	fail   map[string]bool
}

func newFakeBuilder() *fakeBuilder {
	return &fakeBuilder{
		aqi:    map[string]int{"Delhi": 180, "Connaught Place": 150, "Mumbai": 90},
		health: map[string]int{"Delhi": 40, "Connaught Place": 50, "Mumbai": 60},
		fail:   map[string]bool{},
	}
}

func (b *fakeBuilder) BuildReport(ctx context.Context, loc report.Location) (*report.Report, error) {
	b.mu.Lock()
	b.calls = append(b.calls, loc)
	fail := b.fail[loc.Address]
	b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fail {
		return nil, report.ErrReportGenerationFailed
	}

	r := &report.Report{
		Location:         loc,
		WaterLoggingRisk: risk.EstimateWaterLoggingRisk(loc.Latitude, loc.Longitude),
		HealthScore:      risk.HealthScore{Score: b.health[loc.Address]},
	}
	r.AirQuality.AQI = b.aqi[loc.Address]
	return r, nil
}

func (b *fakeBuilder) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func testConfig() worker.RefreshConfig {
	return worker.RefreshConfig{
		Hotspots: []worker.Hotspot{
			{
				Name:     "Mumbai",
				Priority: 2,
				Points:   []worker.Point{{Name: "Mumbai", Lat: 19.0760, Lon: 72.8777}},
			},
			{
				Name:     "Delhi",
				Priority: 1,
				Points: []worker.Point{
					{Name: "Delhi", Lat: 28.6139, Lon: 77.2090},
					{Name: "Connaught Place", Lat: 28.6315, Lon: 77.2167},
				},
			},
		},
		Concurrency: 2,
		Timeout:     time.Second,
	}
}

func newJob(b worker.ReportBuilder, metrics *observability.Metrics) *worker.RefreshJob {
	return worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:  testConfig(),
		Reports: b,
		Clock:   clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)),
		Logger:  zerolog.New(io.Discard),
		Metrics: metrics,
	})
}

func TestDefaultRefreshConfig(t *testing.T) {
	cfg := worker.DefaultRefreshConfig()

	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.NotEmpty(t, cfg.Hotspots)
}

func TestDefaultHotspots(t *testing.T) {
	hotspots := worker.DefaultHotspots()

	assert.GreaterOrEqual(t, len(hotspots), 5)

	byName := map[string]worker.Hotspot{}
	for _, h := range hotspots {
		byName[h.Name] = h
	}
	for _, name := range []string{"Delhi", "Mumbai"} {
		h, ok := byName[name]
		require.True(t, ok, "%s should be a hotspot", name)
		assert.Equal(t, 1, h.Priority)
		assert.NotEmpty(t, h.Points)
	}
}

func TestRefreshConfig_AllPointsOrderedByPriority(t *testing.T) {
	cfg := testConfig()

	points := cfg.AllPoints()

	require.Len(t, points, 3)
	assert.Equal(t, "Delhi", points[0].Name)
	assert.Equal(t, "Connaught Place", points[1].Name)
	assert.Equal(t, "Mumbai", points[2].Name)
	assert.Equal(t, "Mumbai", cfg.Hotspots[0].Name, "AllPoints must not reorder the config")
}

func TestRefreshConfig_TotalPoints(t *testing.T) {
	assert.Equal(t, 3, testConfig().TotalPoints())
	assert.Equal(t, 0, worker.RefreshConfig{}.TotalPoints())
}

func TestNewRefreshJob_EmptyConfigUsesDefaults(t *testing.T) {
	b := newFakeBuilder()
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Reports: b,
		Logger:  zerolog.New(io.Discard),
	})

	result := job.Run(context.Background())

	assert.Equal(t, worker.DefaultRefreshConfig().TotalPoints(), result.TotalPoints)
	assert.Equal(t, result.TotalPoints, b.callCount())
}

func TestRefreshJob_RunSummarizesReports(t *testing.T) {
	b := newFakeBuilder()
	metrics := observability.NewMetricsForTesting()
	job := newJob(b, metrics)

	result := job.Run(context.Background())

	assert.Equal(t, 3, result.TotalPoints)
	assert.Equal(t, 3, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 180, result.WorstAQI)
	assert.Equal(t, "Delhi", result.WorstPoint)
	assert.Equal(t, 1, result.HighRiskPoints)
	assert.InDelta(t, 50.0, result.AverageHealthScore, 0.001)
	assert.True(t, result.Healthy())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RefreshRuns.WithLabelValues(observability.OutcomeSuccess)), 0)
}

func TestRefreshJob_PassesPointAsLocation(t *testing.T) {
	b := newFakeBuilder()
	job := newJob(b, nil)

	job.Run(context.Background())

	require.Len(t, b.calls, 3)
	assert.Contains(t, b.calls, report.Location{Latitude: 19.0760, Longitude: 72.8777, Address: "Mumbai"})
}

func TestRefreshJob_RecordsFailures(t *testing.T) {
	b := newFakeBuilder()
	b.fail["Delhi"] = true
	b.fail["Connaught Place"] = true
	metrics := observability.NewMetricsForTesting()
	job := newJob(b, metrics)

	result := job.Run(context.Background())

	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Errors, 2)
	for _, e := range result.Errors {
		assert.Contains(t, e.Error, "failed to generate environmental report")
	}
	assert.Equal(t, 90, result.WorstAQI)
	assert.Equal(t, "Mumbai", result.WorstPoint)
	assert.False(t, result.Healthy())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RefreshRuns.WithLabelValues(observability.OutcomeFailure)), 0)
}

func TestRefreshJob_ContextCancellation(t *testing.T) {
	b := newFakeBuilder()
	job := newJob(b, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx)

	assert.Equal(t, 3, result.TotalPoints)
	assert.Equal(t, 0, result.Successful)
	assert.Equal(t, 3, result.Failed)
	for _, e := range result.Errors {
		assert.Equal(t, context.Canceled.Error(), e.Error)
	}
}

func TestRefreshJob_Stats(t *testing.T) {
	b := newFakeBuilder()
	b.fail["Mumbai"] = true
	job := newJob(b, nil)

	assert.Equal(t, int64(0), job.Stats().TotalRuns)
	assert.NotContains(t, job.StatsSnapshot(), "last_run_at")

	job.Run(context.Background())
	job.Run(context.Background())

	stats := job.Stats()
	assert.Equal(t, int64(2), stats.TotalRuns)
	assert.Equal(t, int64(4), stats.SuccessfulReports)
	assert.Equal(t, int64(2), stats.FailedReports)
	assert.Equal(t, time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC), stats.LastRunAt)

	snapshot := job.StatsSnapshot()
	assert.Equal(t, int64(2), snapshot["total_runs"])
	assert.Equal(t, "2025-06-01T09:30:00Z", snapshot["last_run_at"])
	assert.Equal(t, "0s", snapshot["last_run_duration"])
}

func TestRefreshJob_Timeout(t *testing.T) {
	slow := builderFunc(func(ctx context.Context, _ report.Location) (*report.Report, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:  cfg,
		Reports: slow,
		Logger:  zerolog.New(io.Discard),
	})

	result := job.Run(context.Background())

	assert.Equal(t, 3, result.Failed)
	for _, e := range result.Errors {
		assert.Equal(t, context.DeadlineExceeded.Error(), e.Error)
	}
}

type builderFunc func(context.Context, report.Location) (*report.Report, error)

func (f builderFunc) BuildReport(ctx context.Context, loc report.Location) (*report.Report, error) {
	return f(ctx, loc)
}

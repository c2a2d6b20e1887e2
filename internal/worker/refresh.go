package worker

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/observability"
	"github.com/ecosphere/ecosphere/internal/report"
	"github.com/ecosphere/ecosphere/internal/risk"
)

// ReportBuilder assembles an environmental report for a location.
type ReportBuilder interface {
	BuildReport(ctx context.Context, loc report.Location) (*report.Report, error)
}

// RefreshJob rebuilds hotspot reports so provider breakers and fallbacks are
// exercised between user requests, and logs a summary of the city's state.
type RefreshJob struct {
	config  RefreshConfig
	reports ReportBuilder
	clock   clockwork.Clock
	logger  zerolog.Logger
	metrics *observability.Metrics

	stats *RefreshStats
}

// RefreshStats accumulates refresh job statistics across runs.
type RefreshStats struct {
	mu sync.RWMutex

	TotalRuns         int64
	SuccessfulReports int64
	FailedReports     int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config  RefreshConfig
	Reports ReportBuilder
	Clock   clockwork.Clock
	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Hotspots) == 0 {
		config.Hotspots = DefaultHotspots()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultRefreshConfig().Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultRefreshConfig().Timeout
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &RefreshJob{
		config:  config,
		reports: cfg.Reports,
		clock:   clock,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		stats:   &RefreshStats{},
	}
}

// RefreshResult contains the outcome of one refresh run.
type RefreshResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPoints int
	Successful  int
	Failed      int
	Errors      []RefreshError

	// WorstAQI and WorstPoint identify the most polluted successful point.
	WorstAQI   int
	WorstPoint string

	// HighRiskPoints counts points in a high water-logging band.
	HighRiskPoints int

	// AverageHealthScore is the mean health score over successful points.
	AverageHealthScore float64
}

// RefreshError records a failed report build.
type RefreshError struct {
	Point Point
	Error string
}

// Healthy reports whether at least half of the points produced a report.
func (r *RefreshResult) Healthy() bool {
	return r.Failed <= r.Successful
}

// Run builds a report for every configured point and records the outcome.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	j.logger.Info().
		Int("total_points", j.config.TotalPoints()).
		Int("concurrency", j.config.Concurrency).
		Msg("starting hotspot refresh")

	result := j.run(ctx, j.config.AllPoints(), j.config.Concurrency)
	j.updateStats(result)

	outcome := observability.OutcomeSuccess
	if !result.Healthy() {
		outcome = observability.OutcomeFailure
	}
	j.metrics.RefreshCompleted(outcome)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("worst_aqi", result.WorstAQI).
		Str("worst_point", result.WorstPoint).
		Int("high_risk_points", result.HighRiskPoints).
		Float64("average_health_score", result.AverageHealthScore).
		Msg("hotspot refresh completed")

	return result
}

type pointResult struct {
	point  Point
	report *report.Report
	err    error
}

func (j *RefreshJob) run(ctx context.Context, points []Point, concurrency int) *RefreshResult {
	start := j.clock.Now()
	result := &RefreshResult{
		StartTime:   start,
		TotalPoints: len(points),
	}

	pointsChan := make(chan Point, len(points))
	resultsChan := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, pointsChan, resultsChan)
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	healthTotal := 0
	for pr := range resultsChan {
		if pr.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{Point: pr.point, Error: pr.err.Error()})
			continue
		}

		result.Successful++
		r := pr.report
		healthTotal += r.HealthScore.Score
		if r.WaterLoggingRisk == risk.LevelHigh {
			result.HighRiskPoints++
		}
		if result.WorstPoint == "" || r.AirQuality.AQI > result.WorstAQI {
			result.WorstAQI = r.AirQuality.AQI
			result.WorstPoint = pr.point.Name
		}
	}

	if result.Successful > 0 {
		result.AverageHealthScore = float64(healthTotal) / float64(result.Successful)
	}

	result.EndTime = j.clock.Now()
	result.Duration = result.EndTime.Sub(start)
	return result
}

func (j *RefreshJob) refreshWorker(ctx context.Context, points <-chan Point, results chan<- pointResult) {
	for point := range points {
		if err := ctx.Err(); err != nil {
			results <- pointResult{point: point, err: err}
			continue
		}
		results <- j.refreshPoint(ctx, point)
	}
}

func (j *RefreshJob) refreshPoint(ctx context.Context, point Point) pointResult {
	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	r, err := j.reports.BuildReport(pointCtx, report.Location{
		Latitude:  point.Lat,
		Longitude: point.Lon,
		Address:   point.Name,
	})
	if err != nil {
		j.logger.Warn().
			Err(err).
			Str("point", point.Name).
			Msg("hotspot report failed")
		return pointResult{point: point, err: err}
	}

	j.logger.Debug().
		Str("point", point.Name).
		Int("aqi", r.AirQuality.AQI).
		Str("water_logging_risk", string(r.WaterLoggingRisk)).
		Int("health_score", r.HealthScore.Score).
		Msg("hotspot report built")

	return pointResult{point: point, report: r}
}

func (j *RefreshJob) updateStats(result *RefreshResult) {
	j.stats.mu.Lock()
	defer j.stats.mu.Unlock()

	j.stats.TotalRuns++
	j.stats.SuccessfulReports += int64(result.Successful)
	j.stats.FailedReports += int64(result.Failed)
	j.stats.LastRunAt = result.EndTime
	j.stats.LastRunDuration = result.Duration
	j.stats.TotalDuration += result.Duration
}

// Stats returns a copy of the accumulated statistics.
func (j *RefreshJob) Stats() RefreshStats {
	j.stats.mu.RLock()
	defer j.stats.mu.RUnlock()

	return RefreshStats{
		TotalRuns:         j.stats.TotalRuns,
		SuccessfulReports: j.stats.SuccessfulReports,
		FailedReports:     j.stats.FailedReports,
		LastRunAt:         j.stats.LastRunAt,
		LastRunDuration:   j.stats.LastRunDuration,
		TotalDuration:     j.stats.TotalDuration,
	}
}

// StatsSnapshot returns the statistics as a JSON-friendly map.
func (j *RefreshJob) StatsSnapshot() map[string]any {
	s := j.Stats()
	snapshot := map[string]any{
		"total_runs":         s.TotalRuns,
		"successful_reports": s.SuccessfulReports,
		"failed_reports":     s.FailedReports,
		"last_run_duration":  s.LastRunDuration.String(),
		"total_duration":     s.TotalDuration.String(),
	}
	if !s.LastRunAt.IsZero() {
		snapshot["last_run_at"] = s.LastRunAt.UTC().Format(time.RFC3339)
	}
	return snapshot
}

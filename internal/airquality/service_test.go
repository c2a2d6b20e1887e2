package airquality_test

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/ecosphere/ecosphere/internal/airquality"
)

type mockProvider struct {
	reading *airquality.Reading
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) CurrentReading(ctx context.Context, _, _ float64) (*airquality.Reading, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.reading, m.err
}

func newFetcher(p airquality.Provider) *airquality.Fetcher {
	cfg := airquality.FetcherConfig{
		Timeout: 50 * time.Millisecond,
		Logger:  zerolog.New(io.Discard),
	}
	if p != nil {
		cfg.Provider = p
	}
	return airquality.NewFetcher(cfg)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		aqi  int
		want airquality.Status
	}{
		{0, airquality.StatusGood},
		{50, airquality.StatusGood},
		{51, airquality.StatusModerate},
		{100, airquality.StatusModerate},
		{101, airquality.StatusUnhealthy},
		{400, airquality.StatusUnhealthy},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, airquality.StatusFor(tt.aqi), "aqi %d", tt.aqi)
	}
}

func TestFallback_IsInternallyConsistent(t *testing.T) {
	fb := airquality.Fallback()

	assert.Equal(t, 45, fb.AQI)
	assert.Equal(t, airquality.StatusGood, fb.Status)
	assert.Equal(t, fb, fb.Normalized())
	assert.Equal(t, []int{45, 52, 48}, []int{fb.Forecast[0].AQI, fb.Forecast[1].AQI, fb.Forecast[2].AQI})
}

func TestFallback_ReturnsIndependentCopies(t *testing.T) {
	a := airquality.Fallback()
	a.Forecast[0].AQI = 999

	assert.Equal(t, 45, airquality.Fallback().Forecast[0].AQI)
}

func TestFetcher_ReturnsLiveReading(t *testing.T) {
	live := airquality.NewReading(72, airquality.DefaultPollutants)
	p := &mockProvider{reading: &live}

	got := newFetcher(p).Fetch(context.Background(), 19.07, 72.87)

	assert.Equal(t, live, got)
	assert.Equal(t, airquality.StatusModerate, got.Status)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestFetcher_FallbackOnProviderError(t *testing.T) {
	p := &mockProvider{err: errors.New("unexpected status code: 503")}

	got := newFetcher(p).Fetch(context.Background(), 1, 1)

	assert.Equal(t, airquality.Fallback(), got)
}

func TestFetcher_FallbackOnTimeout(t *testing.T) {
	live := airquality.NewReading(10, airquality.DefaultPollutants)
	p := &mockProvider{reading: &live, delay: time.Second}

	start := time.Now()
	got := newFetcher(p).Fetch(context.Background(), 1, 1)

	assert.Equal(t, airquality.Fallback(), got)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestFetcher_FallbackOnInvalidReading(t *testing.T) {
	bad := airquality.NewReading(30, airquality.Pollutants{PM25: -1})
	p := &mockProvider{reading: &bad}

	got := newFetcher(p).Fetch(context.Background(), 1, 1)

	assert.Equal(t, airquality.Fallback(), got)
}

func TestReading_ValidateAQIRange(t *testing.T) {
	tests := []struct {
		aqi   int
		valid bool
	}{
		{0, true},
		{airquality.MaxAQI, true},
		{airquality.MaxAQI + 1, false},
		{1_000_000, false},
		{-1, false},
	}

	for _, tt := range tests {
		r := airquality.NewReading(0, airquality.DefaultPollutants)
		r.AQI = tt.aqi
		if tt.valid {
			assert.NoError(t, r.Validate(), "aqi %d", tt.aqi)
		} else {
			assert.ErrorIs(t, r.Validate(), airquality.ErrInvalidReading, "aqi %d", tt.aqi)
		}
	}
}

func TestFetcher_FallbackOnAbsurdAQI(t *testing.T) {
	bad := airquality.NewReading(1_000_000, airquality.DefaultPollutants)
	p := &mockProvider{reading: &bad}

	got := newFetcher(p).Fetch(context.Background(), 1, 1)

	assert.Equal(t, airquality.Fallback(), got)
}

func TestFetcher_NormalizesInconsistentStatus(t *testing.T) {
	r := airquality.NewReading(30, airquality.DefaultPollutants)
	r.Status = airquality.StatusUnhealthy
	p := &mockProvider{reading: &r}

	got := newFetcher(p).Fetch(context.Background(), 1, 1)

	assert.Equal(t, airquality.StatusGood, got.Status)
}

func TestFetcher_NoProvider(t *testing.T) {
	got := newFetcher(nil).Fetch(context.Background(), 1, 1)

	assert.Equal(t, airquality.Fallback(), got)
}

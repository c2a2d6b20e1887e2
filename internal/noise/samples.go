package noise

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// UnknownLocation tags samples submitted without a location.
const UnknownLocation = "unknown"

// StatsWindow is how many of the newest samples the statistics cover.
const StatsWindow = 1000

// MaxLevel is the loudest sound pressure level undistorted air can carry.
const MaxLevel = 194.0

var (
	// ErrNoSamples is returned when no sample matches a location.
	ErrNoSamples = errors.New("no noise samples")

	// ErrInvalidSample is returned for samples without a timestamp or with
	// a level outside 0 to MaxLevel dB.
	ErrInvalidSample = errors.New("invalid noise sample")
)

// Sample is one sound level reading from a microphone client.
type Sample struct {
	Timestamp time.Time
	Level     float64
	Location  string
}

// Stats summarizes a run of samples in dB SPL. L10 is exceeded 10% of the
// time and L90, the background level, 90% of the time.
type Stats struct {
	Samples int
	Leq     float64
	Lmax    float64
	Lmin    float64
	L10     float64
	L90     float64
}

// Leq is the energy-average level of levels. It is 0 for no levels.
func Leq(levels []float64) float64 {
	if len(levels) == 0 {
		return 0
	}
	var energy float64
	for _, l := range levels {
		energy += math.Pow(10, l/10)
	}
	return 10 * math.Log10(energy/float64(len(levels)))
}

// Percentile returns the level exceeded by fraction p of levels: levels are
// ranked loudest first and the entry at floor(p*n), capped at the quietest,
// is taken.
func Percentile(levels []float64, p float64) float64 {
	if len(levels) == 0 {
		return 0
	}
	ranked := append([]float64(nil), levels...)
	sort.Sort(sort.Reverse(sort.Float64Slice(ranked)))

	idx := int(math.Floor(p * float64(len(ranked))))
	switch {
	case idx < 0:
		idx = 0
	case idx > len(ranked)-1:
		idx = len(ranked) - 1
	}
	return ranked[idx]
}

// Summarize computes the statistics of samples.
func Summarize(samples []Sample) (Stats, error) {
	if len(samples) == 0 {
		return Stats{}, ErrNoSamples
	}
	levels := make([]float64, len(samples))
	st := Stats{Samples: len(samples), Lmax: math.Inf(-1), Lmin: math.Inf(1)}
	for i, s := range samples {
		levels[i] = s.Level
		st.Lmax = math.Max(st.Lmax, s.Level)
		st.Lmin = math.Min(st.Lmin, s.Level)
	}
	st.Leq = Leq(levels)
	st.L10 = Percentile(levels, 0.1)
	st.L90 = Percentile(levels, 0.9)
	return st, nil
}

// SampleStore keeps submitted samples.
type SampleStore interface {
	// Add stores s and returns how many samples are held.
	Add(ctx context.Context, s Sample) (int, error)

	// Recent returns up to limit samples newest first. An empty location
	// matches every sample.
	Recent(ctx context.Context, location string, limit int) ([]Sample, error)
}

// InMemorySampleStore holds samples in process memory, dropping the oldest
// insertions past its capacity.
type InMemorySampleStore struct {
	mu       sync.RWMutex
	samples  []Sample
	capacity int
}

// NewInMemorySampleStore creates a store holding at most capacity samples.
// A capacity below StatsWindow is raised to it.
func NewInMemorySampleStore(capacity int) *InMemorySampleStore {
	if capacity < StatsWindow {
		capacity = StatsWindow
	}
	return &InMemorySampleStore{capacity: capacity}
}

func (s *InMemorySampleStore) Add(_ context.Context, sample Sample) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.samples = append(s.samples, sample)
	if over := len(s.samples) - s.capacity; over > 0 {
		s.samples = append(s.samples[:0:0], s.samples[over:]...)
	}
	return len(s.samples), nil
}

func (s *InMemorySampleStore) Recent(_ context.Context, location string, limit int) ([]Sample, error) {
	s.mu.RLock()
	out := make([]Sample, 0)
	for _, sample := range s.samples {
		if location == "" || strings.EqualFold(sample.Location, location) {
			out = append(out, sample)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

package noise_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosphere/ecosphere/internal/noise"
)

type stubProvider struct {
	flow *noise.Flow
	err  error
}

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) FlowSegment(context.Context, float64, float64) (*noise.Flow, error) {
	return s.flow, s.err
}

func TestFlow_Congestion(t *testing.T) {
	tests := []struct {
		name string
		flow noise.Flow
		want float64
	}{
		{"free flowing", noise.Flow{CurrentSpeed: 60, FreeFlowSpeed: 60}, 0},
		{"half speed", noise.Flow{CurrentSpeed: 30, FreeFlowSpeed: 60}, 50},
		{"standstill", noise.Flow{CurrentSpeed: 0, FreeFlowSpeed: 40}, 100},
		{"faster than free flow", noise.Flow{CurrentSpeed: 70, FreeFlowSpeed: 60}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flow.Congestion()
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestFlow_CongestionRejectsZeroFreeFlow(t *testing.T) {
	_, err := noise.Flow{CurrentSpeed: 10}.Congestion()
	assert.ErrorIs(t, err, noise.ErrInvalidFlow)
}

func TestDecibelsFor(t *testing.T) {
	assert.InDelta(t, 50.0, noise.DecibelsFor(0), 0)
	assert.InDelta(t, 67.5, noise.DecibelsFor(50), 0)
	assert.InDelta(t, 85.0, noise.DecibelsFor(100), 0)
}

func TestFetcher(t *testing.T) {
	logger := zerolog.New(io.Discard)

	tests := []struct {
		name     string
		provider noise.Provider
		want     float64
	}{
		{"no provider", nil, noise.DefaultLevel},
		{"live flow", stubProvider{flow: &noise.Flow{CurrentSpeed: 20, FreeFlowSpeed: 40}}, 67.5},
		{"provider error", stubProvider{err: errors.New("unexpected status code: 403")}, noise.DefaultLevel},
		{"invalid flow", stubProvider{flow: &noise.Flow{}}, noise.DefaultLevel},
		{"nil flow", stubProvider{}, noise.DefaultLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := noise.NewFetcher(noise.FetcherConfig{Provider: tt.provider, Logger: logger})
			assert.InDelta(t, tt.want, f.Fetch(context.Background(), 28.61, 77.2), 0.0001)
		})
	}
}

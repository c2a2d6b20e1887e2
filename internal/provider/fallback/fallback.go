// Package fallback runs a single upstream attempt and substitutes a fixed
// default value when the attempt fails for any reason.
package fallback

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/observability"
)

// Policy describes how one upstream source is attempted.
type Policy struct {
	// Source labels logs and metrics, e.g. "air_quality".
	Source string

	// Timeout bounds the attempt. Zero relies on the caller's context only.
	Timeout time.Duration

	Logger  zerolog.Logger
	Metrics *observability.Metrics
}

// Attempt calls fn once. If fn returns an error, or the context expires first,
// the failure is logged and def is returned instead. Attempt never returns an error.
func Attempt[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error), def T) T {
	start := time.Now()

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	v, err := fn(ctx)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		evt := p.Logger.Warn()
		if errors.Is(err, context.DeadlineExceeded) {
			evt = evt.Dur("timeout", p.Timeout)
		}
		evt.Err(err).Str("source", p.Source).Msg("upstream unavailable, using fallback")
		p.Metrics.ObserveSource(p.Source, observability.OutcomeFallback, time.Since(start))
		return def
	}

	p.Metrics.ObserveSource(p.Source, observability.OutcomeSuccess, time.Since(start))
	return v
}

package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Report builds fan out to several upstreams, so the latency buckets reach
// past the usual 10s ceiling.
var durationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30}

// HTTPMetrics records OpenTelemetry server instruments.
type HTTPMetrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	active   metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewHTTPMetrics creates the instruments on the global meter provider, so it
// must run after telemetry.Init.
func NewHTTPMetrics() (*HTTPMetrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &HTTPMetrics{}
	var errs [4]error

	m.duration, errs[0] = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP server request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	m.requests, errs[1] = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("HTTP server requests handled"),
		metric.WithUnit("{request}"),
	)
	m.active, errs[2] = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("HTTP server requests in progress"),
		metric.WithUnit("{request}"),
	)
	m.size, errs[3] = meter.Int64Histogram("http.server.response.body.size",
		metric.WithDescription("HTTP server response body size"),
		metric.WithUnit("By"),
	)

	if err := errors.Join(errs[:]...); err != nil {
		return nil, fmt.Errorf("create http instruments: %w", err)
	}
	return m, nil
}

// Middleware labels every observation with the chi route pattern rather than
// the raw path.
func (m *HTTPMetrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			began := time.Now()

			inFlight := metric.WithAttributes(attribute.String("http.request.method", r.Method))
			m.active.Add(ctx, 1, inFlight)
			defer m.active.Add(ctx, -1, inFlight)

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			labels := metric.WithAttributeSet(attribute.NewSet(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", routePattern(r)),
				attribute.String("http.response.status_code", strconv.Itoa(rw.statusCode)),
				attribute.Bool("error", rw.statusCode >= http.StatusBadRequest),
			))
			m.duration.Record(ctx, time.Since(began).Seconds(), labels)
			m.requests.Add(ctx, 1, labels)
			m.size.Record(ctx, rw.written, labels)
		})
	}
}

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ecosphere"

// Source outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeFailure  = "failure"
	OutcomeInvalid  = "invalid"
)

// Metrics holds the Prometheus collectors for report assembly, upstream
// sources, civic complaints and background refresh.
type Metrics struct {
	SourceRequests *prometheus.CounterVec   // labels: source, outcome={success,fallback}
	SourceDuration *prometheus.HistogramVec // labels: source

	ReportsBuilt   *prometheus.CounterVec // labels: outcome={success,failure,invalid}
	ReportDuration prometheus.Histogram

	ComplaintsSubmitted *prometheus.CounterVec // labels: category
	ChatRequests        *prometheus.CounterVec // labels: outcome={success,fallback}
	RefreshRuns         *prometheus.CounterVec // labels: outcome={success,failure}
}

func newMetrics() *Metrics {
	return &Metrics{
		SourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Upstream source fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		SourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "Upstream source fetch duration, fallback included.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		ReportsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_built_total",
			Help:      "Environmental reports by outcome.",
		}, []string{"outcome"}),
		ReportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "report_duration_seconds",
			Help:      "End-to-end environmental report assembly duration.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		ComplaintsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "complaints_submitted_total",
			Help:      "Civic complaints stored, by category.",
		}, []string{"category"}),
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Assistant chat requests by outcome.",
		}, []string{"outcome"}),
		RefreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_runs_total",
			Help:      "Background hotspot refresh runs by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SourceRequests,
		m.SourceDuration,
		m.ReportsBuilt,
		m.ReportDuration,
		m.ComplaintsSubmitted,
		m.ChatRequests,
		m.RefreshRuns,
	}
}

// NewMetrics creates all metrics and registers them with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsWithRegistry creates all metrics and registers them with reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered metrics so tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// ObserveSource records one upstream fetch. Safe on a nil receiver.
func (m *Metrics) ObserveSource(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SourceRequests.WithLabelValues(source, outcome).Inc()
	m.SourceDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveReport records one report assembly. Safe on a nil receiver.
func (m *Metrics) ObserveReport(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ReportsBuilt.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.ReportDuration.Observe(elapsed.Seconds())
	}
}

// ComplaintSubmitted counts a stored complaint. Safe on a nil receiver.
func (m *Metrics) ComplaintSubmitted(category string) {
	if m == nil {
		return
	}
	m.ComplaintsSubmitted.WithLabelValues(category).Inc()
}

// ChatAnswered counts an assistant reply. Safe on a nil receiver.
func (m *Metrics) ChatAnswered(outcome string) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(outcome).Inc()
}

// RefreshCompleted counts a background refresh run. Safe on a nil receiver.
func (m *Metrics) RefreshCompleted(outcome string) {
	if m == nil {
		return
	}
	m.RefreshRuns.WithLabelValues(outcome).Inc()
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/ecosphere/ecosphere/internal/civic"
	"github.com/ecosphere/ecosphere/internal/events"
	"github.com/ecosphere/ecosphere/internal/report"
	"github.com/ecosphere/ecosphere/internal/risk"
)

// Job types accepted in {"job_type": ...} messages.
const (
	JobReportRefresh = "report_refresh"
	JobHealthCheck   = "health_check"
)

// ErrMalformedMessage is returned for bodies that are not JSON objects or
// carry an undecodable event payload. Such messages are acked, not retried.
var ErrMalformedMessage = errors.New("malformed message")

// healthCheckPoint is the single point built by a health_check job.
var healthCheckPoint = Point{Name: "Delhi", Lat: 28.6139, Lon: 77.2090}

// Dispatcher routes message bodies to jobs.
type Dispatcher struct {
	refresh *RefreshJob
	reports ReportBuilder
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher running jobs against refresh.
func NewDispatcher(refresh *RefreshJob, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		refresh: refresh,
		reports: refresh.reports,
		logger:  logger,
	}
}

type envelope struct {
	JobType string `json:"job_type"`
	Type    string `json:"type"`
}

// Dispatch handles one message body. Both the events envelope and job
// messages are accepted. Unknown types are logged and return nil.
func (d *Dispatcher) Dispatch(ctx context.Context, data []byte) error {
	var probe envelope
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch {
	case probe.Type != "":
		return d.dispatchEvent(ctx, data)
	case probe.JobType == JobReportRefresh:
		return d.handleReportRefresh(ctx)
	case probe.JobType == JobHealthCheck:
		return d.handleHealthCheck(ctx)
	default:
		d.logger.Warn().Str("job_type", probe.JobType).Msg("unknown job type")
		return nil
	}
}

func (d *Dispatcher) dispatchEvent(ctx context.Context, data []byte) error {
	e, err := events.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch e.Type {
	case events.TypeComplaintSubmitted:
		var c civic.Complaint
		if err := json.Unmarshal(e.Data, &c); err != nil {
			return fmt.Errorf("%w: complaint payload: %v", ErrMalformedMessage, err)
		}
		return d.handleComplaintSubmitted(ctx, e, &c)
	default:
		d.logger.Warn().Str("event_type", e.Type).Msg("unknown event type")
		return nil
	}
}

// handleComplaintSubmitted builds a report at the complaint's location so the
// log carries the conditions the complaint was filed under.
func (d *Dispatcher) handleComplaintSubmitted(ctx context.Context, e events.Event, c *civic.Complaint) error {
	r, err := d.reports.BuildReport(ctx, report.Location{
		Latitude:  c.Location.Latitude,
		Longitude: c.Location.Longitude,
		Address:   c.Location.Address,
	})
	if err != nil {
		return fmt.Errorf("report for complaint %s: %w", c.ID, err)
	}

	event := d.logger.Info()
	if c.Category == civic.CategoryWaterLog && r.WaterLoggingRisk == risk.LevelHigh {
		event = d.logger.Warn()
	}
	event.
		Str("event_id", e.ID).
		Str("complaint_id", c.ID).
		Str("report_type", string(c.Category)).
		Str("severity", string(c.Severity)).
		Int("aqi", r.AirQuality.AQI).
		Str("water_logging_risk", string(r.WaterLoggingRisk)).
		Int("health_score", r.HealthScore.Score).
		Msg("complaint conditions recorded")
	return nil
}

func (d *Dispatcher) handleReportRefresh(ctx context.Context) error {
	result := d.refresh.Run(ctx)
	if !result.Healthy() {
		return fmt.Errorf("too many refresh failures: %d/%d", result.Failed, result.TotalPoints)
	}
	return nil
}

func (d *Dispatcher) handleHealthCheck(ctx context.Context) error {
	d.logger.Debug().Msg("running health check")

	result := d.refresh.run(ctx, []Point{healthCheckPoint}, 1)
	if result.Failed > 0 {
		return fmt.Errorf("health check failed: %s", result.Errors[0].Error)
	}

	d.logger.Debug().Msg("health check passed")
	return nil
}

// PubSubHandler feeds a subscription into a Dispatcher.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}, nil
}

// Start receives messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	start := time.Now()
	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	err := h.dispatcher.Dispatch(ctx, msg.Data)
	switch {
	case errors.Is(err, ErrMalformedMessage):
		logger.Error().Err(err).Msg("dropping malformed message")
		msg.Ack()
	case err != nil:
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
	default:
		logger.Info().Dur("duration", time.Since(start)).Msg("message handled")
		msg.Ack()
	}
}

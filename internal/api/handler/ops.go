package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"

	"github.com/ecosphere/ecosphere/internal/api/models"
	"github.com/ecosphere/ecosphere/internal/api/response"
	"github.com/ecosphere/ecosphere/internal/provider/resilience"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsConfig holds the dependencies of the operational endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string

	// StoreName labels the civic report store in status output.
	StoreName string
	Store     Pinger

	// Upstreams is optional. Without it status lists no upstreams.
	Upstreams *resilience.Registry

	// PingTimeout bounds the store check (default: 2s).
	PingTimeout time.Duration

	Clock clockwork.Clock
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	cfg OpsConfig
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = 2 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.StoreName == "" {
		cfg.StoreName = "civic-store"
	}
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /api/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(h.cfg.Clock.Now()),
		Version:   h.cfg.Version,
		BuildTime: h.cfg.BuildTime,
	})
}

// ReadinessCheck handles GET /api/ops/ready. It fails only when the store is
// unreachable; upstream outages are absorbed by fallbacks.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	store := h.storeStatus(r.Context())
	health := models.Health{
		Status: store.Status,
		Time:   models.Timestamp(h.cfg.Clock.Now()),
		Checks: map[string]string{store.Name: string(store.Status)},
	}
	if store.Detail != "" {
		health.Checks[store.Name] = store.Detail
	}

	status := http.StatusOK
	if store.Status == models.HealthStatusFail {
		status = http.StatusServiceUnavailable
	}
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /api/ops/status - store and upstream status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	store := h.storeStatus(r.Context())
	out := models.SystemStatus{
		Status:     store.Status,
		Time:       models.Timestamp(h.cfg.Clock.Now()),
		Subsystems: []models.SubsystemStatus{store},
		Upstreams:  []models.UpstreamStatus{},
	}

	if h.cfg.Upstreams != nil {
		for _, u := range h.cfg.Upstreams.Snapshot() {
			us := toUpstreamStatus(u)
			if us.Status != models.HealthStatusOK {
				out.Status = out.Status.Worse(models.HealthStatusDegraded)
			}
			out.Upstreams = append(out.Upstreams, us)
		}
	}

	response.JSON(w, r, http.StatusOK, out)
}

func (h *OpsHandler) storeStatus(ctx context.Context) models.SubsystemStatus {
	s := models.SubsystemStatus{Name: h.cfg.StoreName, Status: models.HealthStatusOK}
	if h.cfg.Store == nil {
		return s
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.PingTimeout)
	defer cancel()
	started := h.cfg.Clock.Now()
	err := h.cfg.Store.Ping(ctx)
	s.LatencyMS = h.cfg.Clock.Since(started).Milliseconds()
	if err != nil {
		s.Status = models.HealthStatusFail
		s.Detail = err.Error()
	}
	return s
}

func toUpstreamStatus(u *resilience.UpstreamHealth) models.UpstreamStatus {
	us := models.UpstreamStatus{
		Name:                u.Name,
		Status:              models.HealthStatusOK,
		CircuitState:        circuitStateName(u.CircuitState),
		Requests:            u.Counts.Requests,
		ConsecutiveFailures: u.Counts.ConsecutiveFailures,
		Message:             u.LastError,
	}
	switch {
	case u.IsUnhealthy():
		us.Status = models.HealthStatusFail
	case u.IsDegraded():
		us.Status = models.HealthStatusDegraded
	}
	if u.LastSuccessAt != nil {
		t := models.Timestamp(*u.LastSuccessAt)
		us.LastSuccessAt = &t
	}
	if u.LastFailureAt != nil {
		t := models.Timestamp(*u.LastFailureAt)
		us.LastFailureAt = &t
	}
	return us
}

func circuitStateName(s gobreaker.State) string {
	switch s {
	case gobreaker.StateOpen:
		return "OPEN"
	case gobreaker.StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

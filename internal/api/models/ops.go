package models

// HealthStatus is the coarse state reported by the ops endpoints.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

var healthRank = map[HealthStatus]int{
	HealthStatusOK:       0,
	HealthStatusDegraded: 1,
	HealthStatusFail:     2,
}

// Worse returns the less healthy of s and other.
func (s HealthStatus) Worse(other HealthStatus) HealthStatus {
	if healthRank[other] > healthRank[s] {
		return other
	}
	return s
}

// Health is the body of the liveness and readiness probes.
type Health struct {
	Status    HealthStatus      `json:"status"`
	Time      Timestamp         `json:"time"`
	Version   string            `json:"version,omitempty"`
	BuildTime string            `json:"buildTime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// SystemStatus combines the complaint store check with the circuit state of
// every registered upstream. An upstream that is not OK only degrades the
// overall status since reports fall back; a failed store fails it.
type SystemStatus struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Subsystems []SubsystemStatus `json:"subsystems"`
	Upstreams  []UpstreamStatus  `json:"upstreams"`
}

type SubsystemStatus struct {
	Name      string       `json:"name"`
	Status    HealthStatus `json:"status"`
	LatencyMS int64        `json:"latencyMs"`
	Detail    string       `json:"detail,omitempty"`
}

type UpstreamStatus struct {
	Name                string       `json:"name"`
	Status              HealthStatus `json:"status"`
	CircuitState        string       `json:"circuitState"`
	Requests            uint32       `json:"requests"`
	ConsecutiveFailures uint32       `json:"consecutiveFailures"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	Message             string       `json:"message,omitempty"`
}

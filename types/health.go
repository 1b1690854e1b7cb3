package types

import "time"

type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "UP"
	HealthStatusDown     HealthStatus = "DOWN"
	HealthStatusDegraded HealthStatus = "DEGRADED"
)

// Component keys of HealthCheck.Components.
const (
	HealthComponentProvider   = "provider"
	HealthComponentRedis      = "redis"
	HealthComponentLiveStream = "live_stream"
)

// HealthComponent is the result of checking one dependency. Latency is the
// round trip of the check, omitted for components that are not pinged.
type HealthComponent struct {
	Status    HealthStatus `json:"status"`
	Details   string       `json:"details,omitempty"`
	LatencyMS int64        `json:"latencyMs,omitempty"`
}

// HealthCheck is the body of GET /health.
type HealthCheck struct {
	Status     HealthStatus               `json:"status"`
	Components map[string]HealthComponent `json:"components"`
	Version    string                     `json:"version"`
	Timestamp  string                     `json:"timestamp"`
	Uptime     string                     `json:"uptime"`
}

// NewHealthCheck starts an UP report with no components.
func NewHealthCheck(version string, now time.Time, uptime time.Duration) HealthCheck {
	return HealthCheck{
		Status:     HealthStatusUp,
		Components: make(map[string]HealthComponent),
		Version:    version,
		Timestamp:  now.UTC().Format(time.RFC3339),
		Uptime:     uptime.Round(time.Second).String(),
	}
}

// Add records c under name. A down critical component takes the whole report
// down; a down optional one degrades an UP report and leaves DOWN alone.
func (h *HealthCheck) Add(name string, c HealthComponent, critical bool) {
	h.Components[name] = c
	if c.Status != HealthStatusDown {
		return
	}
	switch {
	case critical:
		h.Status = HealthStatusDown
	case h.Status == HealthStatusUp:
		h.Status = HealthStatusDegraded
	}
}

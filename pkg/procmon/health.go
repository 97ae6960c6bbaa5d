package procmon

import "time"

// HealthStatus grades an instance or one of its components.
type HealthStatus string

const (
	HealthOK        HealthStatus = "ok"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Component keys of HealthCheck.Components.
const (
	ComponentInstance = "instance"
	ComponentSampler  = "sampler"
	ComponentScanner  = "scanner"
	ComponentSystem   = "system"
	ComponentErrors   = "errors"
)

// A sampler that has not completed a window in this many intervals is
// degraded.
const staleWindows = 3

// HealthCheck is the result of Instance.Health. Status is the worst of the
// component statuses.
type HealthCheck struct {
	Status     HealthStatus
	Timestamp  time.Time
	Uptime     time.Duration // zero when stopped
	Components map[string]ComponentHealth
	Message    string
}

// ComponentHealth grades one part of the sampling pipeline. LastUpdated is
// the last time the component produced data.
type ComponentHealth struct {
	Status      HealthStatus
	Message     string
	LastUpdated time.Time
}

func (h HealthCheck) IsHealthy() bool   { return h.Status == HealthOK }
func (h HealthCheck) IsDegraded() bool  { return h.Status == HealthDegraded }
func (h HealthCheck) IsUnhealthy() bool { return h.Status == HealthUnhealthy }

var severity = map[HealthStatus]int{
	HealthOK:        0,
	HealthDegraded:  1,
	HealthUnhealthy: 2,
}

func worst(components map[string]ComponentHealth) HealthStatus {
	status := HealthOK
	for _, c := range components {
		if severity[c.Status] > severity[status] {
			status = c.Status
		}
	}
	return status
}

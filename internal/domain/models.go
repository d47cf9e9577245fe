package domain

import "time"

// Status is the reachability of a target as seen by its last check.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusUp      Status = "up"
	StatusDown    Status = "down"
)

const (
	MinIntervalSeconds     = 10
	DefaultIntervalSeconds = 30
	DefaultProbeTimeout    = 15 * time.Second

	// Log capacities for a server-backed deployment and a single-client one.
	ServerLogCapacity = 5000
	ClientLogCapacity = 2000
)

type TargetID string

type Target struct {
	ID              TargetID   `json:"id"`
	URL             string     `json:"url"`
	IntervalSeconds int        `json:"interval_seconds"`
	LastCheckedAt   *time.Time `json:"last_checked_at"`
	LastStatus      Status     `json:"last_status,omitempty"`
	NotifyOnChange  bool       `json:"notify_on_change"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Interval is the recheck period, never shorter than MinIntervalSeconds.
func (t Target) Interval() time.Duration {
	return time.Duration(ClampInterval(t.IntervalSeconds)) * time.Second
}

// DisplayStatus reports StatusUnknown for targets that were never checked.
func (t Target) DisplayStatus() Status {
	if t.LastStatus == "" {
		return StatusUnknown
	}
	return t.LastStatus
}

// ClampInterval applies the default for unset intervals and the 10s floor.
func ClampInterval(seconds int) int {
	if seconds == 0 {
		return DefaultIntervalSeconds
	}
	if seconds < MinIntervalSeconds {
		return MinIntervalSeconds
	}
	return seconds
}

// CheckResult is one entry of the rolling check log.
type CheckResult struct {
	TargetID  TargetID  `json:"target_id,omitempty"`
	URL       string    `json:"url"`
	CheckedAt time.Time `json:"checked_at"`
	Status    Status    `json:"status"`
	HTTPCode  int       `json:"http_code"`
	LatencyMS float64   `json:"latency_ms"`
	Manual    bool      `json:"manual"`
	Reason    string    `json:"reason,omitempty"`
}

// Snapshot is the full persisted state.
type Snapshot struct {
	Targets []Target      `json:"targets"`
	Logs    []CheckResult `json:"logs"`
}

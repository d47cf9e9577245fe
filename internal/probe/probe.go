package probe

import (
	"context"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// CheckResult is the unified result of a single probe.
//
// StatusCode is the final HTTP status code when a response was obtained and 0
// for transport, timeout and TLS failures.
type CheckResult struct {
	Success    bool
	StatusCode int
	LatencyMS  float64
	Message    string
}

// Status maps the probe outcome onto the target status model.
func (r CheckResult) Status() domain.Status {
	if r.Success {
		return domain.StatusUp
	}
	return domain.StatusDown
}

// Checker performs a single check for a given target URL. Implementations never
// return errors: every failure mode resolves to an unsuccessful result.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}

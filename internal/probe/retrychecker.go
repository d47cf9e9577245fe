package probe

import (
	"context"
	"time"
)

// RetryChecker re-runs Inner until it succeeds or Attempts are exhausted.
type RetryChecker struct {
	Inner    Checker
	Attempts int
	Backoff  time.Duration
}

// WithRetries wraps c only when more than one attempt is requested.
func WithRetries(c Checker, attempts int, backoff time.Duration) Checker {
	if attempts <= 1 {
		return c
	}
	return &RetryChecker{Inner: c, Attempts: attempts, Backoff: backoff}
}

func (r *RetryChecker) Check(ctx context.Context, target string) CheckResult {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var last CheckResult
	for i := 0; i < attempts; i++ {
		last = r.Inner.Check(ctx, target)
		if last.Success {
			return last
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			last.Message += " (retry aborted)"
			return last
		case <-time.After(r.Backoff):
		}
	}
	if attempts > 1 {
		last.Message += " (after retries)"
	}
	return last
}

package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/notify"
)

// Alerter decides whether a completed check is worth a notification and
// formats it.
type Alerter struct {
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewAlerter(n notify.Notifier, logger *zap.Logger) *Alerter {
	return &Alerter{notifier: n, logger: logger}
}

// ShouldNotify: manual checks always notify; otherwise only targets that opted
// in, on their first check or on a status change.
func ShouldNotify(t domain.Target, prev domain.Status, r domain.CheckResult) bool {
	if r.Manual {
		return true
	}
	if !t.NotifyOnChange {
		return false
	}
	return prev == "" || prev != r.Status
}

func (a *Alerter) Observe(ctx context.Context, t domain.Target, prev domain.Status, r domain.CheckResult) {
	if a == nil || a.notifier == nil || !ShouldNotify(t, prev, r) {
		return
	}
	title, text := Message(r)
	if err := a.notifier.Send(ctx, title, text); err != nil {
		// Best-effort: a failed notification never affects scheduling.
		a.logger.Warn("notify_failed",
			zap.String("target_id", string(t.ID)),
			zap.String("url", t.URL),
			zap.Error(err),
		)
	}
}

func Message(r domain.CheckResult) (title, text string) {
	title = "Site is DOWN"
	if r.Status == domain.StatusUp {
		title = "Site is UP"
	}

	httpTxt := "n/a"
	if r.HTTPCode != 0 {
		httpTxt = fmt.Sprintf("%d", r.HTTPCode)
	}
	reason := r.Reason
	if reason == "" {
		reason = "-"
	}

	text = fmt.Sprintf(
		"%s is %s\nHTTP: %s\nLatency: %.0f ms\nReason: %s\nChecked: %s",
		r.URL, strings.ToUpper(string(r.Status)), httpTxt, r.LatencyMS, reason,
		r.CheckedAt.Format(time.RFC3339),
	)
	return title, text
}

package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Ticker runs fn every d until the returned stop func is called. Implementations
// must not reset the phase of other registrations, and must call fn off the
// goroutine that called Every so a slow fn never delays the caller.
type Ticker interface {
	Every(d time.Duration, fn func()) (stop func())
}

// CronTicker drives every registration from a single cron loop; entries are
// kept sorted by next fire time and each fire runs in its own goroutine.
type CronTicker struct {
	c *cron.Cron
}

func NewCronTicker(logger *zap.Logger) *CronTicker {
	cl := cronLogger{l: logger.Named("cron")}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)
	c.Start()
	return &CronTicker{c: c}
}

func (t *CronTicker) Every(d time.Duration, fn func()) func() {
	id := t.c.Schedule(cron.Every(d), cron.FuncJob(fn))
	var once sync.Once
	return func() {
		once.Do(func() { t.c.Remove(id) })
	}
}

// Stop halts the loop and waits for running jobs, bounded by ctx.
func (t *CronTicker) Stop(ctx context.Context) error {
	done := t.c.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

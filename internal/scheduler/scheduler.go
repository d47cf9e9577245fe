// Package scheduler owns the per-target check timers and the write-through of
// check results into the registry, the rolling log and the snapshot store.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/logstore"
	"github.com/hamed0406/sitewatch/internal/metrics"
	"github.com/hamed0406/sitewatch/internal/notify"
	"github.com/hamed0406/sitewatch/internal/probe"
	"github.com/hamed0406/sitewatch/internal/registry"
	"github.com/hamed0406/sitewatch/internal/repo"
	"github.com/hamed0406/sitewatch/internal/repo/memory"
)

var ErrStopped = errors.New("scheduler stopped")

// Check triggers, used as the metrics label.
const (
	TriggerScheduled = "scheduled"
	TriggerColdStart = "cold_start"
	TriggerResume    = "resume"
	TriggerManual    = "manual"
	TriggerAdHoc     = "adhoc"
)

type Deps struct {
	Registry *registry.Registry
	Logs     *logstore.Store
	Checker  probe.Checker
	Store    repo.SnapshotStore
	Notifier notify.Notifier
	Ticker   Ticker
	Logger   *zap.Logger
	Now      func() time.Time
}

type armedTimer struct {
	stop func()
	gen  uint64
}

type Scheduler struct {
	reg     *registry.Registry
	logs    *logstore.Store
	checker probe.Checker
	ticker  Ticker
	alerter *Alerter
	saver   *persister
	logger  *zap.Logger
	now     func() time.Time

	// ctx is handed to background checks; cancelled only when Stop gives up
	// waiting for them.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	armed    map[domain.TargetID]armedTimer
	gen      uint64
	stopped  bool
	inflight sync.WaitGroup
}

func New(d Deps) *Scheduler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Registry == nil {
		d.Registry = registry.New()
	}
	if d.Logs == nil {
		d.Logs = logstore.New(domain.ServerLogCapacity)
	}
	if d.Checker == nil {
		d.Checker = probe.NewHTTPChecker(probe.Options{})
	}
	if d.Store == nil {
		d.Store = memory.New()
	}
	if d.Ticker == nil {
		d.Ticker = NewCronTicker(d.Logger)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		reg:     d.Registry,
		logs:    d.Logs,
		checker: d.Checker,
		ticker:  d.Ticker,
		alerter: NewAlerter(d.Notifier, d.Logger),
		logger:  d.Logger,
		now:     d.Now,
		ctx:     ctx,
		cancel:  cancel,
		armed:   make(map[domain.TargetID]armedTimer),
	}
	s.saver = newPersister(d.Store, s.snapshot, d.Logger)
	return s
}

// Restore loads the stored snapshot and arms every target in it as if it had
// just been added. Entries the registry rejects are logged and skipped. When the
// snapshot cannot be loaded the scheduler starts empty.
func (s *Scheduler) Restore(ctx context.Context) error {
	snap, err := s.saver.store.Load(ctx)
	if err != nil {
		s.setAside(err)
		return fmt.Errorf("load snapshot: %w", err)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrStopped
	}
	s.logs.Restore(snap.Logs)
	restored, rejected := s.reg.Restore(snap.Targets)
	for _, t := range restored {
		s.armLocked(t)
	}
	s.mu.Unlock()

	for _, err := range rejected {
		s.logger.Warn("snapshot_target_skipped", zap.Error(err))
	}
	if len(rejected) > 0 {
		s.saver.Request()
	}
	s.logger.Info("snapshot_restored",
		zap.Int("targets", len(restored)),
		zap.Int("skipped", len(rejected)),
		zap.Int("logs", s.logs.Len()),
	)
	return nil
}

// setAside runs after a failed Load. The scheduler keeps going empty and the
// next Save replaces whatever is stored, so a corrupt snapshot is moved out of
// the way first when the store supports it.
func (s *Scheduler) setAside(loadErr error) {
	q, ok := s.saver.store.(repo.Quarantiner)
	if !ok || !errors.Is(loadErr, repo.ErrCorruptSnapshot) {
		s.logger.Warn("snapshot_will_be_overwritten", zap.Error(loadErr))
		return
	}
	moved, err := q.Quarantine()
	if err != nil {
		s.logger.Error("snapshot_quarantine_failed", zap.Error(err))
		return
	}
	if moved != "" {
		s.logger.Warn("snapshot_quarantined", zap.String("path", moved))
	}
}

// AddTarget registers url and arms its timer. A never-checked target gets an
// immediate check outside its regular cadence.
func (s *Scheduler) AddTarget(url string, intervalSeconds int, notifyOnChange bool) (domain.Target, error) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return domain.Target{}, ErrStopped
	}
	t, err := s.reg.Add(url, intervalSeconds, notifyOnChange)
	if err != nil {
		s.mu.Unlock()
		return domain.Target{}, err
	}
	s.armLocked(t)
	s.mu.Unlock()

	s.saver.Request()
	s.logger.Info("target_added",
		zap.String("target_id", string(t.ID)),
		zap.String("url", t.URL),
		zap.Int("interval_seconds", t.IntervalSeconds),
	)
	return t, nil
}

// RemoveTarget disarms and forgets id. It is idempotent and reports whether
// anything was removed. Checks still in flight finish, but their results are
// discarded.
func (s *Scheduler) RemoveTarget(id domain.TargetID) bool {
	s.mu.Lock()
	if a, ok := s.armed[id]; ok {
		a.stop()
		delete(s.armed, id)
		metrics.ArmedTargets.Set(float64(len(s.armed)))
	}
	removed := s.reg.Remove(id)
	s.mu.Unlock()

	if removed {
		s.saver.Request()
		s.logger.Info("target_removed", zap.String("target_id", string(id)))
	}
	return removed
}

// CheckNow runs a manual check synchronously. The target's timer is untouched.
// The check is bounded by the checker timeout, not by ctx: a caller that goes away
// must not turn into a down result.
func (s *Scheduler) CheckNow(ctx context.Context, id domain.TargetID) (domain.CheckResult, error) {
	s.mu.Lock()
	a, ok := s.armed[id]
	if !ok {
		s.mu.Unlock()
		return domain.CheckResult{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	t, err := s.reg.Get(id)
	if err != nil {
		s.mu.Unlock()
		return domain.CheckResult{}, err
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()
	return s.runCheck(context.WithoutCancel(ctx), t, a.gen, TriggerManual), nil
}

// CheckURL probes an unregistered url. The result is appended to the log as a
// manual entry with no target id. Like CheckNow it ignores ctx cancellation.
func (s *Scheduler) CheckURL(ctx context.Context, url string) (domain.CheckResult, error) {
	if err := registry.ValidateURL(url); err != nil {
		return domain.CheckResult{}, err
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return domain.CheckResult{}, ErrStopped
	}
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	res := s.checker.Check(context.WithoutCancel(ctx), url)
	entry := s.entry("", url, res, true)
	metrics.RecordCheck(string(entry.Status), TriggerAdHoc, entry.LatencyMS)

	s.mu.Lock()
	s.logs.Append(entry)
	s.mu.Unlock()
	s.saver.Request()

	s.logger.Info("adhoc_check_completed",
		zap.String("url", url),
		zap.String("status", string(entry.Status)),
		zap.Int("http_code", entry.HTTPCode),
		zap.Float64("latency_ms", entry.LatencyMS),
	)
	return entry, nil
}

// Resume checks every armed target immediately without touching timer phase.
// It returns how many checks were started.
func (s *Scheduler) Resume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return 0
	}
	n := 0
	for id, a := range s.armed {
		t, err := s.reg.Get(id)
		if err != nil {
			continue
		}
		s.spawnLocked(t, a.gen, TriggerResume)
		n++
	}
	s.logger.Info("resume_triggered", zap.Int("checks", n))
	return n
}

func (s *Scheduler) Targets() []domain.Target { return s.reg.List() }

func (s *Scheduler) Target(id domain.TargetID) (domain.Target, error) { return s.reg.Get(id) }

func (s *Scheduler) Logs() []domain.CheckResult { return s.logs.List() }

// Armed is the number of targets with an active timer.
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.armed)
}

// Stop disarms every timer, waits for in-flight checks (bounded by ctx) and
// writes a final snapshot.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	for id, a := range s.armed {
		a.stop()
		delete(s.armed, id)
	}
	metrics.ArmedTargets.Set(0)
	s.mu.Unlock()

	var err error
	if ct, ok := s.ticker.(interface{ Stop(context.Context) error }); ok {
		err = multierr.Append(err, ct.Stop(ctx))
	}

	waited := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		s.cancel()
		err = multierr.Append(err, fmt.Errorf("waiting for in-flight checks: %w", ctx.Err()))
	}
	s.cancel()

	err = multierr.Append(err, s.saver.Close(ctx))
	s.logger.Info("scheduler_stopped")
	return err
}

func (s *Scheduler) armLocked(t domain.Target) {
	s.gen++
	gen := s.gen
	stop := s.ticker.Every(t.Interval(), func() { s.fire(t, gen) })
	s.armed[t.ID] = armedTimer{stop: stop, gen: gen}
	metrics.ArmedTargets.Set(float64(len(s.armed)))

	if t.LastCheckedAt == nil {
		s.spawnLocked(t, gen, TriggerColdStart)
	}
}

// fire runs on the ticker's goroutine.
func (s *Scheduler) fire(t domain.Target, gen uint64) {
	s.mu.Lock()
	if a, ok := s.armed[t.ID]; s.stopped || !ok || a.gen != gen {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	defer s.inflight.Done()
	s.runCheck(s.ctx, t, gen, TriggerScheduled)
}

func (s *Scheduler) spawnLocked(t domain.Target, gen uint64, trigger string) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("check_panic",
					zap.String("target_id", string(t.ID)),
					zap.Any("panic", r),
				)
			}
		}()
		s.runCheck(s.ctx, t, gen, trigger)
	}()
}

// runCheck probes t and writes the result through if t is still armed with the
// same generation; otherwise the result is dropped.
func (s *Scheduler) runCheck(ctx context.Context, t domain.Target, gen uint64, trigger string) domain.CheckResult {
	res := s.checker.Check(ctx, t.URL)
	entry := s.entry(t.ID, t.URL, res, trigger == TriggerManual)
	metrics.RecordCheck(string(entry.Status), trigger, entry.LatencyMS)

	s.mu.Lock()
	if a, ok := s.armed[t.ID]; !ok || a.gen != gen {
		s.mu.Unlock()
		s.logger.Debug("check_dropped",
			zap.String("target_id", string(t.ID)),
			zap.String("url", t.URL),
		)
		return entry
	}
	prev, ok := s.reg.UpdateAfterCheck(t.ID, entry.Status, entry.CheckedAt)
	if !ok {
		s.mu.Unlock()
		return entry
	}
	s.logs.Append(entry)
	s.mu.Unlock()

	s.saver.Request()
	s.logger.Debug("check_completed",
		zap.String("target_id", string(t.ID)),
		zap.String("url", t.URL),
		zap.String("trigger", trigger),
		zap.String("status", string(entry.Status)),
		zap.Int("http_code", entry.HTTPCode),
		zap.Float64("latency_ms", entry.LatencyMS),
		zap.String("reason", entry.Reason),
	)
	s.alerter.Observe(ctx, t, prev, entry)
	return entry
}

func (s *Scheduler) entry(id domain.TargetID, url string, res probe.CheckResult, manual bool) domain.CheckResult {
	return domain.CheckResult{
		TargetID:  id,
		URL:       url,
		CheckedAt: s.now(),
		Status:    res.Status(),
		HTTPCode:  res.StatusCode,
		LatencyMS: res.LatencyMS,
		Manual:    manual,
		Reason:    res.Message,
	}
}

func (s *Scheduler) snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Snapshot{Targets: s.reg.List(), Logs: s.logs.Export()}
}

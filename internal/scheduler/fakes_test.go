package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/sitewatch/internal/probe"
)

// ---- shared helpers ----

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

// fakeTicker never fires on its own; tests call fireAll.
type fakeTicker struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *fakeTicker) Every(d time.Duration, fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{d: d, fn: fn}
	f.timers = append(f.timers, t)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		t.stopped = true
	}
}

func (f *fakeTicker) active() []*fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeTimer
	for _, t := range f.timers {
		if !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeTicker) fireAll() {
	for _, t := range f.active() {
		t.fn()
	}
}

type fakeChecker struct {
	mu      sync.Mutex
	byURL   map[string]probe.CheckResult
	calls   map[string]int
	gates   map[string]chan struct{} // Check on a gated url blocks until the gate closes
	entered chan string
}

func newFakeChecker() *fakeChecker {
	return &fakeChecker{
		byURL:   map[string]probe.CheckResult{},
		calls:   map[string]int{},
		gates:   map[string]chan struct{}{},
		entered: make(chan string, 16),
	}
}

func (f *fakeChecker) set(url string, up bool, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byURL[url] = probe.CheckResult{Success: up, StatusCode: code, LatencyMS: 12}
}

// hold gates url; close the returned channel to let its checks finish.
func (f *fakeChecker) hold(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[url] = gate
	return gate
}

func (f *fakeChecker) Check(ctx context.Context, target string) probe.CheckResult {
	f.mu.Lock()
	f.calls[target]++
	gate := f.gates[target]
	res, ok := f.byURL[target]
	f.mu.Unlock()

	if gate != nil {
		f.entered <- target
		<-gate
	}
	// Behave like the http checker: a dead context is a failed request.
	if ctx.Err() != nil {
		return probe.CheckResult{Success: false, Message: "timeout"}
	}
	if !ok {
		return probe.CheckResult{Success: true, StatusCode: 200, LatencyMS: 5}
	}
	return res
}

func (f *fakeChecker) callsFor(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type notification struct{ title, text string }

type memNotifier struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (m *memNotifier) Send(ctx context.Context, title, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, notification{title, text})
	return m.err
}

func (m *memNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *memNotifier) last() notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return notification{}
	}
	return m.sent[len(m.sent)-1]
}

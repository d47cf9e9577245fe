package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestCronTicker_FiresAndStops(t *testing.T) {
	ct := NewCronTicker(zap.NewNop())
	defer func() { _ = ct.Stop(context.Background()) }()

	var n atomic.Int32
	stop := ct.Every(time.Second, func() { n.Add(1) })

	deadline := time.Now().Add(3 * time.Second)
	for n.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("ticker never fired")
		}
		time.Sleep(20 * time.Millisecond)
	}

	stop()
	stop() // idempotent
	after := n.Load()
	time.Sleep(1500 * time.Millisecond)
	if got := n.Load(); got != after {
		t.Fatalf("fired %d more times after stop", got-after)
	}
}

func TestCronTicker_RecoversPanics(t *testing.T) {
	ct := NewCronTicker(zap.NewNop())
	defer func() { _ = ct.Stop(context.Background()) }()

	var n atomic.Int32
	stopA := ct.Every(time.Second, func() { panic("boom") })
	stopB := ct.Every(time.Second, func() { n.Add(1) })
	defer stopA()
	defer stopB()

	deadline := time.Now().Add(3 * time.Second)
	for n.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("healthy job never ran next to a panicking one")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

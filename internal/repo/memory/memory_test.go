package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
)

func TestMemoryStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := New()

	empty, err := s.Load(ctx)
	if err != nil || len(empty.Targets) != 0 || len(empty.Logs) != 0 {
		t.Fatalf("want empty snapshot, got %+v err=%v", empty, err)
	}

	at := time.Now().UTC()
	in := domain.Snapshot{
		Targets: []domain.Target{{ID: "T1", URL: "https://example.com", IntervalSeconds: 30, LastCheckedAt: &at}},
		Logs:    []domain.CheckResult{{TargetID: "T1", URL: "https://example.com", Status: domain.StatusUp, HTTPCode: 200}},
	}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// mutate caller copy; stored snapshot must not change
	*in.Targets[0].LastCheckedAt = at.Add(time.Hour)
	in.Logs[0].HTTPCode = 500

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Targets) != 1 || !got.Targets[0].LastCheckedAt.Equal(at) || got.Logs[0].HTTPCode != 200 {
		t.Fatalf("stored snapshot was aliased: %+v", got)
	}
	if s.Saves() != 1 {
		t.Fatalf("want 1 save, got %d", s.Saves())
	}
}

func TestMemoryStore_FailWith(t *testing.T) {
	s := New()
	boom := errors.New("disk full")
	s.FailWith(boom)
	if err := s.Save(context.Background(), domain.Snapshot{}); !errors.Is(err, boom) {
		t.Fatalf("want injected error, got %v", err)
	}
	s.FailWith(nil)
	if err := s.Save(context.Background(), domain.Snapshot{}); err != nil {
		t.Fatalf("want recovery, got %v", err)
	}
}

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
)

func TestPostgresStore_SaveLoad(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	ctx := context.Background()
	store, err := New(ctx, dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}
	defer store.Close()

	at := time.Now().UTC().Truncate(time.Microsecond)
	in := domain.Snapshot{
		Targets: []domain.Target{
			{ID: "b", URL: "https://b.test", IntervalSeconds: 30, NotifyOnChange: true, CreatedAt: at},
			{ID: "a", URL: "https://a.test", IntervalSeconds: 10, LastCheckedAt: &at, LastStatus: domain.StatusUp, CreatedAt: at},
		},
		Logs: []domain.CheckResult{
			{TargetID: "a", URL: "https://a.test", CheckedAt: at, Status: domain.StatusUp, HTTPCode: 200, LatencyMS: 42},
			{URL: "https://adhoc.test", CheckedAt: at, Status: domain.StatusDown, Manual: true, Reason: "timeout"},
		},
	}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Targets) != 2 || got.Targets[0].ID != "b" || got.Targets[1].ID != "a" {
		t.Fatalf("target order not preserved: %+v", got.Targets)
	}
	if got.Targets[0].LastCheckedAt != nil || got.Targets[1].LastCheckedAt == nil {
		t.Fatalf("nullable last_checked_at mishandled: %+v", got.Targets)
	}
	if len(got.Logs) != 2 || got.Logs[1].Reason != "timeout" || !got.Logs[1].Manual {
		t.Fatalf("unexpected logs: %+v", got.Logs)
	}

	// a second save replaces, not appends
	if err := store.Save(ctx, domain.Snapshot{}); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	got, _ = store.Load(ctx)
	if len(got.Targets) != 0 || len(got.Logs) != 0 {
		t.Fatalf("want empty snapshot after replace, got %+v", got)
	}
}

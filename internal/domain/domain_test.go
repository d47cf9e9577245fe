package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestClampInterval(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, DefaultIntervalSeconds},
		{1, MinIntervalSeconds},
		{-5, MinIntervalSeconds},
		{10, 10},
		{45, 45},
	}
	for _, c := range cases {
		if got := ClampInterval(c.in); got != c.want {
			t.Fatalf("ClampInterval(%d)=%d want %d", c.in, got, c.want)
		}
	}
}

func TestTarget_IntervalFloor(t *testing.T) {
	tg := Target{IntervalSeconds: 3}
	if tg.Interval() != 10*time.Second {
		t.Fatalf("want 10s floor, got %v", tg.Interval())
	}
}

func TestTarget_NeverCheckedJSON(t *testing.T) {
	tg := Target{ID: "T1", URL: "https://example.com", IntervalSeconds: 30}
	b, err := json.Marshal(tg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"last_checked_at":null`) {
		t.Fatalf("expected null last_checked_at, got %s", s)
	}
	if strings.Contains(s, "last_status") {
		t.Fatalf("expected last_status omitted before first check, got %s", s)
	}
	if tg.DisplayStatus() != StatusUnknown {
		t.Fatalf("want unknown display status, got %q", tg.DisplayStatus())
	}
}

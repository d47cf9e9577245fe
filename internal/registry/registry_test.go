package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
)

func TestAdd_ValidatesURL(t *testing.T) {
	r := New()
	for _, in := range []string{"", "   ", "example.com", "ftp://example.com", "https://"} {
		if _, err := r.Add(in, 30, true); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("Add(%q): want ErrValidation, got %v", in, err)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("rejected adds must not register targets, got %d", r.Len())
	}
}

func TestAdd_ClampsInterval(t *testing.T) {
	r := New()
	tg, err := r.Add("https://x.test", 1, true)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if tg.IntervalSeconds != 10 {
		t.Fatalf("want clamped interval 10, got %d", tg.IntervalSeconds)
	}
	if tg.ID == "" || tg.LastCheckedAt != nil || tg.LastStatus != "" {
		t.Fatalf("unexpected fresh target: %+v", tg)
	}
}

func TestAdd_RejectsDuplicateURL(t *testing.T) {
	r := New()
	if _, err := r.Add("https://example.com", 30, true); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := r.Add("https://example.com", 60, false); !errors.Is(err, domain.ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("want 1 target, got %d", r.Len())
	}
}

func TestRemove_Idempotent(t *testing.T) {
	r := New()
	tg, _ := r.Add("https://example.com", 30, true)
	if !r.Remove(tg.ID) {
		t.Fatalf("first remove should report removal")
	}
	if r.Remove(tg.ID) {
		t.Fatalf("second remove should be a no-op")
	}
	if _, err := r.Get(tg.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound after remove, got %v", err)
	}
	// URL is free again once removed.
	if _, err := r.Add("https://example.com", 30, true); err != nil {
		t.Fatalf("re-add after remove: %v", err)
	}
}

func TestList_InsertionOrder(t *testing.T) {
	r := New()
	urls := []string{"https://c.test", "https://a.test", "https://b.test"}
	for _, u := range urls {
		if _, err := r.Add(u, 30, true); err != nil {
			t.Fatalf("Add(%s): %v", u, err)
		}
	}
	first, _ := r.Add("https://d.test", 30, true)
	r.Remove(first.ID)

	for i := 0; i < 2; i++ {
		got := r.List()
		if len(got) != len(urls) {
			t.Fatalf("want %d targets, got %d", len(urls), len(got))
		}
		for j, tg := range got {
			if tg.URL != urls[j] {
				t.Fatalf("position %d: want %s got %s", j, urls[j], tg.URL)
			}
		}
	}
}

func TestUpdateAfterCheck_ReturnsPrevious(t *testing.T) {
	r := New()
	tg, _ := r.Add("https://example.com", 30, true)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	prev, ok := r.UpdateAfterCheck(tg.ID, domain.StatusUp, at)
	if !ok || prev != "" {
		t.Fatalf("first update: want prev=\"\" ok=true, got %q %v", prev, ok)
	}
	prev, ok = r.UpdateAfterCheck(tg.ID, domain.StatusDown, at.Add(time.Minute))
	if !ok || prev != domain.StatusUp {
		t.Fatalf("second update: want prev=up, got %q %v", prev, ok)
	}
	got, _ := r.Get(tg.ID)
	if got.LastStatus != domain.StatusDown || got.LastCheckedAt == nil || !got.LastCheckedAt.Equal(at.Add(time.Minute)) {
		t.Fatalf("unexpected stored target: %+v", got)
	}
}

func TestUpdateAfterCheck_RemovedIsNoop(t *testing.T) {
	r := New()
	tg, _ := r.Add("https://example.com", 30, true)
	r.Remove(tg.ID)
	if _, ok := r.UpdateAfterCheck(tg.ID, domain.StatusUp, time.Now()); ok {
		t.Fatalf("update on removed target must report ok=false")
	}
	if r.Len() != 0 {
		t.Fatalf("update must not resurrect a removed target")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	r := New()
	tg, _ := r.Add("https://example.com", 30, true)
	got, _ := r.Get(tg.ID)
	got.URL = "https://mutated.test"
	again, _ := r.Get(tg.ID)
	if again.URL != "https://example.com" {
		t.Fatalf("caller mutation leaked into registry: %s", again.URL)
	}
}

func TestRestore_KeepsIDsAndSkipsBadEntries(t *testing.T) {
	r := New()
	checked := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []domain.Target{
		{ID: "a", URL: "https://a.test", IntervalSeconds: 5, LastCheckedAt: &checked, LastStatus: domain.StatusUp},
		{ID: "b", URL: "https://b.test", IntervalSeconds: 60},
		{ID: "c", URL: "nope"},
		{ID: "d", URL: "https://a.test"},
	}
	restored, rejected := r.Restore(in)
	if len(restored) != 2 || len(rejected) != 2 {
		t.Fatalf("want 2 restored / 2 rejected, got %d / %d", len(restored), len(rejected))
	}
	a, err := r.Get("a")
	if err != nil {
		t.Fatalf("Get(a): %v", err)
	}
	if a.IntervalSeconds != 10 || a.LastStatus != domain.StatusUp {
		t.Fatalf("unexpected restored target: %+v", a)
	}
}

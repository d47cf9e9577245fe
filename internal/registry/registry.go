// Package registry is the source of truth for monitored targets.
package registry

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// Registry keeps targets keyed by id, in insertion order. Duplicate URLs are
// rejected with domain.ErrDuplicate.
type Registry struct {
	mu      sync.RWMutex
	targets map[domain.TargetID]*domain.Target
	order   []domain.TargetID
	now     func() time.Time
}

func New() *Registry {
	return &Registry{
		targets: make(map[domain.TargetID]*domain.Target),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ValidateURL accepts absolute http/https URLs with a host.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: url is required", domain.ErrValidation)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url must start with http:// or https://", domain.ErrValidation)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url has no host", domain.ErrValidation)
	}
	return nil
}

func (r *Registry) Add(rawURL string, intervalSeconds int, notifyOnChange bool) (domain.Target, error) {
	if err := ValidateURL(rawURL); err != nil {
		return domain.Target{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byURL(rawURL) != nil {
		return domain.Target{}, fmt.Errorf("%w: %s", domain.ErrDuplicate, rawURL)
	}
	t := &domain.Target{
		ID:              domain.TargetID(uuid.NewString()),
		URL:             rawURL,
		IntervalSeconds: domain.ClampInterval(intervalSeconds),
		NotifyOnChange:  notifyOnChange,
		CreatedAt:       r.now(),
	}
	r.insert(t)
	return *t, nil
}

// Restore loads previously persisted targets, keeping their ids. Invalid and
// duplicate entries are skipped and returned as rejected.
func (r *Registry) Restore(targets []domain.Target) (restored []domain.Target, rejected []error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, in := range targets {
		if err := ValidateURL(in.URL); err != nil {
			rejected = append(rejected, err)
			continue
		}
		if in.ID == "" {
			in.ID = domain.TargetID(uuid.NewString())
		}
		if _, ok := r.targets[in.ID]; ok || r.byURL(in.URL) != nil {
			rejected = append(rejected, fmt.Errorf("%w: %s", domain.ErrDuplicate, in.URL))
			continue
		}
		t := in
		t.IntervalSeconds = domain.ClampInterval(t.IntervalSeconds)
		if t.CreatedAt.IsZero() {
			t.CreatedAt = r.now()
		}
		r.insert(&t)
		restored = append(restored, t)
	}
	return restored, rejected
}

// Remove is idempotent; it reports whether a target was actually removed.
func (r *Registry) Remove(id domain.TargetID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.targets[id]; !ok {
		return false
	}
	delete(r.targets, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Registry) Get(id domain.TargetID) (domain.Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[id]
	if !ok {
		return domain.Target{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return *t, nil
}

func (r *Registry) List() []domain.Target {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Target, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.targets[id])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets)
}

// UpdateAfterCheck records a check outcome and returns the status the target had
// before it. ok is false when the target no longer exists.
func (r *Registry) UpdateAfterCheck(id domain.TargetID, status domain.Status, at time.Time) (prev domain.Status, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[id]
	if !ok {
		return "", false
	}
	prev = t.LastStatus
	checked := at
	t.LastStatus = status
	t.LastCheckedAt = &checked
	return prev, true
}

func (r *Registry) insert(t *domain.Target) {
	r.targets[t.ID] = t
	r.order = append(r.order, t.ID)
}

func (r *Registry) byURL(u string) *domain.Target {
	for _, t := range r.targets {
		if t.URL == u {
			return t
		}
	}
	return nil
}

package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

var _ repo.SnapshotStore = (*Store)(nil)

// Store keeps the last saved snapshot in memory. Used when no durable backend
// is configured, and in tests.
type Store struct {
	mu    sync.RWMutex
	snap  domain.Snapshot
	saves int
	err   error
}

func New() *Store {
	return &Store{}
}

// Seed sets the snapshot returned by Load.
func (m *Store) Seed(s domain.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = clone(s)
}

// FailWith makes subsequent Saves return err (nil restores normal behaviour).
func (m *Store) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Store) Save(ctx context.Context, s domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.snap = clone(s)
	m.saves++
	return nil
}

func (m *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.snap), nil
}

// Saves reports how many snapshots were written successfully.
func (m *Store) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func clone(s domain.Snapshot) domain.Snapshot {
	out := domain.Snapshot{
		Targets: make([]domain.Target, len(s.Targets)),
		Logs:    make([]domain.CheckResult, len(s.Logs)),
	}
	copy(out.Targets, s.Targets)
	copy(out.Logs, s.Logs)
	for i, t := range out.Targets {
		if t.LastCheckedAt != nil {
			at := *t.LastCheckedAt
			out.Targets[i].LastCheckedAt = &at
		}
	}
	return out
}

// Package logstore holds the bounded rolling log of check results.
package logstore

import (
	"sync"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// Store is a fixed-capacity ring: once full, each append evicts the oldest entry.
type Store struct {
	mu   sync.RWMutex
	buf  []domain.CheckResult
	head int // index of the oldest entry
	size int
}

func New(capacity int) *Store {
	if capacity < 1 {
		capacity = domain.ServerLogCapacity
	}
	return &Store{buf: make([]domain.CheckResult, capacity)}
}

func (s *Store) Append(e domain.CheckResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(e)
}

func (s *Store) appendLocked(e domain.CheckResult) {
	c := len(s.buf)
	if s.size < c {
		s.buf[(s.head+s.size)%c] = e
		s.size++
		return
	}
	s.buf[s.head] = e
	s.head = (s.head + 1) % c
}

// List returns the entries oldest-first.
func (s *Store) List() []domain.CheckResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CheckResult, s.size)
	for i := 0; i < s.size; i++ {
		out[i] = s.buf[(s.head+i)%len(s.buf)]
	}
	return out
}

// Export returns a detached copy suitable for serialization.
func (s *Store) Export() []domain.CheckResult {
	return s.List()
}

// Restore appends persisted entries in order; only the newest Cap() survive.
func (s *Store) Restore(entries []domain.CheckResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.appendLocked(e)
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *Store) Cap() int { return len(s.buf) }

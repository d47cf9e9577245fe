// Package file persists snapshots as a single JSON document.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

var (
	_ repo.SnapshotStore = (*Store)(nil)
	_ repo.Quarantiner   = (*Store)(nil)
)

type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Save writes to a temp file in the same directory and renames it over the
// target, so readers never observe a partial snapshot.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(normalize(snap), "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return normalize(domain.Snapshot{}), nil
	}
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("%w %s: %w", repo.ErrCorruptSnapshot, s.path, err)
	}
	return normalize(snap), nil
}

// Quarantine moves the current snapshot aside as <path>.corrupt-<UTC stamp> so
// the next Save cannot overwrite it. It returns the new path, or "" when there
// was no file to move.
func (s *Store) Quarantine() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dst := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().UTC().Format("20060102T150405Z"))
	if err := os.Rename(s.path, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("quarantine snapshot: %w", err)
	}
	return dst, nil
}

// normalize keeps the on-disk layout {"targets":[],"logs":[]} instead of nulls.
func normalize(s domain.Snapshot) domain.Snapshot {
	if s.Targets == nil {
		s.Targets = []domain.Target{}
	}
	if s.Logs == nil {
		s.Logs = []domain.CheckResult{}
	}
	return s
}

// Package sqlite persists snapshots in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

var _ repo.SnapshotStore = (*Store)(nil)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS targets (
		position INTEGER NOT NULL,
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		interval_seconds INTEGER NOT NULL,
		last_checked_at TEXT,
		last_status TEXT NOT NULL DEFAULT '',
		notify_on_change INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS results (
		seq INTEGER PRIMARY KEY,
		target_id TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL,
		checked_at TEXT NOT NULL,
		status TEXT NOT NULL,
		http_code INTEGER NOT NULL,
		latency_ms REAL NOT NULL,
		manual INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT ''
	);`,
}

type Store struct {
	db *sql.DB
}

// Open creates the database file if needed and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

// New wraps an already migrated database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func Migrate(db *sql.DB) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM targets`); err != nil {
		return fmt.Errorf("clear targets: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM results`); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}

	insTarget, err := tx.PrepareContext(ctx, `INSERT INTO targets
		(position, id, url, interval_seconds, last_checked_at, last_status, notify_on_change, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare targets: %w", err)
	}
	defer insTarget.Close()
	for i, t := range snap.Targets {
		var checked sql.NullString
		if t.LastCheckedAt != nil {
			checked = sql.NullString{String: formatTime(*t.LastCheckedAt), Valid: true}
		}
		if _, err := insTarget.ExecContext(ctx, i, string(t.ID), t.URL, t.IntervalSeconds,
			checked, string(t.LastStatus), t.NotifyOnChange, formatTime(t.CreatedAt)); err != nil {
			return fmt.Errorf("insert target %s: %w", t.ID, err)
		}
	}

	insResult, err := tx.PrepareContext(ctx, `INSERT INTO results
		(seq, target_id, url, checked_at, status, http_code, latency_ms, manual, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare results: %w", err)
	}
	defer insResult.Close()
	for i, r := range snap.Logs {
		if _, err := insResult.ExecContext(ctx, i, string(r.TargetID), r.URL, formatTime(r.CheckedAt),
			string(r.Status), r.HTTPCode, r.LatencyMS, r.Manual, r.Reason); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	snap := domain.Snapshot{Targets: []domain.Target{}, Logs: []domain.CheckResult{}}

	rows, err := s.db.QueryContext(ctx, `SELECT id, url, interval_seconds, last_checked_at, last_status, notify_on_change, created_at
		FROM targets ORDER BY position`)
	if err != nil {
		return snap, fmt.Errorf("list targets: %w", err)
	}
	for rows.Next() {
		var (
			t                  domain.Target
			id, status, create string
			checked            sql.NullString
		)
		if err := rows.Scan(&id, &t.URL, &t.IntervalSeconds, &checked, &status, &t.NotifyOnChange, &create); err != nil {
			rows.Close()
			return snap, fmt.Errorf("scan target: %w", err)
		}
		t.ID = domain.TargetID(id)
		t.LastStatus = domain.Status(status)
		if t.CreatedAt, err = parseTime(create); err != nil {
			rows.Close()
			return snap, err
		}
		if checked.Valid {
			at, err := parseTime(checked.String)
			if err != nil {
				rows.Close()
				return snap, err
			}
			t.LastCheckedAt = &at
		}
		snap.Targets = append(snap.Targets, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("list targets: %w", err)
	}

	rows, err = s.db.QueryContext(ctx, `SELECT target_id, url, checked_at, status, http_code, latency_ms, manual, reason
		FROM results ORDER BY seq`)
	if err != nil {
		return snap, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r                         domain.CheckResult
			targetID, checked, status string
		)
		if err := rows.Scan(&targetID, &r.URL, &checked, &status, &r.HTTPCode, &r.LatencyMS, &r.Manual, &r.Reason); err != nil {
			return snap, fmt.Errorf("scan result: %w", err)
		}
		r.TargetID = domain.TargetID(targetID)
		r.Status = domain.Status(status)
		if r.CheckedAt, err = parseTime(checked); err != nil {
			return snap, err
		}
		snap.Logs = append(snap.Logs, r)
	}
	return snap, rows.Err()
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

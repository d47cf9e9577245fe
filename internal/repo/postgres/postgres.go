package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/repo"
)

var _ repo.SnapshotStore = (*Store)(nil)

// Schema holds the snapshot tables. position and seq keep registry and log order.
const Schema = `
CREATE TABLE IF NOT EXISTS targets (
  position         INTEGER     NOT NULL,
  id               TEXT        PRIMARY KEY,
  url              TEXT        NOT NULL UNIQUE,
  interval_seconds INTEGER     NOT NULL,
  last_checked_at  TIMESTAMPTZ NULL,
  last_status      TEXT        NOT NULL DEFAULT '',
  notify_on_change BOOLEAN     NOT NULL DEFAULT TRUE,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS results (
  seq         BIGINT           NOT NULL,
  target_id   TEXT             NOT NULL DEFAULT '',
  url         TEXT             NOT NULL,
  checked_at  TIMESTAMPTZ      NOT NULL,
  status      TEXT             NOT NULL,
  http_code   INTEGER          NOT NULL,
  latency_ms  DOUBLE PRECISION NOT NULL,
  manual      BOOLEAN          NOT NULL,
  reason      TEXT             NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_results_seq ON results (seq);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Save replaces both tables inside one transaction.
func (s *Store) Save(ctx context.Context, snap domain.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `TRUNCATE targets, results`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	targetRows := make([][]any, 0, len(snap.Targets))
	for i, t := range snap.Targets {
		targetRows = append(targetRows, []any{
			i, string(t.ID), t.URL, t.IntervalSeconds, t.LastCheckedAt,
			string(t.LastStatus), t.NotifyOnChange, t.CreatedAt,
		})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"targets"},
		[]string{"position", "id", "url", "interval_seconds", "last_checked_at", "last_status", "notify_on_change", "created_at"},
		pgx.CopyFromRows(targetRows)); err != nil {
		return fmt.Errorf("copy targets: %w", err)
	}

	resultRows := make([][]any, 0, len(snap.Logs))
	for i, r := range snap.Logs {
		resultRows = append(resultRows, []any{
			int64(i), string(r.TargetID), r.URL, r.CheckedAt, string(r.Status),
			r.HTTPCode, r.LatencyMS, r.Manual, r.Reason,
		})
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"results"},
		[]string{"seq", "target_id", "url", "checked_at", "status", "http_code", "latency_ms", "manual", "reason"},
		pgx.CopyFromRows(resultRows)); err != nil {
		return fmt.Errorf("copy results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.log.Debug("pg_snapshot_saved", zap.Int("targets", len(snap.Targets)), zap.Int("logs", len(snap.Logs)))
	return nil
}

func (s *Store) Load(ctx context.Context) (domain.Snapshot, error) {
	snap := domain.Snapshot{Targets: []domain.Target{}, Logs: []domain.CheckResult{}}

	rows, err := s.pool.Query(ctx, `
SELECT id, url, interval_seconds, last_checked_at, last_status, notify_on_change, created_at
  FROM targets
 ORDER BY position`)
	if err != nil {
		return snap, fmt.Errorf("list targets: %w", err)
	}
	for rows.Next() {
		var (
			t      domain.Target
			id     string
			status string
		)
		if err := rows.Scan(&id, &t.URL, &t.IntervalSeconds, &t.LastCheckedAt, &status, &t.NotifyOnChange, &t.CreatedAt); err != nil {
			rows.Close()
			return snap, fmt.Errorf("scan target: %w", err)
		}
		t.ID = domain.TargetID(id)
		t.LastStatus = domain.Status(status)
		snap.Targets = append(snap.Targets, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("list targets: %w", err)
	}

	rows, err = s.pool.Query(ctx, `
SELECT target_id, url, checked_at, status, http_code, latency_ms, manual, reason
  FROM results
 ORDER BY seq`)
	if err != nil {
		return snap, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r        domain.CheckResult
			targetID string
			status   string
		)
		if err := rows.Scan(&targetID, &r.URL, &r.CheckedAt, &status, &r.HTTPCode, &r.LatencyMS, &r.Manual, &r.Reason); err != nil {
			return snap, fmt.Errorf("scan result: %w", err)
		}
		r.TargetID = domain.TargetID(targetID)
		r.Status = domain.Status(status)
		snap.Logs = append(snap.Logs, r)
	}
	return snap, rows.Err()
}

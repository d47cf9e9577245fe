package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/sitewatch/internal/domain"
	"github.com/hamed0406/sitewatch/internal/metrics"
	"github.com/hamed0406/sitewatch/internal/repo"
)

const saveTimeout = 10 * time.Second

// persister writes snapshots in the background. Requests made while a write
// is running collapse into a single follow-up write.
type persister struct {
	store    repo.SnapshotStore
	snapshot func() domain.Snapshot
	logger   *zap.Logger

	kick chan struct{}
	quit chan struct{}
	done chan struct{}
}

func newPersister(store repo.SnapshotStore, snapshot func() domain.Snapshot, logger *zap.Logger) *persister {
	p := &persister{
		store:    store,
		snapshot: snapshot,
		logger:   logger,
		kick:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

// Request never blocks.
func (p *persister) Request() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *persister) run() {
	defer close(p.done)
	for {
		select {
		case <-p.quit:
			return
		case <-p.kick:
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			_ = p.flush(ctx)
			cancel()
		}
	}
}

// flush failures are retried by the next Request; in-memory state is untouched.
func (p *persister) flush(ctx context.Context) error {
	snap := p.snapshot()
	if err := p.store.Save(ctx, snap); err != nil {
		metrics.PersistFailures.Inc()
		p.logger.Warn("persist_failed",
			zap.Int("targets", len(snap.Targets)),
			zap.Int("logs", len(snap.Logs)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Close stops the background loop and writes one final snapshot.
func (p *persister) Close(ctx context.Context) error {
	close(p.quit)
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.flush(ctx)
}

package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// SnapshotStore is the persistence gateway for targets and logs. Each Save
// replaces the whole stored snapshot atomically. Load returns an empty snapshot
// when nothing has been stored yet.
type SnapshotStore interface {
	Save(ctx context.Context, s domain.Snapshot) error
	Load(ctx context.Context) (domain.Snapshot, error)
}

// ErrCorruptSnapshot marks a stored snapshot that exists but cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// Quarantiner is implemented by stores that can move an unreadable snapshot
// aside. It returns where the snapshot went, or "" if there was nothing to move.
type Quarantiner interface {
	Quarantine() (string, error)
}

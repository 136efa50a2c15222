package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("snapshot not found")

// Record is one stored session snapshot. Data is the raw snapshot JSON; decoding
// and migration are up to the caller.
type Record struct {
	ID        uuid.UUID
	Data      []byte
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SnapshotStore persists one snapshot per session. Save bumps the version counter.
// Implementations: SQLStore (postgres, sqlite, mysql) and MongoStore.
type SnapshotStore interface {
	Create(ctx context.Context, data []byte) (*Record, error)
	Load(ctx context.Context, id uuid.UUID) (*Record, error)
	Save(ctx context.Context, id uuid.UUID, data []byte) error
	Delete(ctx context.Context, id uuid.UUID) error
	// PruneBefore deletes every snapshot last updated before cutoff.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}

func newRecord(data []byte) *Record {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &Record{
		ID:        uuid.New(),
		Data:      data,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

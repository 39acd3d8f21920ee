package repository

import (
	"context"
	"time"

	"github.com/ca-srg/relaunch/domain/entity"
)

// HistoryRepository stores finished scheduler cycles
type HistoryRepository interface {
	// Save stores a record and sets its ID
	Save(ctx context.Context, record *entity.CycleRecord) error

	// Recent returns up to limit records, newest first
	Recent(ctx context.Context, limit int) ([]*entity.CycleRecord, error)

	// CountByResult returns how many cycles ended with each result since the given time
	CountByResult(ctx context.Context, since time.Time) (map[entity.CycleResult]int, error)

	// Prune deletes records that finished before the given time
	Prune(ctx context.Context, before time.Time) (int64, error)

	// Close releases the underlying store
	Close() error
}

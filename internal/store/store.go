// Package store defines the record store contract and the row codec shared
// by its backends.
package store

import (
	"context"
	"time"

	"github.com/corpusd/corpusd/internal/domain"
)

// Store is the persistence contract for paragraph records. Backends hold one
// current row per reference: Insert replaces an existing row with the same
// reference.
type Store interface {
	Insert(ctx context.Context, rec domain.Record) error
	List(ctx context.Context) ([]domain.Record, error)
	Delete(ctx context.Context, reference string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// ReadinessWaiter is implemented by backends that need to wait for an
// external server at startup.
type ReadinessWaiter interface {
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

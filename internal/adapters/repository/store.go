// Package repository holds the published gradebook snapshot and its
// leaderboard view.
package repository

import (
	"context"

	"github.com/okian/gradebook/internal/domain/query"
	"github.com/okian/gradebook/internal/domain/types"
)

// Store provides single-writer publishing and lock-free reads of the
// current snapshot.
type Store interface {
	// Publish replaces the current snapshot. Readers holding the previous
	// one keep a consistent view.
	Publish(ctx context.Context, snap *query.Snapshot) error

	// Current returns the latest snapshot or ErrNoSnapshot.
	Current(ctx context.Context) (*query.Snapshot, error)

	// Rank returns the leaderboard entry of the student named name.
	// Returns ErrNotFound if the student is unknown.
	Rank(ctx context.Context, name string) (types.Entry, error)

	// TopN returns the top-N entries ordered by average desc.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of students in the current snapshot.
	Count(ctx context.Context) int
}

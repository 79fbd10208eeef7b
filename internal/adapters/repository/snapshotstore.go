package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/gradebook/internal/domain/query"
	"github.com/okian/gradebook/internal/domain/types"
	"github.com/okian/gradebook/pkg/metrics"
)

const defaultHistorySize = 16

// RunInfo describes one published snapshot.
type RunInfo struct {
	ID          string    `json:"id"`
	PublishedAt time.Time `json:"published_at"`
	Records     int       `json:"records"`
	Scholars    int       `json:"scholars"`
}

// state is what readers see; it is never mutated after Store.
type state struct {
	snap        *query.Snapshot
	leaderboard []types.Entry // rank order
}

// SnapshotStore is the in-memory Store implementation.
type SnapshotStore struct {
	current atomic.Pointer[state]

	mu          sync.Mutex // serializes writers
	history     []RunInfo  // oldest first
	historySize int
	metrics     bool
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore(opts ...Option) *SnapshotStore {
	s := &SnapshotStore{historySize: defaultHistorySize, metrics: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Publish implements Store.
func (s *SnapshotStore) Publish(ctx context.Context, snap *query.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("publish: %w", ErrNoSnapshot)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	board := types.Entries(snap.Records())
	sort.SliceStable(board, func(i, j int) bool { return board[i].Rank < board[j].Rank })
	scholars := 0
	for _, e := range board {
		if e.Scholarship {
			scholars++
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.Store(&state{snap: snap, leaderboard: board})
	s.history = append(s.history, RunInfo{
		ID:          snap.ID(),
		PublishedAt: snap.PublishedAt(),
		Records:     snap.Len(),
		Scholars:    scholars,
	})
	if len(s.history) > s.historySize {
		s.history = append([]RunInfo(nil), s.history[len(s.history)-s.historySize:]...)
	}
	if s.metrics {
		metrics.UpdateSnapshot(snap.Len(), scholars, snap.PublishedAt().Unix())
	}
	return nil
}

// Current implements Store.
func (s *SnapshotStore) Current(_ context.Context) (*query.Snapshot, error) {
	st := s.current.Load()
	if st == nil {
		return nil, ErrNoSnapshot
	}
	return st.snap, nil
}

// Rank implements Store.
func (s *SnapshotStore) Rank(_ context.Context, name string) (types.Entry, error) {
	st := s.current.Load()
	if st == nil {
		return types.Entry{}, ErrNoSnapshot
	}
	r, ok := st.snap.FindExact(name)
	if !ok {
		return types.Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return types.EntryFrom(r), nil
}

// TopN implements Store.
func (s *SnapshotStore) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	st := s.current.Load()
	if st == nil {
		return nil, ErrNoSnapshot
	}
	if n > len(st.leaderboard) {
		n = len(st.leaderboard)
	}
	out := make([]types.Entry, n)
	copy(out, st.leaderboard[:n])
	return out, nil
}

// Count implements Store.
func (s *SnapshotStore) Count(_ context.Context) int {
	st := s.current.Load()
	if st == nil {
		return 0
	}
	return st.snap.Len()
}

// History returns the most recent runs, oldest first.
func (s *SnapshotStore) History() []RunInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RunInfo(nil), s.history...)
}

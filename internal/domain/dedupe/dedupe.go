package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen keys so that only the first occurrence is kept.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Size returns the number of distinct keys recorded.
	Size() int64

	// Reset forgets every recorded key.
	Reset()
}

type inMemoryDeduper struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	size  atomic.Int64
	keyFn func(string) string
	hint  int
}

// NewInMemoryDeduper creates an unbounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		keyFn: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, d.hint)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	k := d.keyFn(key)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[k]; ok {
		return true
	}
	d.seen[k] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

func (d *inMemoryDeduper) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]struct{}, d.hint)
	d.size.Store(0)
}

// KeepFirst returns the items whose key was not seen before, in order, and
// the items dropped as duplicates.
func KeepFirst[T any](ctx context.Context, d Deduper, items []T, key func(T) string) (kept, dropped []T) {
	kept = make([]T, 0, len(items))
	for _, it := range items {
		if d.SeenAndRecord(ctx, key(it)) {
			dropped = append(dropped, it)
			continue
		}
		kept = append(kept, it)
	}
	return kept, dropped
}

package repository

// Option applies a configuration option to the SnapshotStore.
type Option func(*SnapshotStore)

// WithHistory sets how many past runs the store remembers.
func WithHistory(n int) Option {
	return func(s *SnapshotStore) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithMetrics toggles publishing snapshot gauges on every Publish.
func WithMetrics(enabled bool) Option {
	return func(s *SnapshotStore) { s.metrics = enabled }
}

// Package dedupe tracks keys that were already seen during a pipeline run.
package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithKeyFunc canonicalizes keys before they are compared. The default
// compares keys exactly.
func WithKeyFunc(fn func(string) string) Option {
	return func(d *inMemoryDeduper) {
		if fn != nil {
			d.keyFn = fn
		}
	}
}

// WithCapacityHint presizes the seen set.
func WithCapacityHint(n int) Option {
	return func(d *inMemoryDeduper) {
		if n > 0 {
			d.hint = n
		}
	}
}

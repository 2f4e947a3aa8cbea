// Package cache memoizes per-entry extraction results between scans.
//
// Caching is a pure latency optimization: every implementation must be
// safe to swap for [Noop] without changing scan results. Entries are
// keyed by (source id, absolute path) and validated by a size+mtime
// signature, so a stale or partially written cache can only cause
// re-extraction, never a wrong count.
package cache

// Entry is one memoized extraction result.
type Entry struct {
	// Signature identifies the file state the extraction was computed
	// from. An entry whose signature no longer matches the file on disk
	// is ignored.
	Signature string

	// Chart is the extracted chart number. Zero when HasChart is false.
	Chart int

	// HasChart reports whether the entry name yielded a valid chart
	// number. A false value is itself worth caching: it saves re-running
	// the pattern on names that never match.
	HasChart bool
}

// Store is the cache consulted and refreshed by the directory scanner.
//
// Implementations must be safe for concurrent use by scans of different
// sources. Lookups and writes for distinct source ids must not contend
// on a single lock.
type Store interface {
	// Get returns the entry for path within the source's namespace.
	Get(sourceID, path string) (Entry, bool)

	// Put records the entry for path within the source's namespace.
	// The write may be buffered until Flush.
	Put(sourceID, path string, e Entry)

	// Flush persists buffered writes. A failed flush loses nothing but
	// the optimization.
	Flush() error

	// Close flushes and releases resources.
	Close() error
}

// Noop is the degraded-mode store: every Get misses and writes go
// nowhere. Used when caching is disabled or the cache file is unusable.
type Noop struct{}

// NewNoop returns a no-op store.
func NewNoop() *Noop { return &Noop{} }

// Get always misses.
func (*Noop) Get(string, string) (Entry, bool) { return Entry{}, false }

// Put discards the entry.
func (*Noop) Put(string, string, Entry) {}

// Flush does nothing.
func (*Noop) Flush() error { return nil }

// Close does nothing.
func (*Noop) Close() error { return nil }

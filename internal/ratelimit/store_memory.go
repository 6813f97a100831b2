package ratelimit

import (
	"context"
	"sync"
	"time"
)

// window is one fixed window's counter for a single key.
type window struct {
	start time.Time
	count int64
}

// MemoryStore is a process-local Store: a map of per-key windows guarded by
// a mutex. Stale entries are evicted opportunistically after a threshold of
// lookups so memory stays bounded without a background sweeper.
//
// This store is safe for concurrent use.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window

	lookups uint64
}

// NewMemoryStore returns an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window)}
}

// Incr implements Store. The increment happens under the store mutex, so
// concurrent callers on the same key never lose an update.
func (s *MemoryStore) Incr(_ context.Context, key string, dur time.Duration, now time.Time) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Opportunistic GC before touching the requested key, so an expired
	// entry can be dropped even when it is the one being fetched.
	s.lookups++
	if s.lookups >= 5000 {
		for k, w := range s.windows {
			if now.Sub(w.start) >= dur {
				delete(s.windows, k)
			}
		}
		s.lookups = 0
	}

	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= dur {
		// New window, or the old one elapsed: lazy reset.
		w = &window{start: now}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.start.Add(dur), nil
}

// Len reports the number of tracked keys. Exposed for tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

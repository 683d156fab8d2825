// Package store holds the in-memory logs owned by the hub.
//
// Log is a goroutine-safe, append-mostly ring. With a positive capacity it
// keeps the newest entries and evicts the oldest on overflow; with capacity 0
// it grows without bound, doubling its backing array like a growable buffer.
// Entries are stored by value so callers only ever see copies; in-place
// mutation goes through Update while the write lock is held.
package store

import "sync"

const initialCapacity = 64

// Log is a bounded (or unbounded) insertion-ordered log of T.
type Log[T any] struct {
	mu       sync.RWMutex
	buf      []T
	head     int // index of the oldest entry
	count    int
	capacity int // 0 means unbounded
	evicted  int64
}

// NewLog creates a log retaining at most capacity entries. A capacity of 0
// disables eviction.
func NewLog[T any](capacity int) *Log[T] {
	if capacity < 0 {
		capacity = 0
	}
	size := capacity
	if size == 0 || size > initialCapacity {
		size = initialCapacity
	}
	return &Log[T]{
		buf:      make([]T, size),
		capacity: capacity,
	}
}

// Append adds item as the newest entry. It reports whether an older entry
// was evicted to make room.
func (l *Log[T]) Append(item T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count == len(l.buf) {
		if l.capacity == 0 || len(l.buf) < l.capacity {
			l.grow()
		} else {
			// Full at capacity: overwrite the oldest slot.
			l.buf[l.head] = item
			l.head = (l.head + 1) % len(l.buf)
			l.evicted++
			return true
		}
	}

	l.buf[(l.head+l.count)%len(l.buf)] = item
	l.count++
	return false
}

// grow doubles the backing array, capped at capacity when bounded.
// Must be called with the write lock held.
func (l *Log[T]) grow() {
	newSize := len(l.buf) * 2
	if newSize == 0 {
		newSize = initialCapacity
	}
	if l.capacity > 0 && newSize > l.capacity {
		newSize = l.capacity
	}
	next := make([]T, newSize)
	for i := 0; i < l.count; i++ {
		next[i] = l.buf[(l.head+i)%len(l.buf)]
	}
	l.buf = next
	l.head = 0
}

// Update applies mutate to the first entry, oldest first, for which match
// returns true. It reports whether an entry matched.
func (l *Log[T]) Update(match func(T) bool, mutate func(*T)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := 0; i < l.count; i++ {
		idx := (l.head + i) % len(l.buf)
		if match(l.buf[idx]) {
			mutate(&l.buf[idx])
			return true
		}
	}
	return false
}

// Find returns a copy of the first entry, oldest first, matching match.
func (l *Log[T]) Find(match func(T) bool) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := 0; i < l.count; i++ {
		item := l.buf[(l.head+i)%len(l.buf)]
		if match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Filter returns copies of every entry matching match, in insertion order.
// A nil match returns every entry.
func (l *Log[T]) Filter(match func(T) bool) []T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]T, 0, l.count)
	for i := 0; i < l.count; i++ {
		item := l.buf[(l.head+i)%len(l.buf)]
		if match == nil || match(item) {
			out = append(out, item)
		}
	}
	return out
}

// Snapshot returns a copy of every entry in insertion order.
func (l *Log[T]) Snapshot() []T {
	return l.Filter(nil)
}

// Len returns the number of retained entries.
func (l *Log[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// Evicted returns how many entries have been dropped by the retention limit.
func (l *Log[T]) Evicted() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.evicted
}

// Capacity returns the retention limit, 0 meaning unbounded.
func (l *Log[T]) Capacity() int {
	return l.capacity
}

package streampuffer

import (
	"sync"
	"sync/atomic"

	"github.com/DA1F/RoAnalyzer/internal/errors"
)

// Ring is a fixed-capacity FIFO that evicts its oldest element to make room.
// Each Ring has its own lock; readers only hold it while copying.
type Ring[T any] struct {
	mu   sync.RWMutex
	buf  []T
	head int // index of the oldest element
	size int

	pushes    atomic.Uint64
	evictions atomic.Uint64
}

// NewRing returns an empty ring holding at most capacity elements.
func NewRing[T any](capacity int) (*Ring[T], error) {
	if capacity < 1 {
		return nil, errors.Newf("ring capacity must be at least 1, got %d", capacity).
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("capacity", capacity).
			Build()
	}
	return &Ring[T]{buf: make([]T, capacity)}, nil
}

// Push appends v, evicting the oldest element first when full. It reports
// whether an element was evicted.
func (r *Ring[T]) Push(v T) (evicted bool) {
	r.mu.Lock()
	if r.size == len(r.buf) {
		var zero T
		r.buf[r.head] = zero
		r.head = (r.head + 1) % len(r.buf)
		r.size--
		evicted = true
	}
	r.buf[(r.head+r.size)%len(r.buf)] = v
	r.size++
	r.mu.Unlock()

	r.pushes.Add(1)
	if evicted {
		r.evictions.Add(1)
	}
	return evicted
}

// Snapshot copies the contents oldest first. Element values are copied;
// slices inside them are shared.
func (r *Ring[T]) Snapshot() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]T, r.size)
	n := copy(out, r.buf[r.head:min(r.head+r.size, len(r.buf))])
	copy(out[n:], r.buf[:r.size-n])
	return out
}

// Ends returns the oldest and newest elements.
func (r *Ring[T]) Ends() (first, last T, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		return first, last, false
	}
	return r.buf[r.head], r.buf[(r.head+r.size-1)%len(r.buf)], true
}

// Len returns the number of retained elements.
func (r *Ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Pushes returns the number of Push calls since creation.
func (r *Ring[T]) Pushes() uint64 { return r.pushes.Load() }

// Evictions returns the number of elements dropped to make room.
func (r *Ring[T]) Evictions() uint64 { return r.evictions.Load() }

// Reset drops all elements. Counters are kept.
func (r *Ring[T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.buf)
	r.head, r.size = 0, 0
}

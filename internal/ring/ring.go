package ring

import (
	"sync/atomic"

	"main/pkg/exception"
)

// Ring is a bounded single-producer/single-consumer queue of small copyable
// values. Exactly one goroutine may call TryPush and exactly one may call
// TryPop over the ring's lifetime.
//
// Field layout keeps the consumer-owned position, the producer-owned
// position, and each side's cached copy of the opposite position on separate
// cache lines. On the fast path the producer touches only its own line: it
// re-reads the authoritative read position only when the cached copy makes
// the ring look full, so steady-state pushes generate no cross-core
// coherence traffic. The pop side mirrors this.
type Ring[T any] struct {
	read        atomic.Uint64
	cachedWrite uint64
	_           [48]byte

	write      atomic.Uint64
	cachedRead uint64
	_          [48]byte

	buf  []T
	mask uint64
}

// New allocates a ring. Capacity must be a power of two so the position
// masks replace modulo arithmetic.
func New[T any](capacity int) (*Ring[T], error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, exception.ErrRingCapacity
	}
	return &Ring[T]{
		buf:  make([]T, capacity),
		mask: uint64(capacity - 1),
	}, nil
}

// TryPush enqueues v, returning false when the ring is full.
func (r *Ring[T]) TryPush(v T) bool {
	w := r.write.Load()
	if w-r.cachedRead > r.mask {
		r.cachedRead = r.read.Load()
		if w-r.cachedRead > r.mask {
			return false
		}
	}
	r.buf[w&r.mask] = v
	r.write.Store(w + 1)
	return true
}

// TryPop dequeues one value, returning false when the ring is empty.
func (r *Ring[T]) TryPop() (T, bool) {
	var zero T
	rd := r.read.Load()
	if rd == r.cachedWrite {
		r.cachedWrite = r.write.Load()
		if rd == r.cachedWrite {
			return zero, false
		}
	}
	v := r.buf[rd&r.mask]
	r.read.Store(rd + 1)
	return v, true
}

// Len reports the approximate number of queued values. It reads both
// authoritative positions and is only weakly consistent; use it for stats,
// not for correctness decisions.
func (r *Ring[T]) Len() int {
	return int(r.write.Load() - r.read.Load())
}

// IsEmpty reports whether the ring appears empty.
func (r *Ring[T]) IsEmpty() bool {
	return r.Len() == 0
}

// Capacity returns the fixed ring capacity.
func (r *Ring[T]) Capacity() int {
	return len(r.buf)
}

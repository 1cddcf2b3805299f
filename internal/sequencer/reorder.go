package sequencer

import (
	"main/internal/obs"
	"main/internal/pool"
	"main/internal/wire"
)

// reorderBuffer parks future-dated packets until their predecessors arrive.
// Storage comes from a typed slab pool; the buffer never allocates after
// construction. A min-heap over the buffered sequences makes the three
// operations the sequencer needs cheap: is-the-head-buffered, take-head,
// and evict-lowest on overflow.
type reorderBuffer struct {
	capacity int
	entries  map[uint64]*PacketBuf
	heap     []uint64
	slab     *pool.Pool[PacketBuf]
	metrics  *obs.Metrics
}

func newReorderBuffer(capacity int, metrics *obs.Metrics) *reorderBuffer {
	return &reorderBuffer{
		capacity: capacity,
		entries:  make(map[uint64]*PacketBuf, capacity),
		heap:     make([]uint64, 0, capacity),
		slab:     pool.New[PacketBuf](capacity),
		metrics:  metrics,
	}
}

func (b *reorderBuffer) len() int {
	return len(b.entries)
}

// put copies data into a pooled slot keyed by seq. Returns false when the
// packet was not buffered (already present, oversized, or the slab is dry).
func (b *reorderBuffer) put(seq uint64, data []byte) bool {
	if _, exists := b.entries[seq]; exists {
		return false
	}
	if len(data) > wire.MaxPacketSize {
		return false
	}
	if len(b.entries) >= b.capacity {
		b.evictLowest()
	}
	buf, ok := b.slab.Acquire()
	if !ok {
		b.metrics.IncPoolExhausted()
		return false
	}
	buf.N = copy(buf.B[:], data)
	b.entries[seq] = buf
	b.push(seq)
	return true
}

// take removes and returns the entry for seq if it is the lowest buffered
// sequence. The caller must hand the slot back through release.
func (b *reorderBuffer) take(seq uint64) (*PacketBuf, bool) {
	if len(b.heap) == 0 || b.heap[0] != seq {
		return nil, false
	}
	buf, ok := b.entries[seq]
	if !ok {
		return nil, false
	}
	b.pop()
	delete(b.entries, seq)
	return buf, true
}

func (b *reorderBuffer) release(buf *PacketBuf) {
	b.slab.Release(buf)
}

func (b *reorderBuffer) evictLowest() {
	if len(b.heap) == 0 {
		return
	}
	seq := b.heap[0]
	b.pop()
	if buf, ok := b.entries[seq]; ok {
		delete(b.entries, seq)
		b.slab.Release(buf)
	}
	b.metrics.IncDroppedOverflow()
}

func (b *reorderBuffer) clear() {
	for seq, buf := range b.entries {
		delete(b.entries, seq)
		b.slab.Release(buf)
	}
	b.heap = b.heap[:0]
}

func (b *reorderBuffer) push(seq uint64) {
	b.heap = append(b.heap, seq)
	i := len(b.heap) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if b.heap[parent] <= b.heap[i] {
			break
		}
		b.heap[parent], b.heap[i] = b.heap[i], b.heap[parent]
		i = parent
	}
}

func (b *reorderBuffer) pop() {
	last := len(b.heap) - 1
	b.heap[0] = b.heap[last]
	b.heap = b.heap[:last]
	i := 0
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < len(b.heap) && b.heap[left] < b.heap[smallest] {
			smallest = left
		}
		if right < len(b.heap) && b.heap[right] < b.heap[smallest] {
			smallest = right
		}
		if smallest == i {
			return
		}
		b.heap[i], b.heap[smallest] = b.heap[smallest], b.heap[i]
		i = smallest
	}
}

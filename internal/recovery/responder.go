package recovery

import (
	"context"
	"time"

	"github.com/yanun0323/logs"
)

// History keeps copies of the most recently sent packets keyed by sequence
// so a responder can replay them. Generator-side only; the ingest core never
// touches it.
type History struct {
	capacity int
	packets  map[uint64][]byte
	order    []uint64
	head     int
	count    int
}

// NewHistory creates a history window over the last capacity packets.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{
		capacity: capacity,
		packets:  make(map[uint64][]byte, capacity),
		order:    make([]uint64, capacity),
	}
}

// Record stores a copy of the packet under seq, evicting the oldest entry
// once the window is full.
func (h *History) Record(seq uint64, packet []byte) {
	if _, exists := h.packets[seq]; exists {
		return
	}
	if h.count == h.capacity {
		oldest := h.order[h.head]
		delete(h.packets, oldest)
		h.order[h.head] = seq
		h.head = (h.head + 1) % h.capacity
	} else {
		h.order[(h.head+h.count)%h.capacity] = seq
		h.count++
	}
	cp := make([]byte, len(packet))
	copy(cp, packet)
	h.packets[seq] = cp
}

// Lookup returns the recorded packet for seq.
func (h *History) Lookup(seq uint64) ([]byte, bool) {
	p, ok := h.packets[seq]
	return p, ok
}

// Len returns the number of recorded packets.
func (h *History) Len() int {
	return h.count
}

// Receiver is the datagram primitive the responder polls for requests.
type Receiver interface {
	Recv(buf []byte) (n int, wouldBlock bool, err error)
}

// Responder answers retransmission requests from history. It lives on the
// generator side of the test rig and stands in for an exchange's recovery
// service: requested ranges are replayed onto the primary feed, where the
// sequencer's gap-fill path picks them up.
type Responder struct {
	in      Receiver
	out     Sender
	history *History
}

// NewResponder wires a responder over its request source and replay sink.
func NewResponder(in Receiver, out Sender, history *History) *Responder {
	return &Responder{in: in, out: out, history: history}
}

// Run polls for requests until the context is done or the receiver reports
// an error. It is not latency sensitive and sleeps between empty polls.
func (r *Responder) Run(ctx context.Context) {
	buf := make([]byte, 64)
	for {
		if ctx.Err() != nil {
			return
		}
		n, wouldBlock, err := r.in.Recv(buf)
		if err != nil {
			logs.Errorf("recovery responder recv, err: %+v", err)
			return
		}
		if wouldBlock {
			time.Sleep(time.Millisecond)
			continue
		}
		req, err := DecodeRequest(buf[:n])
		if err != nil {
			continue
		}
		r.handle(req)
	}
}

func (r *Responder) handle(req Request) {
	switch req.Kind {
	case KindRetransmit:
		replayed := 0
		for seq := req.StartSeq; seq <= req.EndSeq; seq++ {
			packet, ok := r.history.Lookup(seq)
			if !ok {
				continue
			}
			if err := r.out.Send(packet); err != nil {
				logs.Errorf("replay seq %d, err: %+v", seq, err)
				return
			}
			replayed++
		}
		logs.Infof("replayed %d of %d requested packets", replayed, req.EndSeq-req.StartSeq+1)
	case KindSnapshot:
		// Snapshot delivery is a separate service in production; the test
		// rig only acknowledges the request in the log.
		logs.Warnf("snapshot requested")
	}
}

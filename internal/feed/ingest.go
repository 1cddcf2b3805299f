package feed

import (
	"runtime"
	"time"

	"github.com/yanun0323/logs"

	"main/internal/clock"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/pool"
	"main/internal/ring"
	"main/internal/sequencer"
	"main/internal/wire"
	"main/pkg/exception"
)

// Transport is the non-blocking datagram receive primitive the ingest loop
// polls. Multicast setup and socket tuning belong to the collaborator that
// built it.
type Transport interface {
	Recv(buf []byte) (n int, wouldBlock bool, err error)
}

// DefaultMaintenanceInterval paces the sequencer's gap-timeout sweep.
const DefaultMaintenanceInterval = 100 * time.Millisecond

// IngestConfig carries the ingest thread's startup constants.
type IngestConfig struct {
	Core                int
	MaintenanceInterval time.Duration
}

// Ingest is the producer half of the pipeline: it busy-polls the transport,
// timestamps arrivals, drives the sequencer, and publishes normalized
// events to the ring. All sequencer state is confined to this thread.
type Ingest struct {
	cfg       IngestConfig
	transport Transport
	seq       *sequencer.Manager
	events    *ring.Ring[model.MarketEvent]
	slab      *pool.Pool[model.MarketEvent]
	metrics   *obs.Metrics
	run       *obs.RunFlag

	buf       [wire.MaxPacketSize]byte
	lastMaint int64
}

// NewIngest wires the ingest loop.
func NewIngest(
	cfg IngestConfig,
	transport Transport,
	seq *sequencer.Manager,
	events *ring.Ring[model.MarketEvent],
	slab *pool.Pool[model.MarketEvent],
	metrics *obs.Metrics,
	run *obs.RunFlag,
) (*Ingest, error) {
	if transport == nil || seq == nil || events == nil || slab == nil || metrics == nil || run == nil {
		return nil, exception.ErrNilInstance
	}
	if cfg.MaintenanceInterval <= 0 {
		cfg.MaintenanceInterval = DefaultMaintenanceInterval
	}
	return &Ingest{
		cfg:       cfg,
		transport: transport,
		seq:       seq,
		events:    events,
		slab:      slab,
		metrics:   metrics,
		run:       run,
	}, nil
}

// Run pins the current goroutine to its core and spins until the run flag
// clears. It never blocks and never returns an error: every failure inside
// the loop is counted and survived.
func (in *Ingest) Run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	ring.SetAffinity(in.cfg.Core)

	logs.Infof("ingest loop started on core %d", in.cfg.Core)
	in.lastMaint = clock.Now()

	for in.run.IsRunning() {
		in.step()
	}

	logs.Info("ingest loop stopped")
}

// step executes one loop iteration: maintenance, one receive attempt, and
// any resequencing the arrival unlocked.
func (in *Ingest) step() {
	now := clock.Now()
	if now-in.lastMaint >= int64(in.cfg.MaintenanceInterval) {
		in.seq.Maintenance(now)
		in.lastMaint = now
	}

	n, wouldBlock, err := in.transport.Recv(in.buf[:])
	if err != nil {
		logs.Errorf("transport recv, err: %+v", err)
		return
	}
	if wouldBlock {
		ring.Relax()
		return
	}

	arrival := clock.Now()
	in.metrics.IncReceived()

	if n < wire.HeaderSize {
		in.metrics.IncShortPackets()
		return
	}

	data := in.buf[:n]
	seq, _ := wire.Sequence(data)

	if in.seq.Process(seq, data, arrival) == sequencer.ResultDeliver {
		in.publish(data, arrival)
	}
	in.seq.Drain(func(_ uint64, buffered []byte) {
		in.publish(buffered, arrival)
	})
}

// publish normalizes one deliverable packet and pushes the event through
// the ring. The event is staged in a pool slot; when the slab is dry the
// event is built on the stack instead, which costs locality but never a
// packet.
func (in *Ingest) publish(data []byte, arrivalTsNano int64) {
	ev, ok := in.slab.Acquire()
	if !ok {
		in.metrics.IncPoolExhausted()
		var stack model.MarketEvent
		ev = &stack
	} else {
		defer in.slab.Release(ev)
	}

	if !normalize(data, arrivalTsNano, ev) {
		if h, err := wire.ParseHeader(data); err == nil && h.Kind != enum.MessageKindHeartbeat {
			in.metrics.IncUnknownKinds()
		}
		return
	}

	if !in.events.TryPush(*ev) {
		// The consumer is not keeping up. Blocking here would stall the
		// whole feed, so the event is lost and counted.
		in.metrics.IncDropped()
		return
	}
	in.metrics.IncProcessed()
	in.metrics.ObserveIngest(time.Duration(clock.Now() - arrivalTsNano))
}

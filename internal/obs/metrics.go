package obs

import (
	"sync/atomic"
	"time"
)

// Metrics collects the pipeline counters. Writers use relaxed-style atomic
// adds from the hot loops; readers may snapshot from any goroutine. The
// counters are advisory and never used for synchronization.
type Metrics struct {
	packetsReceived  uint64
	packetsProcessed uint64
	packetsDropped   uint64
	duplicates       uint64
	gapsDetected     uint64
	gapsFilled       uint64
	gapRequests      uint64
	outOfOrder       uint64
	resequenced      uint64
	droppedOverflow  uint64
	staleDrops       uint64
	shortPackets     uint64
	unknownKinds     uint64
	poolExhausted    uint64
	archiveDrops     uint64

	nextExpected uint64
	feedState    uint32

	tickToTrade LatencyStats
	ingest      LatencyStats
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	PacketsReceived  uint64
	PacketsProcessed uint64
	PacketsDropped   uint64
	Duplicates       uint64
	GapsDetected     uint64
	GapsFilled       uint64
	GapRequests      uint64
	OutOfOrder       uint64
	Resequenced      uint64
	DroppedOverflow  uint64
	StaleDrops       uint64
	ShortPackets     uint64
	UnknownKinds     uint64
	PoolExhausted    uint64
	ArchiveDrops     uint64
	NextExpected     uint64
	FeedState        uint32
	TickToTrade      LatencySnapshot
	Ingest           LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncReceived()        { atomic.AddUint64(&m.packetsReceived, 1) }
func (m *Metrics) IncProcessed()       { atomic.AddUint64(&m.packetsProcessed, 1) }
func (m *Metrics) IncDropped()         { atomic.AddUint64(&m.packetsDropped, 1) }
func (m *Metrics) IncDuplicates()      { atomic.AddUint64(&m.duplicates, 1) }
func (m *Metrics) IncGapsDetected()    { atomic.AddUint64(&m.gapsDetected, 1) }
func (m *Metrics) IncGapsFilled()      { atomic.AddUint64(&m.gapsFilled, 1) }
func (m *Metrics) IncGapRequests()     { atomic.AddUint64(&m.gapRequests, 1) }
func (m *Metrics) IncOutOfOrder()      { atomic.AddUint64(&m.outOfOrder, 1) }
func (m *Metrics) IncResequenced()     { atomic.AddUint64(&m.resequenced, 1) }
func (m *Metrics) IncDroppedOverflow() { atomic.AddUint64(&m.droppedOverflow, 1) }
func (m *Metrics) IncStaleDrops()      { atomic.AddUint64(&m.staleDrops, 1) }
func (m *Metrics) IncShortPackets()    { atomic.AddUint64(&m.shortPackets, 1) }
func (m *Metrics) IncUnknownKinds()    { atomic.AddUint64(&m.unknownKinds, 1) }
func (m *Metrics) IncPoolExhausted()   { atomic.AddUint64(&m.poolExhausted, 1) }
func (m *Metrics) IncArchiveDrops()    { atomic.AddUint64(&m.archiveDrops, 1) }

// SetNextExpected publishes the sequencer's head position for observers.
func (m *Metrics) SetNextExpected(seq uint64) {
	atomic.StoreUint64(&m.nextExpected, seq)
}

// SetFeedState publishes the sequencer's state for observers.
func (m *Metrics) SetFeedState(state uint32) {
	atomic.StoreUint32(&m.feedState, state)
}

// FeedState returns the last published feed state.
func (m *Metrics) FeedState() uint32 {
	return atomic.LoadUint32(&m.feedState)
}

// ObserveTickToTrade records one end-to-end latency sample.
func (m *Metrics) ObserveTickToTrade(d time.Duration) {
	m.tickToTrade.Observe(d)
}

// ObserveIngest records one receive-to-publish latency sample.
func (m *Metrics) ObserveIngest(d time.Duration) {
	m.ingest.Observe(d)
}

// GetSnapshot returns a copy of the current counter values.
func (m *Metrics) GetSnapshot() Snapshot {
	return Snapshot{
		PacketsReceived:  atomic.LoadUint64(&m.packetsReceived),
		PacketsProcessed: atomic.LoadUint64(&m.packetsProcessed),
		PacketsDropped:   atomic.LoadUint64(&m.packetsDropped),
		Duplicates:       atomic.LoadUint64(&m.duplicates),
		GapsDetected:     atomic.LoadUint64(&m.gapsDetected),
		GapsFilled:       atomic.LoadUint64(&m.gapsFilled),
		GapRequests:      atomic.LoadUint64(&m.gapRequests),
		OutOfOrder:       atomic.LoadUint64(&m.outOfOrder),
		Resequenced:      atomic.LoadUint64(&m.resequenced),
		DroppedOverflow:  atomic.LoadUint64(&m.droppedOverflow),
		StaleDrops:       atomic.LoadUint64(&m.staleDrops),
		ShortPackets:     atomic.LoadUint64(&m.shortPackets),
		UnknownKinds:     atomic.LoadUint64(&m.unknownKinds),
		PoolExhausted:    atomic.LoadUint64(&m.poolExhausted),
		ArchiveDrops:     atomic.LoadUint64(&m.archiveDrops),
		NextExpected:     atomic.LoadUint64(&m.nextExpected),
		FeedState:        atomic.LoadUint32(&m.feedState),
		TickToTrade:      m.tickToTrade.Snapshot(),
		Ingest:           m.ingest.Snapshot(),
	}
}

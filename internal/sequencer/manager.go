package sequencer

import (
	"time"

	"main/internal/obs"
	"main/internal/wire"
)

// Defaults for the sequencing constants. The reorder capacity deliberately
// matches MaxGap: an acceptable gap must fit in the buffer.
const (
	DefaultMaxGap          = 1000
	DefaultReorderCapacity = 1000
	DefaultDuplicateWindow = 10000
	DefaultGapTimeout      = time.Second
	DefaultMaxRetries      = 3
)

// PacketBuf is the pool slot type used to park raw out-of-order packets.
type PacketBuf struct {
	N int
	B [wire.MaxPacketSize]byte
}

// Config carries the startup-fixed sequencing constants.
type Config struct {
	MaxGap          uint64
	ReorderCapacity int
	DuplicateWindow int
	GapTimeout      time.Duration
	MaxRetries      uint8
}

func (c Config) withDefaults() Config {
	if c.MaxGap == 0 {
		c.MaxGap = DefaultMaxGap
	}
	if c.ReorderCapacity <= 0 {
		c.ReorderCapacity = DefaultReorderCapacity
	}
	if c.DuplicateWindow <= 0 {
		c.DuplicateWindow = DefaultDuplicateWindow
	}
	if c.GapTimeout <= 0 {
		c.GapTimeout = DefaultGapTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

// Manager is the packet sequencing state machine: duplicate filtering, gap
// detection, out-of-order buffering, resequencing, and recovery
// orchestration. It is confined to the ingest thread; only the stats it
// publishes through obs.Metrics are shared.
type Manager struct {
	cfg Config

	state        FeedState
	nextExpected uint64
	highestSeen  uint64

	window  *dupWindow
	reorder *reorderBuffer
	pending []GapFillRequest

	metrics *obs.Metrics
	onGap   func(GapFillRequest)
	onStale func()
}

// NewManager creates a sequencer. The gap callback is invoked with every
// gap-fill request and retry; the stale callback fires on each transition
// into the stale state so the collaborator can request a snapshot. Either
// may be nil.
func NewManager(cfg Config, metrics *obs.Metrics, onGap func(GapFillRequest), onStale func()) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:     cfg,
		window:  newDupWindow(cfg.DuplicateWindow),
		reorder: newReorderBuffer(cfg.ReorderCapacity, metrics),
		pending: make([]GapFillRequest, 0, 8),
		metrics: metrics,
		onGap:   onGap,
		onStale: onStale,
	}
	m.publish()
	return m
}

// State returns the current feed state.
func (m *Manager) State() FeedState {
	return m.state
}

// NextExpected returns the sequence the manager will deliver next.
func (m *Manager) NextExpected() uint64 {
	return m.nextExpected
}

// HighestSeen returns the largest sequence observed so far.
func (m *Manager) HighestSeen() uint64 {
	return m.highestSeen
}

// PendingGaps returns the number of outstanding gap-fill requests.
func (m *Manager) PendingGaps() int {
	return len(m.pending)
}

// ReorderLen returns the number of buffered out-of-order packets.
func (m *Manager) ReorderLen() int {
	return m.reorder.len()
}

// Process runs the per-packet algorithm. data is the raw packet for
// buffering; tsNano is the arrival timestamp used for gap-request aging.
func (m *Manager) Process(seq uint64, data []byte, tsNano int64) Result {
	if seq > m.highestSeen {
		m.highestSeen = seq
	}

	if m.window.contains(seq) {
		m.metrics.IncDuplicates()
		return ResultDrop
	}
	m.window.insert(seq)

	switch m.state {
	case FeedStateInitial:
		m.nextExpected = seq + 1
		m.setState(FeedStateLive)
		m.publish()
		return ResultDeliver

	case FeedStateLive:
		return m.processLive(seq, data, tsNano)

	case FeedStateRecovering:
		return m.processRecovering(seq, data)

	case FeedStateStale:
		m.metrics.IncStaleDrops()
		return ResultDrop
	}
	return ResultDrop
}

func (m *Manager) processLive(seq uint64, data []byte, tsNano int64) Result {
	switch {
	case seq == m.nextExpected:
		m.advance()
		return ResultDeliver

	case seq < m.nextExpected:
		// Already past this position. The duplicate window should have
		// caught it; drop regardless.
		return ResultDrop

	default:
		gap := seq - m.nextExpected
		m.metrics.IncGapsDetected()

		if gap > m.cfg.MaxGap {
			m.toStale()
			return ResultDrop
		}

		req := GapFillRequest{
			StartSeq:      m.nextExpected,
			EndSeq:        seq - 1,
			RequestTsNano: tsNano,
		}
		m.pending = append(m.pending, req)
		m.emitGapRequest(req)

		m.bufferPacket(seq, data)
		m.setState(FeedStateRecovering)
		return ResultBuffered
	}
}

func (m *Manager) processRecovering(seq uint64, data []byte) Result {
	switch {
	case seq == m.nextExpected:
		m.advance()
		return ResultDeliver

	case seq > m.nextExpected:
		m.bufferPacket(seq, data)
		return ResultBuffered

	default:
		// Behind the head: a gap-fill arrival. Deliverable only if a
		// pending request owns it.
		for i := range m.pending {
			req := m.pending[i]
			if seq >= req.StartSeq && seq <= req.EndSeq {
				if seq == req.EndSeq {
					m.closeRequest(i)
				}
				return ResultDeliver
			}
		}
		return ResultDrop
	}
}

// Drain extracts consecutive buffered packets starting at the head. emit is
// called once per ready packet, in sequence order; the bytes are only valid
// for the duration of the call.
func (m *Manager) Drain(emit func(seq uint64, data []byte)) {
	for {
		buf, ok := m.reorder.take(m.nextExpected)
		if !ok {
			return
		}
		seq := m.nextExpected
		m.metrics.IncResequenced()
		m.advance()
		if emit != nil {
			emit(seq, buf.B[:buf.N])
		}
		m.reorder.release(buf)
	}
}

// ProcessGapFill closes the pending request matching the satisfied range.
// Calling it again for the same range has no effect.
func (m *Manager) ProcessGapFill(startSeq, endSeq uint64) {
	for i := range m.pending {
		if m.pending[i].StartSeq == startSeq && m.pending[i].EndSeq == endSeq {
			m.closeRequest(i)
			return
		}
	}
}

// Maintenance ages pending gap requests. Requests older than the timeout are
// retried until the retry budget runs out, then the feed goes stale.
func (m *Manager) Maintenance(nowNano int64) {
	if m.state != FeedStateRecovering {
		return
	}
	for i := range m.pending {
		req := &m.pending[i]
		if nowNano-req.RequestTsNano <= int64(m.cfg.GapTimeout) {
			continue
		}
		if req.RetryCount < m.cfg.MaxRetries {
			req.RetryCount++
			req.RequestTsNano = nowNano
			m.emitGapRequest(*req)
			continue
		}
		m.toStale()
		return
	}
}

// TriggerResync resets the machine to the initial state, dropping every
// buffered packet, pending request, and the duplicate window. Used after a
// snapshot has been applied externally. Idempotent.
func (m *Manager) TriggerResync() {
	m.setState(FeedStateInitial)
	m.nextExpected = 0
	m.reorder.clear()
	m.pending = m.pending[:0]
	m.window.clear()
	m.publish()
}

// advance moves the head forward one sequence and closes any request the
// head has now passed. A closed last request promotes the feed back to live.
func (m *Manager) advance() {
	m.nextExpected++
	for i := 0; i < len(m.pending); {
		if m.pending[i].EndSeq < m.nextExpected {
			m.closeRequest(i)
			continue
		}
		i++
	}
	m.publish()
}

func (m *Manager) closeRequest(i int) {
	m.pending = append(m.pending[:i], m.pending[i+1:]...)
	m.metrics.IncGapsFilled()
	if m.state == FeedStateRecovering && len(m.pending) == 0 {
		m.setState(FeedStateLive)
	}
}

func (m *Manager) bufferPacket(seq uint64, data []byte) {
	if len(data) == 0 {
		return
	}
	if m.reorder.put(seq, data) {
		m.metrics.IncOutOfOrder()
	}
}

func (m *Manager) emitGapRequest(req GapFillRequest) {
	m.metrics.IncGapRequests()
	if m.onGap != nil {
		m.onGap(req)
	}
}

func (m *Manager) toStale() {
	if m.state == FeedStateStale {
		return
	}
	m.setState(FeedStateStale)
	if m.onStale != nil {
		m.onStale()
	}
}

func (m *Manager) setState(s FeedState) {
	m.state = s
	m.metrics.SetFeedState(uint32(s))
}

func (m *Manager) publish() {
	m.metrics.SetNextExpected(m.nextExpected)
	m.metrics.SetFeedState(uint32(m.state))
}

package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/pool"
	"main/internal/ring"
	"main/internal/sequencer"
	"main/internal/wire"
)

type scriptTransport struct {
	packets [][]byte
}

func (t *scriptTransport) Recv(buf []byte) (int, bool, error) {
	if len(t.packets) == 0 {
		return 0, true, nil
	}
	n := copy(buf, t.packets[0])
	t.packets = t.packets[1:]
	return n, false, nil
}

type rig struct {
	ingest    *Ingest
	events    *ring.Ring[model.MarketEvent]
	metrics   *obs.Metrics
	transport *scriptTransport
}

func newRig(t *testing.T, ringSize int, packets ...[]byte) *rig {
	t.Helper()
	metrics := obs.NewMetrics()
	events, err := ring.New[model.MarketEvent](ringSize)
	require.NoError(t, err)

	seq := sequencer.NewManager(sequencer.Config{}, metrics, nil, nil)
	slab := pool.New[model.MarketEvent](16)
	transport := &scriptTransport{packets: packets}

	ingest, err := NewIngest(IngestConfig{}, transport, seq, events, slab, metrics, obs.NewRunFlag())
	require.NoError(t, err)
	return &rig{ingest: ingest, events: events, metrics: metrics, transport: transport}
}

func (r *rig) pump() {
	for len(r.transport.packets) > 0 {
		r.ingest.step()
	}
	r.ingest.step() // one idle spin for good measure
}

func (r *rig) drainSequences() []uint64 {
	var seqs []uint64
	for {
		ev, ok := r.events.TryPop()
		if !ok {
			return seqs
		}
		seqs = append(seqs, ev.Sequence)
	}
}

func tradePacket(seq uint64) []byte {
	return wire.EncodeTrade(nil, seq, wire.Trade{
		SourceTsNano: 1000 + seq,
		SequenceEcho: seq,
		SymbolID:     7,
		TradeID:      uint32(seq),
		PriceFixed:   1_500_000,
		Quantity:     100,
		Side:         model.SideBuy,
	})
}

func quotePacket(seq uint64) []byte {
	return wire.EncodeQuote(nil, seq, wire.Quote{
		SourceTsNano: 1000 + seq,
		SymbolID:     7,
		BidPrice:     1_499_900,
		AskPrice:     1_500_100,
		BidSize:      10,
		AskSize:      12,
		Depth:        1,
	})
}

func TestIngestDeliversInOrderAcrossGap(t *testing.T) {
	r := newRig(t, 16,
		tradePacket(1), tradePacket(2), tradePacket(5),
		tradePacket(3), tradePacket(4), quotePacket(6),
	)
	r.pump()

	require.Equal(t, []uint64{1, 2, 3, 4, 5, 6}, r.drainSequences())

	snap := r.metrics.GetSnapshot()
	assert.EqualValues(t, 6, snap.PacketsReceived)
	assert.EqualValues(t, 6, snap.PacketsProcessed)
	assert.EqualValues(t, 1, snap.GapsDetected)
	assert.EqualValues(t, 1, snap.GapsFilled)
	assert.EqualValues(t, 1, snap.Resequenced)
	assert.EqualValues(t, uint32(sequencer.FeedStateLive), snap.FeedState)
}

func TestIngestAbsorbsHeartbeats(t *testing.T) {
	r := newRig(t, 16,
		tradePacket(1),
		wire.EncodeHeartbeat(nil, 2),
		tradePacket(3),
	)
	r.pump()

	require.Equal(t, []uint64{1, 3}, r.drainSequences())

	snap := r.metrics.GetSnapshot()
	assert.EqualValues(t, 0, snap.GapsDetected, "heartbeat must advance the sequence")
	assert.EqualValues(t, 2, snap.PacketsProcessed)
	assert.EqualValues(t, 0, snap.UnknownKinds)
}

func TestIngestCountsShortAndUnknownPackets(t *testing.T) {
	bogus := tradePacket(2)
	bogus[0] = 0x7E // unknown kind

	r := newRig(t, 16, tradePacket(1), []byte{0x01, 0x02}, bogus)
	r.pump()

	require.Equal(t, []uint64{1}, r.drainSequences())

	snap := r.metrics.GetSnapshot()
	assert.EqualValues(t, 1, snap.ShortPackets)
	assert.EqualValues(t, 1, snap.UnknownKinds)
}

func TestIngestDropsOnFullRing(t *testing.T) {
	r := newRig(t, 2, tradePacket(1), tradePacket(2), tradePacket(3), tradePacket(4))
	r.pump()

	require.Equal(t, []uint64{1, 2}, r.drainSequences())

	snap := r.metrics.GetSnapshot()
	assert.EqualValues(t, 2, snap.PacketsDropped)
	assert.EqualValues(t, 2, snap.PacketsProcessed)
}

func TestNormalizePayloads(t *testing.T) {
	var ev model.MarketEvent
	require.True(t, normalize(tradePacket(9), 555, &ev))
	assert.Equal(t, enum.MessageKindTrade, ev.Kind)
	assert.EqualValues(t, 9, ev.Sequence)
	assert.EqualValues(t, 555, ev.RecvTsNano)
	assert.EqualValues(t, 1009, ev.SourceTsNano)
	assert.EqualValues(t, 1_500_000, ev.Trade.Price)
	assert.Equal(t, model.SideBuy, ev.Trade.Side)

	require.True(t, normalize(quotePacket(10), 556, &ev))
	assert.Equal(t, enum.MessageKindQuote, ev.Kind)
	assert.EqualValues(t, 1_499_900, ev.Quote.BidPrice)
	assert.EqualValues(t, 12, ev.Quote.AskSize)

	require.False(t, normalize(wire.EncodeHeartbeat(nil, 11), 557, &ev))
}

type recordingHandler struct {
	seqs []uint64
}

func (h *recordingHandler) OnMarketEvent(ev model.MarketEvent) {
	h.seqs = append(h.seqs, ev.Sequence)
}

func TestConsumerDispatchesAndMeasures(t *testing.T) {
	metrics := obs.NewMetrics()
	events, err := ring.New[model.MarketEvent](8)
	require.NoError(t, err)

	handler := &recordingHandler{}
	consumer, err := NewConsumer(ConsumerConfig{}, events, handler, metrics, obs.NewRunFlag())
	require.NoError(t, err)

	for seq := uint64(1); seq <= 3; seq++ {
		events.TryPush(model.MarketEvent{Sequence: seq, RecvTsNano: 1})
	}
	for i := 0; i < 5; i++ {
		consumer.step()
	}

	require.Equal(t, []uint64{1, 2, 3}, handler.seqs)
	assert.EqualValues(t, 3, metrics.GetSnapshot().TickToTrade.Count)
}

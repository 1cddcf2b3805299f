package mdg

import (
	"fmt"
	"math/rand"

	"main/internal/chaos"
	"main/internal/model"
	"main/internal/schema"
	"main/internal/wire"
)

// Config shapes the synthetic feed.
type Config struct {
	// BasePrice and Spread are fixed-point values at the wire scale.
	BasePrice int64
	Spread    int64
	BaseSize  int64
	// QuoteEvery interleaves one quote per N packets; 0 disables quotes.
	QuoteEvery int
	// HeartbeatEvery interleaves heartbeats the same way; 0 disables them.
	HeartbeatEvery int
	// Jitter bounds the random price walk around BasePrice, in ticks.
	Jitter int64
	Seed   int64
}

// Stats counts what the generator actually emitted.
type Stats struct {
	PacketsBuilt   uint64
	GapsInjected   uint64
	DuplicatesSent uint64
	Reordered      uint64
	Heartbeats     uint64
}

// Generator builds sequenced feed packets over the registry's symbols and
// runs them through the chaos engine so the ingest side has gaps,
// duplicates, and reordering to chew on.
type Generator struct {
	cfg     Config
	symbols []schema.Symbol
	faults  *chaos.Engine
	rng     *rand.Rand

	seq   uint64
	index int
	count uint64

	last    []byte
	held    []byte
	hasHeld bool

	stats Stats
}

// NewGenerator creates a generator for all symbols in the registry.
func NewGenerator(reg *schema.Registry, cfg Config, faults *chaos.Engine) (*Generator, error) {
	if reg == nil || reg.SymbolCount() == 0 {
		return nil, fmt.Errorf("registry has no symbols")
	}
	if faults == nil {
		return nil, fmt.Errorf("chaos engine is nil")
	}
	symbols := make([]schema.Symbol, 0, reg.SymbolCount())
	for i := 0; i < reg.SymbolCount(); i++ {
		if symbol, ok := reg.SymbolAt(i); ok {
			symbols = append(symbols, symbol)
		}
	}
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = 150 * wire.PriceScale
	}
	if cfg.BaseSize <= 0 {
		cfg.BaseSize = 100
	}
	if cfg.Spread < 0 {
		cfg.Spread = 0
	}
	if cfg.Jitter <= 0 {
		cfg.Jitter = wire.PriceScale
	}
	if cfg.Seed == 0 {
		cfg.Seed = faults.Seed()
	}
	return &Generator{
		cfg:     cfg,
		symbols: symbols,
		faults:  faults,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		seq:     1,
	}, nil
}

// Next produces the packets to transmit this tick, zero or more depending
// on the fault roll. Returned slices are owned by the caller.
func (g *Generator) Next(nowNano int64) [][]byte {
	switch g.faults.Roll() {
	case chaos.AnomalyGap:
		skipped := uint64(g.faults.GapSize())
		g.seq += skipped
		g.stats.GapsInjected++
		return [][]byte{g.build(nowNano)}

	case chaos.AnomalyDuplicate:
		if g.last != nil {
			g.stats.DuplicatesSent++
			dup := make([]byte, len(g.last))
			copy(dup, g.last)
			return [][]byte{dup}
		}
		return [][]byte{g.build(nowNano)}

	case chaos.AnomalyReorder:
		if !g.hasHeld {
			// Hold this packet; it goes out after a later one.
			g.held = g.build(nowNano)
			g.hasHeld = true
			return nil
		}
		g.hasHeld = false
		g.stats.Reordered++
		return [][]byte{g.build(nowNano), g.held}

	default:
		packets := [][]byte{g.build(nowNano)}
		if g.hasHeld {
			g.hasHeld = false
			g.stats.Reordered++
			packets = append(packets, g.held)
		}
		return packets
	}
}

// Flush returns any held packet at end of run.
func (g *Generator) Flush() [][]byte {
	if !g.hasHeld {
		return nil
	}
	g.hasHeld = false
	return [][]byte{g.held}
}

// GetStats returns the emission counters.
func (g *Generator) GetStats() Stats {
	return g.stats
}

// Sequence returns the next sequence to be assigned.
func (g *Generator) Sequence() uint64 {
	return g.seq
}

func (g *Generator) build(nowNano int64) []byte {
	seq := g.seq
	g.seq++
	g.count++
	g.stats.PacketsBuilt++

	if g.cfg.HeartbeatEvery > 0 && g.count%uint64(g.cfg.HeartbeatEvery) == 0 {
		g.stats.Heartbeats++
		packet := wire.EncodeHeartbeat(nil, seq)
		g.last = packet
		return packet
	}

	symbol := g.symbols[g.index]
	g.index = (g.index + 1) % len(g.symbols)

	price := uint64(g.cfg.BasePrice + g.rng.Int63n(2*g.cfg.Jitter+1) - g.cfg.Jitter)
	size := uint32(g.cfg.BaseSize + g.rng.Int63n(g.cfg.BaseSize*10+1))

	var packet []byte
	if g.cfg.QuoteEvery > 0 && g.count%uint64(g.cfg.QuoteEvery) == 0 {
		packet = wire.EncodeQuote(nil, seq, wire.Quote{
			SourceTsNano: uint64(nowNano),
			SequenceEcho: seq,
			SymbolID:     uint32(symbol.ID),
			BidPrice:     price - uint64(g.cfg.Spread),
			AskPrice:     price + uint64(g.cfg.Spread),
			BidSize:      size,
			AskSize:      size,
			Depth:        1,
		})
	} else {
		side := model.SideBuy
		if g.rng.Intn(2) == 1 {
			side = model.SideSell
		}
		packet = wire.EncodeTrade(nil, seq, wire.Trade{
			SourceTsNano: uint64(nowNano),
			SequenceEcho: seq,
			SymbolID:     uint32(symbol.ID),
			TradeID:      uint32(seq),
			PriceFixed:   price,
			Quantity:     size,
			Side:         side,
		})
	}
	g.last = packet
	return packet
}

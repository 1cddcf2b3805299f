package model

import "main/internal/model/enum"

// Side markers carried on trade payloads.
const (
	SideBuy  byte = 'B'
	SideSell byte = 'S'
)

// TradeData is the trade-specific slice of a market event.
type TradeData struct {
	Price    uint64
	Quantity uint32
	TradeID  uint32
	Side     byte
}

// QuoteData is the quote-specific slice of a market event.
type QuoteData struct {
	BidPrice uint64
	AskPrice uint64
	BidSize  uint32
	AskSize  uint32
	Depth    uint8
}

// MarketEvent is the normalized, consumer-facing record handed across the
// ring. It is a flat value type so the ring can copy it without indirection.
// Trade is valid when Kind is trade-like, Quote when Kind is quote.
type MarketEvent struct {
	RecvTsNano   int64
	SourceTsNano int64
	Sequence     uint64
	SymbolID     uint32
	Kind         enum.MessageKind
	Trade        TradeData
	Quote        QuoteData
}

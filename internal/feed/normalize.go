package feed

import (
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/wire"
)

// normalize maps a raw packet into a consumer-facing event. The second
// return is false for packets that produce no event: heartbeats, unknown
// kinds, and truncated payloads. The packet-header sequence is
// authoritative; the echo inside the payload is ignored.
func normalize(data []byte, arrivalTsNano int64, out *model.MarketEvent) bool {
	h, err := wire.ParseHeader(data)
	if err != nil {
		return false
	}

	switch h.Kind {
	case enum.MessageKindTrade, enum.MessageKindOrderAdd,
		enum.MessageKindOrderDelete, enum.MessageKindOrderModify:
		t, err := wire.ParseTrade(data)
		if err != nil {
			return false
		}
		*out = model.MarketEvent{
			RecvTsNano:   arrivalTsNano,
			SourceTsNano: int64(t.SourceTsNano),
			Sequence:     h.Sequence,
			SymbolID:     t.SymbolID,
			Kind:         h.Kind,
			Trade: model.TradeData{
				Price:    t.PriceFixed,
				Quantity: t.Quantity,
				TradeID:  t.TradeID,
				Side:     t.Side,
			},
		}
		return true

	case enum.MessageKindQuote:
		q, err := wire.ParseQuote(data)
		if err != nil {
			return false
		}
		*out = model.MarketEvent{
			RecvTsNano:   arrivalTsNano,
			SourceTsNano: int64(q.SourceTsNano),
			Sequence:     h.Sequence,
			SymbolID:     q.SymbolID,
			Kind:         h.Kind,
			Quote: model.QuoteData{
				BidPrice: q.BidPrice,
				AskPrice: q.AskPrice,
				BidSize:  q.BidSize,
				AskSize:  q.AskSize,
				Depth:    q.Depth,
			},
		}
		return true

	default:
		// Heartbeats are absorbed after sequencing; anything else is noise.
		return false
	}
}

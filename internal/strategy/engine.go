package strategy

import (
	"main/internal/model"
	"main/internal/model/enum"
)

// Engine is a minimal strategy endpoint: it keeps a last-quote view of the
// market and flags one-sided size as pressure. It exists to terminate the
// pipeline with realistic per-event work; it places no orders.
type Engine struct {
	largeTradeQty uint32

	lastBid uint64
	lastAsk uint64

	events  uint64
	signals uint64
}

// NewEngine creates an engine that treats buy-side trades at or above
// largeTradeQty as pressure signals; sell-side trades never signal.
func NewEngine(largeTradeQty uint32) *Engine {
	if largeTradeQty == 0 {
		largeTradeQty = 10_000
	}
	return &Engine{largeTradeQty: largeTradeQty}
}

// OnMarketEvent dispatches one normalized event.
func (e *Engine) OnMarketEvent(ev model.MarketEvent) {
	e.events++
	switch ev.Kind {
	case enum.MessageKindTrade:
		// Large prints on the buy side hint at buying pressure.
		if ev.Trade.Side == model.SideBuy && ev.Trade.Quantity >= e.largeTradeQty {
			e.signals++
		}
	case enum.MessageKindQuote:
		e.lastBid = ev.Quote.BidPrice
		e.lastAsk = ev.Quote.AskPrice
	}
}

// Events returns the number of events seen.
func (e *Engine) Events() uint64 {
	return e.events
}

// Signals returns the number of pressure signals flagged.
func (e *Engine) Signals() uint64 {
	return e.signals
}

// TopOfBook returns the last observed bid and ask.
func (e *Engine) TopOfBook() (bid, ask uint64) {
	return e.lastBid, e.lastAsk
}

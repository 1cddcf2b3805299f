package strategy

import (
	"testing"

	"main/internal/model"
	"main/internal/model/enum"
)

func TestQuoteUpdatesTopOfBook(t *testing.T) {
	e := NewEngine(0)
	e.OnMarketEvent(model.MarketEvent{
		Kind:  enum.MessageKindQuote,
		Quote: model.QuoteData{BidPrice: 100, AskPrice: 102},
	})

	bid, ask := e.TopOfBook()
	if bid != 100 || ask != 102 {
		t.Fatalf("top of book: got %d/%d", bid, ask)
	}
	if e.Events() != 1 {
		t.Fatalf("events: got %d", e.Events())
	}
}

func TestLargeBuySignals(t *testing.T) {
	e := NewEngine(500)

	e.OnMarketEvent(model.MarketEvent{
		Kind:  enum.MessageKindTrade,
		Trade: model.TradeData{Side: model.SideBuy, Quantity: 499},
	})
	e.OnMarketEvent(model.MarketEvent{
		Kind:  enum.MessageKindTrade,
		Trade: model.TradeData{Side: model.SideBuy, Quantity: 500},
	})
	e.OnMarketEvent(model.MarketEvent{
		Kind:  enum.MessageKindTrade,
		Trade: model.TradeData{Side: model.SideSell, Quantity: 9000},
	})

	if e.Signals() != 1 {
		t.Fatalf("signals: got %d want 1", e.Signals())
	}
}

package replay

import (
	"testing"

	"github.com/uhyunpark/quotesim/pkg/market"
)

func bookRec(ts int64, instruments ...market.Instrument) BookRecord {
	books := map[market.Instrument]*market.Book{}
	for _, in := range instruments {
		books[in] = &market.Book{
			BuyOrders:  map[float64]int64{10: 1},
			SellOrders: map[float64]int64{11: -1},
		}
	}
	return BookRecord{Timestamp: ts, Books: books}
}

func tradeRec(ts int64, in market.Instrument) TradeRecord {
	return TradeRecord{
		Timestamp: ts,
		Trades: map[market.Instrument][]market.Trade{
			in: {{Instrument: in, Price: 10.5, Qty: 1}},
		},
	}
}

func TestBuildTimeline(t *testing.T) {
	books := []BookRecord{
		bookRec(100, "AMETHYSTS", "STARFRUIT"),
		bookRec(200, "AMETHYSTS"),
		bookRec(300, "AMETHYSTS"),
	}
	trades := []TradeRecord{
		tradeRec(50, "AMETHYSTS"),  // no matching book timestamp: dropped
		tradeRec(200, "AMETHYSTS"), // matches tick 2
		tradeRec(250, "STARFRUIT"), // dropped, must not block tick 3's match
		tradeRec(300, "AMETHYSTS"),
	}

	timeline, err := BuildTimeline(books, trades)
	if err != nil {
		t.Fatalf("BuildTimeline: %v", err)
	}
	if len(timeline) != 3 {
		t.Fatalf("got %d ticks, want 3", len(timeline))
	}

	if len(timeline[0].MarketTrades) != 0 {
		t.Errorf("tick 100 has trades %v, want none", timeline[0].MarketTrades)
	}
	if len(timeline[1].TradesFor("AMETHYSTS")) != 1 {
		t.Errorf("tick 200 missing its matched trades")
	}
	if len(timeline[2].TradesFor("AMETHYSTS")) != 1 {
		t.Errorf("tick 300 missing its matched trades")
	}
	if len(timeline[0].Books) != 2 || len(timeline[1].Books) != 1 {
		t.Errorf("books not carried through per tick")
	}
}

func TestBuildTimelineRejectsUnordered(t *testing.T) {
	books := []BookRecord{bookRec(200, "AMETHYSTS"), bookRec(100, "AMETHYSTS")}
	if _, err := BuildTimeline(books, nil); err == nil {
		t.Fatal("expected error for out-of-order book records")
	}
}

func TestBuildTimelineNoTrades(t *testing.T) {
	timeline, err := BuildTimeline([]BookRecord{bookRec(100, "AMETHYSTS")}, nil)
	if err != nil {
		t.Fatalf("BuildTimeline: %v", err)
	}
	if timeline[0].MarketTrades == nil {
		t.Fatal("trade map must be empty, not nil")
	}
}

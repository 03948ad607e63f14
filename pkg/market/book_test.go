package market

import "testing"

func TestMidPrice(t *testing.T) {
	tests := []struct {
		name    string
		bids    map[float64]int64
		asks    map[float64]int64
		want    float64
		defined bool
	}{
		{
			name:    "both sides",
			bids:    map[float64]int64{10: 5, 9: 3},
			asks:    map[float64]int64{11: -4, 12: -2},
			want:    10.5,
			defined: true,
		},
		{
			name:    "bid only",
			bids:    map[float64]int64{10: 5},
			asks:    map[float64]int64{},
			want:    10,
			defined: true,
		},
		{
			name:    "ask only",
			bids:    map[float64]int64{},
			asks:    map[float64]int64{11: -4},
			want:    11,
			defined: true,
		},
		{
			name:    "empty book is undefined, not zero",
			bids:    map[float64]int64{},
			asks:    map[float64]int64{},
			defined: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := &Book{BuyOrders: tt.bids, SellOrders: tt.asks}
			mid, ok := book.MidPrice()
			if ok != tt.defined {
				t.Fatalf("MidPrice() defined = %v, want %v", ok, tt.defined)
			}
			if tt.defined && mid != tt.want {
				t.Errorf("MidPrice() = %v, want %v", mid, tt.want)
			}
		})
	}
}

func TestRestingImbalance(t *testing.T) {
	book := &Book{
		BuyOrders:  map[float64]int64{10: 5, 9: 3},
		SellOrders: map[float64]int64{11: -4, 12: -2},
	}
	// 8 bid lots vs 6 ask lots
	if got := book.RestingImbalance(); got != 2 {
		t.Errorf("RestingImbalance() = %d, want 2", got)
	}

	heavyAsks := &Book{
		BuyOrders:  map[float64]int64{10: 1},
		SellOrders: map[float64]int64{11: -9},
	}
	if got := heavyAsks.RestingImbalance(); got != -8 {
		t.Errorf("RestingImbalance() = %d, want -8", got)
	}
}

func TestPriceOrdering(t *testing.T) {
	book := &Book{
		BuyOrders:  map[float64]int64{9: 3, 10: 5, 8: 1},
		SellOrders: map[float64]int64{12: -2, 11: -4, 13: -1},
	}

	bids := book.BidPrices()
	for i := 1; i < len(bids); i++ {
		if bids[i] >= bids[i-1] {
			t.Fatalf("bid prices not descending: %v", bids)
		}
	}

	asks := book.AskPrices()
	for i := 1; i < len(asks); i++ {
		if asks[i] <= asks[i-1] {
			t.Fatalf("ask prices not ascending: %v", asks)
		}
	}
}

func TestVWAP(t *testing.T) {
	trades := []Trade{
		{Instrument: "STARFRUIT", Price: 10, Qty: 3},
		{Instrument: "STARFRUIT", Price: 12, Qty: 1},
	}
	if got, want := VWAP(trades), 10.5; got != want {
		t.Errorf("VWAP() = %v, want %v", got, want)
	}

	if got := VWAP(nil); got != 0 {
		t.Errorf("VWAP(nil) = %v, want 0", got)
	}
}

func TestStateDefaults(t *testing.T) {
	s := &State{
		Timestamp:    100,
		Books:        map[Instrument]*Book{},
		MarketTrades: map[Instrument][]Trade{},
		Positions:    map[Instrument]int64{"AMETHYSTS": 4},
	}

	if got := s.Position("AMETHYSTS"); got != 4 {
		t.Errorf("Position() = %d, want 4", got)
	}
	if got := s.Position("STARFRUIT"); got != 0 {
		t.Errorf("Position() for absent instrument = %d, want 0", got)
	}
	if got := s.TradesFor("STARFRUIT"); got != nil {
		t.Errorf("TradesFor() for absent instrument = %v, want nil", got)
	}
}

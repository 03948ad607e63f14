package strategy

import (
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/uhyunpark/quotesim/params"
	"github.com/uhyunpark/quotesim/pkg/market"
)

func testConfig() params.Strategy {
	return params.Strategy{
		DefaultRiskAversion:  1,
		DefaultPositionLimit: 20,
		MaxTimestamp:         200000,
		TimeHorizon:          1,
		IncludeTimeDecay:     true,
		KappaFallback:        params.KappaFallbackOne,
		KappaFloor:           1e-6,
		RatioWindow:          64,
	}
}

func stateWithBook(ts int64, book *market.Book) *market.State {
	return &market.State{
		Timestamp:    ts,
		Books:        map[market.Instrument]*market.Book{"AMETHYSTS": book},
		MarketTrades: map[market.Instrument][]market.Trade{},
		Positions:    map[market.Instrument]int64{},
	}
}

// With zero inventory and zero volatility the reservation price equals the
// mid-price and the half-spread reduces to ln(1+gamma/kappa)/gamma.
func TestQuoteZeroInventoryZeroVol(t *testing.T) {
	as := NewAvellanedaStoikov(testConfig(), zap.NewNop().Sugar())

	book := &market.Book{
		BuyOrders:  map[float64]int64{10: 5, 9: 3},   // 8 bid lots
		SellOrders: map[float64]int64{11: -4, 12: -2}, // 6 ask lots
	}
	state := stateWithBook(100, book)

	orders, conversions, _ := as.Run(state)
	if conversions != 0 {
		t.Errorf("conversions = %d, want 0", conversions)
	}
	quotes := orders["AMETHYSTS"]
	if len(quotes) != 2 {
		t.Fatalf("got %d orders, want bid and ask", len(quotes))
	}

	mid := 10.5
	kappa := 2.0 / 100.0 // imbalance 2 over time delta 100
	delta := math.Log(1+1/kappa) / 1

	wantBid := math.Trunc(mid - delta)
	wantAsk := math.Trunc(mid + delta)

	bid, ask := quotes[0], quotes[1]
	if bid.Price != wantBid || bid.Qty != 20 {
		t.Errorf("bid = %+v, want %v x 20", bid, wantBid)
	}
	if ask.Price != wantAsk || ask.Qty != -20 {
		t.Errorf("ask = %+v, want %v x -20", ask, wantAsk)
	}
}

// Quotes are sized to the full remaining capacity toward the position limit.
func TestQuoteSizing(t *testing.T) {
	tests := []struct {
		name     string
		position int64
		wantBid  int64
		wantAsk  int64 // 0 means the side is not quoted
	}{
		{name: "flat", position: 0, wantBid: 20, wantAsk: -20},
		{name: "long 5", position: 5, wantBid: 15, wantAsk: -25},
		{name: "short 5", position: -5, wantBid: 25, wantAsk: -15},
		{name: "pinned long", position: 20, wantBid: 0, wantAsk: -40},
		{name: "pinned short", position: -20, wantBid: 40, wantAsk: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			as := NewAvellanedaStoikov(testConfig(), zap.NewNop().Sugar())
			book := &market.Book{
				BuyOrders:  map[float64]int64{10: 5},
				SellOrders: map[float64]int64{11: -4},
			}
			state := stateWithBook(100, book)
			state.Positions["AMETHYSTS"] = tt.position

			orders, _, _ := as.Run(state)
			var gotBid, gotAsk int64
			for _, o := range orders["AMETHYSTS"] {
				if o.Qty > 0 {
					gotBid = o.Qty
				} else {
					gotAsk = o.Qty
				}
			}
			if gotBid != tt.wantBid || gotAsk != tt.wantAsk {
				t.Errorf("sizes = (%d, %d), want (%d, %d)", gotBid, gotAsk, tt.wantBid, tt.wantAsk)
			}
		})
	}
}

// Two consecutive ticks with an identical mid-price and zero trade activity
// leave the volatility estimate unchanged: each contributes a flat ratio.
func TestQuoteFlatTicksKeepVolatility(t *testing.T) {
	as := NewAvellanedaStoikov(testConfig(), zap.NewNop().Sugar())
	mkBook := func() *market.Book {
		return &market.Book{
			BuyOrders:  map[float64]int64{10: 5},
			SellOrders: map[float64]int64{11: -4},
		}
	}

	first, _, _ := as.Run(stateWithBook(100, mkBook()))
	st := as.stats["AMETHYSTS"]
	if got := st.ratios.StdDev(); got != 0 {
		t.Fatalf("sigma after first flat tick = %v, want 0", got)
	}

	second, _, _ := as.Run(stateWithBook(200, mkBook()))
	if got := st.ratios.StdDev(); got != 0 {
		t.Fatalf("sigma after second flat tick = %v, want 0", got)
	}
	// With sigma pinned at 0 and flat inventory, only kappa's time delta
	// changed between the ticks.
	if len(first["AMETHYSTS"]) != 2 || len(second["AMETHYSTS"]) != 2 {
		t.Fatal("expected two-sided quotes on both ticks")
	}
}

func TestQuoteRatioHistory(t *testing.T) {
	as := NewAvellanedaStoikov(testConfig(), zap.NewNop().Sugar())
	book := func() *market.Book {
		return &market.Book{
			BuyOrders:  map[float64]int64{10: 5},
			SellOrders: map[float64]int64{11: -4},
		}
	}

	// First traded tick: no prior average, ratio defaults to 1.
	s1 := stateWithBook(100, book())
	s1.MarketTrades["AMETHYSTS"] = []market.Trade{{Instrument: "AMETHYSTS", Price: 10, Qty: 2}}
	as.Run(s1)

	st := as.stats["AMETHYSTS"]
	if st.lastAvgTradePrice != 10 {
		t.Fatalf("lastAvgTradePrice = %v, want 10", st.lastAvgTradePrice)
	}
	if got := st.ratios.StdDev(); got != 0 {
		t.Fatalf("sigma = %v, want 0 after defaulted ratio", got)
	}

	// Quiet tick: ratio 1 again, last known average is retained, not zeroed.
	as.Run(stateWithBook(200, book()))
	if st.lastAvgTradePrice != 10 {
		t.Fatalf("quiet tick overwrote lastAvgTradePrice: %v", st.lastAvgTradePrice)
	}

	// Second traded tick: ratio 11/10 enters the window.
	s3 := stateWithBook(300, book())
	s3.MarketTrades["AMETHYSTS"] = []market.Trade{{Instrument: "AMETHYSTS", Price: 11, Qty: 2}}
	as.Run(s3)

	if st.lastAvgTradePrice != 11 {
		t.Fatalf("lastAvgTradePrice = %v, want 11", st.lastAvgTradePrice)
	}
	// Window is {1, 1, 1.1}: deviation of one off-flat sample.
	mean := (1 + 1 + 1.1) / 3
	want := math.Sqrt(((1-mean)*(1-mean)*2 + (1.1-mean)*(1.1-mean)) / 3)
	if got := st.ratios.StdDev(); math.Abs(got-want) > 1e-9 {
		t.Errorf("sigma = %v, want %v", got, want)
	}
}

// An instrument with no liquidity on either side has no mid-price: it is
// skipped for the tick and its rolling statistics stay untouched.
func TestQuoteEmptyBookSkipped(t *testing.T) {
	as := NewAvellanedaStoikov(testConfig(), zap.NewNop().Sugar())
	state := stateWithBook(100, market.NewBook())
	state.MarketTrades["AMETHYSTS"] = []market.Trade{{Instrument: "AMETHYSTS", Price: 10, Qty: 1}}

	orders, _, _ := as.Run(state)
	if len(orders) != 0 {
		t.Fatalf("empty book produced orders: %v", orders)
	}
	if _, ok := as.stats["AMETHYSTS"]; ok {
		t.Error("skipped instrument grew rolling statistics")
	}
}

func TestKappaGuards(t *testing.T) {
	cfg := testConfig()
	as := NewAvellanedaStoikov(cfg, zap.NewNop().Sugar())

	heavyAsks := &market.Book{
		BuyOrders:  map[float64]int64{10: 1},
		SellOrders: map[float64]int64{11: -9}, // imbalance -8
	}
	if got := as.kappa(heavyAsks, 100); got != cfg.KappaFloor {
		t.Errorf("negative imbalance kappa = %v, want floor %v", got, cfg.KappaFloor)
	}

	balanced := &market.Book{
		BuyOrders:  map[float64]int64{10: 6},
		SellOrders: map[float64]int64{11: -4},
	}
	if got := as.kappa(balanced, 0); got != 1 {
		t.Errorf("zero time delta kappa = %v, want fallback 1", got)
	}

	cfg.KappaFallback = params.KappaFallbackUnitDelta
	as = NewAvellanedaStoikov(cfg, zap.NewNop().Sugar())
	if got := as.kappa(balanced, 0); got != 2 {
		t.Errorf("unit-delta fallback kappa = %v, want imbalance 2", got)
	}
}

func TestTraderDataPassthrough(t *testing.T) {
	as := NewAvellanedaStoikov(testConfig(), zap.NewNop().Sugar())
	state := stateWithBook(100, &market.Book{
		BuyOrders:  map[float64]int64{10: 5},
		SellOrders: map[float64]int64{11: -4},
	})
	state.TraderData = "opaque-token"

	_, _, traderData := as.Run(state)
	if traderData != "opaque-token" {
		t.Errorf("traderData = %q, want round-tripped token", traderData)
	}
}

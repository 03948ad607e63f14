package market

// Instrument names a tradable product. The replay core needs no further
// metadata; per-instrument tuning (risk aversion, position limits) lives in
// the strategy configuration.
type Instrument string

// Trade is a historical trade print: an execution that happened in the real
// market, not one caused by the simulated strategy. Prints only feed the
// market statistics; they never supply matchable liquidity.
type Trade struct {
	Instrument Instrument
	Price      float64
	Qty        int64
}

// Order is a single-tick strategy intent. Qty > 0 means "buy up to Qty at
// Price or better", Qty < 0 means "sell up to |Qty| at Price or better".
// Orders live for exactly one tick; whatever is left unfilled is discarded.
type Order struct {
	Instrument Instrument
	Price      float64
	Qty        int64
}

// Fill is a simulated execution against historical resting liquidity.
// Qty keeps the sign of the originating order (+buy, -sell).
type Fill struct {
	Instrument Instrument
	Price      float64
	Qty        int64
}

// State is one tick of the replay timeline: the books and trade prints
// observed at a single timestamp, plus the live view the runner injects
// before handing the state to the strategy.
type State struct {
	Timestamp int64

	// Books per instrument present at this tick.
	Books map[Instrument]*Book

	// MarketTrades holds the prints that occurred since the previous tick.
	// Instruments with no prints have no entry.
	MarketTrades map[Instrument][]Trade

	// Positions is the signed inventory per instrument, injected by the
	// runner once per tick before the strategy sees the state.
	Positions map[Instrument]int64

	// TraderData is an opaque token the strategy returned on the previous
	// tick, round-tripped verbatim.
	TraderData string
}

// Position returns the signed inventory for an instrument, zero if absent.
func (s *State) Position(in Instrument) int64 {
	return s.Positions[in]
}

// TradesFor returns the tick's prints for an instrument, nil if none.
func (s *State) TradesFor(in Instrument) []Trade {
	return s.MarketTrades[in]
}

package strategy

import "github.com/uhyunpark/quotesim/pkg/market"

// Strategy is the contract the external competition harness calls once per
// tick. Orders are grouped per instrument and live only for that tick.
// Conversions is the number of conversion requests (unused by the quoter,
// always zero here). TraderData is an opaque state token: the harness
// persists it and re-supplies it on the next call via State.TraderData; the
// runner round-trips it without decoding.
type Strategy interface {
	Run(state *market.State) (orders map[market.Instrument][]market.Order, conversions int, traderData string)
}

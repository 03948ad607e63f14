package sim

import "github.com/uhyunpark/quotesim/pkg/market"

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// MatchOrder walks one instrument's historical book with price priority and
// returns the fills plus the unfilled remainder (which the caller discards:
// orders never rest across ticks).
//
// A buy crosses ask levels ascending while level price <= limit; a sell
// crosses bid levels descending while level price >= limit. Fills execute at
// the resting price, so the strategy always gets price improvement over its
// own limit. The book is read-only: this is replay against a fixed snapshot,
// the strategy is price-taking and its orders do not deplete depth for each
// other within a tick.
func MatchOrder(book *market.Book, o market.Order) ([]market.Fill, int64) {
	var fills []market.Fill

	if o.Qty > 0 {
		remaining := o.Qty
		for _, askPrice := range book.AskPrices() {
			if remaining == 0 || askPrice > o.Price {
				break
			}
			available := -book.SellOrders[askPrice] // ask sizes carry a negative sign
			executed := min64(remaining, available)
			remaining -= executed
			fills = append(fills, market.Fill{Instrument: o.Instrument, Price: askPrice, Qty: executed})
		}
		return fills, remaining
	}

	remaining := -o.Qty
	for _, bidPrice := range book.BidPrices() {
		if remaining == 0 || bidPrice < o.Price {
			break
		}
		executed := min64(remaining, book.BuyOrders[bidPrice])
		remaining -= executed
		fills = append(fills, market.Fill{Instrument: o.Instrument, Price: bidPrice, Qty: -executed})
	}
	return fills, remaining
}

// MatchOrders runs every order of one instrument against the same observed
// snapshot and concatenates the fills.
func MatchOrders(book *market.Book, orders []market.Order) []market.Fill {
	var fills []market.Fill
	for _, o := range orders {
		got, _ := MatchOrder(book, o)
		fills = append(fills, got...)
	}
	return fills
}

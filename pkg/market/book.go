package market

import "sort"

// Book is one instrument's order book snapshot at one timestamp.
//
// BuyOrders maps price -> positive resting size. SellOrders maps price ->
// size stored with a negative sign; the magnitude is the available ask size.
// This matches the feed convention: every key is real standing interest, an
// empty map means no liquidity on that side.
type Book struct {
	BuyOrders  map[float64]int64
	SellOrders map[float64]int64
}

func NewBook() *Book {
	return &Book{
		BuyOrders:  make(map[float64]int64),
		SellOrders: make(map[float64]int64),
	}
}

// BestBid returns the highest bid price, false if there are no bids.
func (b *Book) BestBid() (float64, bool) {
	found := false
	best := 0.0
	for price := range b.BuyOrders {
		if !found || price > best {
			best = price
			found = true
		}
	}
	return best, found
}

// BestAsk returns the lowest ask price, false if there are no asks.
func (b *Book) BestAsk() (float64, bool) {
	found := false
	best := 0.0
	for price := range b.SellOrders {
		if !found || price < best {
			best = price
			found = true
		}
	}
	return best, found
}

// MidPrice returns the midpoint of best bid and best ask. With only one side
// present it returns that side's best price. With an empty book it returns
// ok=false: the mid-price is undefined, which callers must treat differently
// from a real zero price.
func (b *Book) MidPrice() (float64, bool) {
	bid, hasBid := b.BestBid()
	ask, hasAsk := b.BestAsk()
	switch {
	case hasBid && hasAsk:
		return (bid + ask) / 2, true
	case hasBid:
		return bid, true
	case hasAsk:
		return ask, true
	default:
		return 0, false
	}
}

// RestingImbalance returns total bid size minus total ask magnitude. Since
// ask sizes carry a negative sign, this is the plain sum of both maps. The
// result is negative when ask depth exceeds bid depth.
func (b *Book) RestingImbalance() int64 {
	var vol int64
	for _, qty := range b.BuyOrders {
		vol += qty
	}
	for _, qty := range b.SellOrders {
		vol += qty
	}
	return vol
}

// BidPrices returns bid prices sorted high to low (best bid first).
func (b *Book) BidPrices() []float64 {
	prices := make([]float64, 0, len(b.BuyOrders))
	for p := range b.BuyOrders {
		prices = append(prices, p)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(prices)))
	return prices
}

// AskPrices returns ask prices sorted low to high (best ask first).
func (b *Book) AskPrices() []float64 {
	prices := make([]float64, 0, len(b.SellOrders))
	for p := range b.SellOrders {
		prices = append(prices, p)
	}
	sort.Float64s(prices)
	return prices
}

// VWAP returns the volume-weighted average price of a sequence of prints,
// zero if the sequence carries no volume.
func VWAP(trades []Trade) float64 {
	var totalPV float64
	var totalQty int64
	for _, t := range trades {
		totalPV += t.Price * float64(t.Qty)
		totalQty += t.Qty
	}
	if totalQty == 0 {
		return 0
	}
	return totalPV / float64(totalQty)
}

package sim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/uhyunpark/quotesim/pkg/market"
)

// ErrNoMarkPrice reports that a held instrument had no tradable book at
// valuation time, so the mark-to-market equity for that tick is undefined.
var ErrNoMarkPrice = errors.New("no mark price for held instrument")

// Portfolio accumulates cash and signed inventory across ticks. It is
// mutated only by applying fills; it does not enforce position limits (the
// strategy sizes its orders so the configured bound is respected).
type Portfolio struct {
	Cash      float64
	Positions map[market.Instrument]int64
}

func NewPortfolio() *Portfolio {
	return &Portfolio{Positions: make(map[market.Instrument]int64)}
}

// Apply books a fill: cash moves by -price*qty (buys pay, sells receive) and
// inventory by the signed executed quantity.
func (p *Portfolio) Apply(f market.Fill) {
	p.Cash -= f.Price * float64(f.Qty)
	p.Positions[f.Instrument] += f.Qty
}

// Position returns the signed inventory for an instrument, zero if absent.
func (p *Portfolio) Position(in market.Instrument) int64 {
	return p.Positions[in]
}

// Snapshot returns a copy of the inventory map for injection into a tick's
// market state.
func (p *Portfolio) Snapshot() map[market.Instrument]int64 {
	out := make(map[market.Instrument]int64, len(p.Positions))
	for in, qty := range p.Positions {
		out[in] = qty
	}
	return out
}

// MarkToMarket values the portfolio against the current books: cash plus
// inventory times mid-price per held instrument, using the same mid-price
// fallback rules the quoter uses. A non-flat position with no mid-price makes
// the whole valuation fail with ErrNoMarkPrice rather than contribute a
// silent zero. Instruments are summed in sorted order so the float result is
// reproducible run to run.
func (p *Portfolio) MarkToMarket(books map[market.Instrument]*market.Book) (float64, error) {
	instruments := make([]market.Instrument, 0, len(p.Positions))
	for in := range p.Positions {
		instruments = append(instruments, in)
	}
	sort.Slice(instruments, func(i, j int) bool { return instruments[i] < instruments[j] })

	equity := p.Cash
	for _, in := range instruments {
		qty := p.Positions[in]
		if qty == 0 {
			continue
		}
		book, ok := books[in]
		if !ok {
			return 0, fmt.Errorf("%w: %s absent from tick", ErrNoMarkPrice, in)
		}
		mid, ok := book.MidPrice()
		if !ok {
			return 0, fmt.Errorf("%w: %s book empty on both sides", ErrNoMarkPrice, in)
		}
		equity += float64(qty) * mid
	}
	return equity, nil
}

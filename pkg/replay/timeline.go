package replay

import (
	"fmt"

	"github.com/uhyunpark/quotesim/pkg/market"
)

// BuildTimeline merges book records and trade records into one market state
// per distinct book timestamp. Both inputs must be non-decreasing in
// timestamp; the output is strictly increasing (same-timestamp source rows
// were already merged by the loaders).
//
// The merge is a two-pointer walk keyed on timestamp equality: a state gets
// the trade record's prints only when the timestamps match exactly. Trade
// records with no matching book timestamp are dropped - prints are useless
// without a book to quote against.
func BuildTimeline(books []BookRecord, trades []TradeRecord) ([]*market.State, error) {
	timeline := make([]*market.State, 0, len(books))
	ti := 0

	var prev int64
	for i, rec := range books {
		if i > 0 && rec.Timestamp <= prev {
			return nil, fmt.Errorf("book records out of order: %d after %d", rec.Timestamp, prev)
		}
		prev = rec.Timestamp

		for ti < len(trades) && trades[ti].Timestamp < rec.Timestamp {
			ti++
		}

		state := &market.State{
			Timestamp:    rec.Timestamp,
			Books:        rec.Books,
			MarketTrades: map[market.Instrument][]market.Trade{},
		}
		if ti < len(trades) && trades[ti].Timestamp == rec.Timestamp {
			state.MarketTrades = trades[ti].Trades
			ti++
		}
		timeline = append(timeline, state)
	}
	return timeline, nil
}

package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"go.uber.org/zap"

	"github.com/uhyunpark/quotesim/pkg/market"
)

// BookRecord is one distinct feed timestamp with every book observed at it.
type BookRecord struct {
	Timestamp int64
	Books     map[market.Instrument]*market.Book
}

// TradeRecord is one distinct feed timestamp with the prints observed at it.
type TradeRecord struct {
	Timestamp int64
	Trades    map[market.Instrument][]market.Trade
}

// Feed row layout (semicolon-delimited, one header row per file):
//
//	prices: [_, ts, instrument, bid_px1, bid_sz1, bid_px2, bid_sz2, bid_px3, bid_sz3,
//	         ask_px1, ask_sz1, ask_px2, ask_sz2, ask_px3, ask_sz3, ...]
//	trades: [ts, _, _, instrument, _, price, qty]
//
// An empty price field means that level is absent. Ask sizes are stored with
// a negative sign in the book.
const (
	priceColTimestamp  = 1
	priceColInstrument = 2
	priceColFirstBid   = 3
	priceColFirstAsk   = 9

	tradeColTimestamp  = 0
	tradeColInstrument = 3
	tradeColPrice      = 5
	tradeColQty        = 6
)

// LoadBookRecords reads price files in order and returns per-timestamp book
// records. Rows sharing a timestamp are merged per instrument. Timestamps in
// file n are offset by the final timestamp of file n-1 so the combined
// sequence stays monotonic across concatenated days.
func LoadBookRecords(paths []string, log *zap.SugaredLogger) ([]BookRecord, error) {
	var records []BookRecord
	var base int64

	for _, path := range paths {
		if err := readRows(path, func(row []string) {
			if len(row) < priceColFirstAsk+6 {
				return
			}
			ts, err := strconv.ParseInt(row[priceColTimestamp], 10, 64)
			if err != nil {
				log.Debugw("skipping bad price row", "file", path, "ts", row[priceColTimestamp])
				return
			}
			ts += base
			in := market.Instrument(row[priceColInstrument])

			book := market.NewBook()
			for i := priceColFirstBid; i < priceColFirstAsk; i += 2 {
				if price, size, ok := parseLevel(row[i], row[i+1]); ok {
					book.BuyOrders[price] = size
				}
			}
			for i := priceColFirstAsk; i < priceColFirstAsk+6; i += 2 {
				if price, size, ok := parseLevel(row[i], row[i+1]); ok {
					book.SellOrders[price] = -size
				}
			}

			if n := len(records); n > 0 && records[n-1].Timestamp == ts {
				records[n-1].Books[in] = book
			} else {
				records = append(records, BookRecord{
					Timestamp: ts,
					Books:     map[market.Instrument]*market.Book{in: book},
				})
			}
		}); err != nil {
			return nil, err
		}
		if len(records) > 0 {
			base = records[len(records)-1].Timestamp
		}
	}
	return records, nil
}

// LoadTradeRecords reads trade files in order, merging and offsetting the
// same way LoadBookRecords does.
func LoadTradeRecords(paths []string, log *zap.SugaredLogger) ([]TradeRecord, error) {
	var records []TradeRecord
	var base int64

	for _, path := range paths {
		if err := readRows(path, func(row []string) {
			if len(row) < tradeColQty+1 {
				return
			}
			ts, err := strconv.ParseInt(row[tradeColTimestamp], 10, 64)
			if err != nil {
				log.Debugw("skipping bad trade row", "file", path, "ts", row[tradeColTimestamp])
				return
			}
			ts += base
			in := market.Instrument(row[tradeColInstrument])
			price, err := strconv.ParseFloat(row[tradeColPrice], 64)
			if err != nil {
				return
			}
			qty, err := strconv.ParseInt(row[tradeColQty], 10, 64)
			if err != nil {
				return
			}
			print := market.Trade{Instrument: in, Price: price, Qty: qty}

			if n := len(records); n > 0 && records[n-1].Timestamp == ts {
				records[n-1].Trades[in] = append(records[n-1].Trades[in], print)
			} else {
				records = append(records, TradeRecord{
					Timestamp: ts,
					Trades:    map[market.Instrument][]market.Trade{in: {print}},
				})
			}
		}); err != nil {
			return nil, err
		}
		if len(records) > 0 {
			base = records[len(records)-1].Timestamp
		}
	}
	return records, nil
}

// readRows streams a semicolon-delimited file, skipping the header row and
// calling fn per data row.
func readRows(path string, fn func(row []string)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open feed file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1

	// Header row (column labels).
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("read header of %s: %w", path, err)
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		fn(row)
	}
}

// parseLevel parses one (price, size) column pair. An empty price field means
// the level is absent.
func parseLevel(priceField, sizeField string) (float64, int64, bool) {
	if priceField == "" {
		return 0, 0, false
	}
	price, err := strconv.ParseFloat(priceField, 64)
	if err != nil {
		return 0, 0, false
	}
	size, err := strconv.ParseInt(sizeField, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return price, size, true
}

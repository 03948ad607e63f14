package strategy

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/uhyunpark/quotesim/params"
	"github.com/uhyunpark/quotesim/pkg/market"
)

// AvellanedaStoikov quotes an inventory-aware bid/ask pair around a
// reservation price, per the Avellaneda-Stoikov stochastic-control model:
//
//	r     = s - q*gamma*sigma^2*(T-t)
//	delta = (gamma*sigma^2*(T-t) + (2/gamma)*ln(1+gamma/kappa)) / 2
//	bid   = r - delta, ask = r + delta
//
// sigma is estimated online from the history of tick-over-tick VWAP ratios,
// kappa from the book's resting-volume imbalance per unit time. All rolling
// statistics are per instrument and private to this strategy instance.
type AvellanedaStoikov struct {
	cfg params.Strategy
	log *zap.SugaredLogger

	stats map[market.Instrument]*instrumentStats
}

// instrumentStats is the per-instrument context carried across ticks.
type instrumentStats struct {
	lastAvgTradePrice float64
	lastTimestamp     int64
	ratios            *Window
}

// quoteParams carries one tick's model inputs. Ephemeral: built, consumed by
// the pricing formula, and discarded within a single quote call.
type quoteParams struct {
	Mid       float64 // s
	Sigma     float64 // volatility estimate
	Horizon   float64 // T
	TimeFrac  float64 // t, timestamp normalized into [0, T]
	Gamma     float64 // risk aversion
	Kappa     float64 // liquidity coefficient
	Inventory int64   // q
}

func NewAvellanedaStoikov(cfg params.Strategy, log *zap.SugaredLogger) *AvellanedaStoikov {
	return &AvellanedaStoikov{
		cfg:   cfg,
		log:   log,
		stats: make(map[market.Instrument]*instrumentStats),
	}
}

// Run quotes every instrument with a book in the current tick. Instruments
// are visited in sorted order so a replayed timeline produces an identical
// order stream. The trader data token is passed through untouched.
func (a *AvellanedaStoikov) Run(state *market.State) (map[market.Instrument][]market.Order, int, string) {
	result := make(map[market.Instrument][]market.Order, len(state.Books))

	instruments := make([]market.Instrument, 0, len(state.Books))
	for in := range state.Books {
		instruments = append(instruments, in)
	}
	sort.Slice(instruments, func(i, j int) bool { return instruments[i] < instruments[j] })

	for _, in := range instruments {
		if orders := a.quote(in, state); len(orders) > 0 {
			result[in] = orders
		}
	}
	return result, 0, state.TraderData
}

// quote derives this tick's bid/ask pair for one instrument. An instrument
// whose book is empty on both sides has no mid-price and is skipped without
// touching its rolling statistics.
func (a *AvellanedaStoikov) quote(in market.Instrument, state *market.State) []market.Order {
	book := state.Books[in]
	mid, ok := book.MidPrice()
	if !ok {
		a.log.Debugw("no mid price, skipping quote", "instrument", in, "ts", state.Timestamp)
		return nil
	}

	st := a.statsFor(in)
	p := quoteParams{
		Mid:       mid,
		Sigma:     a.updateVolatility(st, state.TradesFor(in)),
		Horizon:   a.cfg.TimeHorizon,
		TimeFrac:  float64(state.Timestamp) / float64(a.cfg.MaxTimestamp),
		Gamma:     a.cfg.Gamma(string(in)),
		Kappa:     a.kappa(book, state.Timestamp-st.lastTimestamp),
		Inventory: state.Position(in),
	}
	st.lastTimestamp = state.Timestamp

	decay := 0.0
	if a.cfg.IncludeTimeDecay {
		decay = p.Horizon - p.TimeFrac
	}

	q := float64(p.Inventory)
	r := p.Mid - q*p.Gamma*p.Sigma*p.Sigma*decay
	delta := (p.Gamma*p.Sigma*p.Sigma*decay + 2*math.Log(1+p.Gamma/p.Kappa)/p.Gamma) / 2

	// Integral price granularity: truncate like the exchange does.
	bidPrice := math.Trunc(r - delta)
	askPrice := math.Trunc(r + delta)

	// Size both sides at full remaining capacity toward the position limit,
	// not a fixed clip. A side pinned at its limit is not quoted.
	limit := a.cfg.Limit(string(in))
	bidQty := limit - p.Inventory
	askQty := limit + p.Inventory

	orders := make([]market.Order, 0, 2)
	if bidQty > 0 {
		orders = append(orders, market.Order{Instrument: in, Price: bidPrice, Qty: bidQty})
	}
	if askQty > 0 {
		orders = append(orders, market.Order{Instrument: in, Price: askPrice, Qty: -askQty})
	}

	a.log.Debugw("quote",
		"instrument", in,
		"ts", state.Timestamp,
		"mid", p.Mid,
		"sigma", p.Sigma,
		"kappa", p.Kappa,
		"reservation", r,
		"half_spread", delta,
		"inventory", p.Inventory)

	return orders
}

// updateVolatility appends this tick's VWAP ratio to the rolling history and
// returns the current deviation estimate. A tick with no prints, or no prior
// average to compare against, contributes a flat ratio of 1. The last known
// average trade price is only replaced when the tick actually traded.
func (a *AvellanedaStoikov) updateVolatility(st *instrumentStats, prints []market.Trade) float64 {
	avg := market.VWAP(prints)

	ratio := 1.0
	if avg > 0 {
		if st.lastAvgTradePrice > 0 {
			ratio = avg / st.lastAvgTradePrice
		}
		st.lastAvgTradePrice = avg
	}
	st.ratios.Push(ratio)
	return st.ratios.StdDev()
}

// kappa estimates the liquidity coefficient as resting-volume imbalance per
// unit time. Two ticks sharing a timestamp hit the configured fallback, and
// the result is floored at a small positive value so ln(1+gamma/kappa) stays
// defined when ask depth exceeds bid depth.
func (a *AvellanedaStoikov) kappa(book *market.Book, timeDelta int64) float64 {
	var k float64
	switch {
	case timeDelta != 0:
		k = float64(book.RestingImbalance()) / float64(timeDelta)
	case a.cfg.KappaFallback == params.KappaFallbackUnitDelta:
		k = float64(book.RestingImbalance())
	default:
		k = 1
	}
	if k < a.cfg.KappaFloor {
		k = a.cfg.KappaFloor
	}
	return k
}

func (a *AvellanedaStoikov) statsFor(in market.Instrument) *instrumentStats {
	st, ok := a.stats[in]
	if !ok {
		st = &instrumentStats{ratios: NewWindow(a.cfg.RatioWindow)}
		a.stats[in] = st
	}
	return st
}

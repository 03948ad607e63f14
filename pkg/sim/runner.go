package sim

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/uhyunpark/quotesim/pkg/market"
	"github.com/uhyunpark/quotesim/pkg/strategy"
)

// RunState is the runner lifecycle: a runner is built Initialized, spends the
// whole timeline Running, and ends Finished. A runner is single-use.
type RunState int8

const (
	Initialized RunState = iota
	Running
	Finished
)

func (s RunState) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// EquityPoint is one tick's mark-to-market equity. Valid=false means the
// valuation was undefined for this tick (a held instrument had no mid-price);
// Equity is NaN then, never zero.
type EquityPoint struct {
	Timestamp int64
	Equity    float64
	Valid     bool
}

// TimedFill is a fill annotated with the tick it executed in, for the run
// journal.
type TimedFill struct {
	Timestamp  int64
	Instrument market.Instrument
	Price      float64
	Qty        int64
}

// Result is the output of one completed run.
type Result struct {
	EquityCurve []EquityPoint
	Fills       []TimedFill
	FinalCash   float64
	Positions   map[market.Instrument]int64
}

// Runner replays a timeline through a strategy: per tick it injects the live
// inventory view, collects the strategy's orders, matches them against the
// historical books, applies the fills, and records equity. Strictly
// sequential - the strategy at tick k observes exactly the fills of ticks
// 1..k-1 and never any future market state.
type Runner struct {
	timeline  []*market.State
	strat     strategy.Strategy
	portfolio *Portfolio
	state     RunState
	log       *zap.SugaredLogger

	// OnEquity and OnFill, when set, observe the run as it progresses
	// (e.g. for live streaming to the results API).
	OnEquity func(EquityPoint)
	OnFill   func(TimedFill)
}

func NewRunner(timeline []*market.State, strat strategy.Strategy, log *zap.SugaredLogger) *Runner {
	return &Runner{
		timeline:  timeline,
		strat:     strat,
		portfolio: NewPortfolio(),
		state:     Initialized,
		log:       log,
	}
}

func (r *Runner) State() RunState { return r.state }

// Run walks the timeline once and returns the accumulated equity curve and
// fill journal. Degenerate inputs on a single tick (empty books, undefined
// mid-price) never abort the run; they only produce an invalid equity point
// for that tick.
func (r *Runner) Run() (*Result, error) {
	if r.state != Initialized {
		return nil, fmt.Errorf("runner already %s", r.state)
	}
	r.state = Running

	res := &Result{EquityCurve: make([]EquityPoint, 0, len(r.timeline))}
	traderData := ""

	var prev int64
	for i, tick := range r.timeline {
		if i > 0 && tick.Timestamp <= prev {
			return nil, fmt.Errorf("timeline not strictly increasing: %d after %d", tick.Timestamp, prev)
		}
		prev = tick.Timestamp

		// Inject the live view before the strategy sees the tick.
		tick.Positions = r.portfolio.Snapshot()
		tick.TraderData = traderData

		orders, _, nextData := r.strat.Run(tick)
		traderData = nextData

		// Match per instrument in sorted order: cash is a float accumulator,
		// so the application order has to be reproducible.
		instruments := make([]market.Instrument, 0, len(orders))
		for in := range orders {
			instruments = append(instruments, in)
		}
		sort.Slice(instruments, func(a, b int) bool { return instruments[a] < instruments[b] })

		for _, in := range instruments {
			book, ok := tick.Books[in]
			if !ok {
				// The strategy may quote instruments that are untradable this
				// tick. Not an error.
				continue
			}
			for _, fill := range MatchOrders(book, orders[in]) {
				r.portfolio.Apply(fill)
				tf := TimedFill{
					Timestamp:  tick.Timestamp,
					Instrument: fill.Instrument,
					Price:      fill.Price,
					Qty:        fill.Qty,
				}
				res.Fills = append(res.Fills, tf)
				if r.OnFill != nil {
					r.OnFill(tf)
				}
			}
		}

		point := EquityPoint{Timestamp: tick.Timestamp}
		if equity, err := r.portfolio.MarkToMarket(tick.Books); err != nil {
			r.log.Warnw("equity undefined for tick", "ts", tick.Timestamp, "err", err)
			point.Equity = math.NaN()
		} else {
			point.Equity = equity
			point.Valid = true
		}
		res.EquityCurve = append(res.EquityCurve, point)
		if r.OnEquity != nil {
			r.OnEquity(point)
		}
	}

	r.state = Finished
	res.FinalCash = r.portfolio.Cash
	res.Positions = r.portfolio.Snapshot()

	r.log.Infow("run finished",
		"ticks", len(res.EquityCurve),
		"fills", len(res.Fills),
		"final_cash", res.FinalCash)
	return res, nil
}

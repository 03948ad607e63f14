package storage

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/quotesim/pkg/sim"
)

// RunMeta is the summary record of one backtest run.
type RunMeta struct {
	ID          string
	StartedAt   int64 // wall clock, Unix milliseconds
	Ticks       int
	FillCount   int
	FinalCash   float64
	FinalEquity float64
	FinalValid  bool
	Instruments []string
}

// RunStore persists run summaries, equity curves, and fill journals in
// Pebble. One store can hold any number of runs, keyed by run ID.
type RunStore struct {
	db *pebble.DB
}

func NewRunStore(path string) (*RunStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	return &RunStore{db: db}, nil
}

func (s *RunStore) Close() error { return s.db.Close() }

func (s *RunStore) SaveRun(meta RunMeta) error {
	val, err := encodeGob(meta)
	if err != nil {
		return fmt.Errorf("encode run meta: %w", err)
	}
	if err := s.db.Set(runKey(meta.ID), val, pebble.Sync); err != nil {
		return fmt.Errorf("save run %s: %w", meta.ID, err)
	}
	return nil
}

// GetRun loads a run summary. The second return is false if the run does not
// exist.
func (s *RunStore) GetRun(runID string) (RunMeta, bool, error) {
	val, closer, err := s.db.Get(runKey(runID))
	if err == pebble.ErrNotFound {
		return RunMeta{}, false, nil
	}
	if err != nil {
		return RunMeta{}, false, fmt.Errorf("get run %s: %w", runID, err)
	}
	defer closer.Close()

	var meta RunMeta
	if err := decodeGob(val, &meta); err != nil {
		return RunMeta{}, false, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return meta, true, nil
}

// ListRuns returns every stored run summary.
func (s *RunStore) ListRuns() ([]RunMeta, error) {
	prefix := []byte(prefixRun)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer iter.Close()

	var runs []RunMeta
	for iter.First(); iter.Valid(); iter.Next() {
		var meta RunMeta
		if err := decodeGob(iter.Value(), &meta); err != nil {
			continue // skip invalid entries
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

// SaveEquityPoint appends one tick's equity to a run's curve. seq is the
// tick index within the run.
func (s *RunStore) SaveEquityPoint(runID string, seq uint64, pt sim.EquityPoint) error {
	val, err := encodeGob(pt)
	if err != nil {
		return fmt.Errorf("encode equity point: %w", err)
	}
	if err := s.db.Set(equityKey(runID, seq), val, pebble.NoSync); err != nil {
		return fmt.Errorf("save equity point %s/%d: %w", runID, seq, err)
	}
	return nil
}

// LoadEquityCurve returns a run's equity points in tick order.
func (s *RunStore) LoadEquityCurve(runID string) ([]sim.EquityPoint, error) {
	prefix := equityPrefix(runID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("load equity curve %s: %w", runID, err)
	}
	defer iter.Close()

	var curve []sim.EquityPoint
	for iter.First(); iter.Valid(); iter.Next() {
		var pt sim.EquityPoint
		if err := decodeGob(iter.Value(), &pt); err != nil {
			continue
		}
		curve = append(curve, pt)
	}
	return curve, nil
}

// SaveFill appends one execution to a run's fill journal.
func (s *RunStore) SaveFill(runID string, seq uint64, f sim.TimedFill) error {
	val, err := encodeGob(f)
	if err != nil {
		return fmt.Errorf("encode fill: %w", err)
	}
	if err := s.db.Set(fillKey(runID, seq), val, pebble.NoSync); err != nil {
		return fmt.Errorf("save fill %s/%d: %w", runID, seq, err)
	}
	return nil
}

// LoadFills returns a run's fill journal in execution order.
func (s *RunStore) LoadFills(runID string) ([]sim.TimedFill, error) {
	prefix := fillPrefix(runID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("load fills %s: %w", runID, err)
	}
	defer iter.Close()

	var fills []sim.TimedFill
	for iter.First(); iter.Valid(); iter.Next() {
		var f sim.TimedFill
		if err := decodeGob(iter.Value(), &f); err != nil {
			continue
		}
		fills = append(fills, f)
	}
	return fills, nil
}

// SaveResult persists a completed run: summary, full equity curve, and fill
// journal.
func (s *RunStore) SaveResult(runID string, startedAt int64, res *sim.Result) error {
	for i, pt := range res.EquityCurve {
		if err := s.SaveEquityPoint(runID, uint64(i), pt); err != nil {
			return err
		}
	}
	for i, f := range res.Fills {
		if err := s.SaveFill(runID, uint64(i), f); err != nil {
			return err
		}
	}

	meta := RunMeta{
		ID:        runID,
		StartedAt: startedAt,
		Ticks:     len(res.EquityCurve),
		FillCount: len(res.Fills),
		FinalCash: res.FinalCash,
	}
	if n := len(res.EquityCurve); n > 0 {
		last := res.EquityCurve[n-1]
		meta.FinalEquity = last.Equity
		meta.FinalValid = last.Valid
	}
	for in := range res.Positions {
		meta.Instruments = append(meta.Instruments, string(in))
	}
	sort.Strings(meta.Instruments)
	return s.SaveRun(meta)
}

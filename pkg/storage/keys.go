package storage

import (
	"encoding/binary"
	"fmt"
)

// Key schema for Pebble storage:
//
//	run:<runID>              → RunMeta
//	eq:<runID>:<seq>         → EquityPoint
//	fill:<runID>:<seq>       → TimedFill
//
// Sequence numbers are 8-byte big-endian so prefix scans iterate in tick
// order.
const (
	prefixRun    = "run:"
	prefixEquity = "eq:"
	prefixFill   = "fill:"
)

func runKey(runID string) []byte {
	return []byte(prefixRun + runID)
}

func equityKey(runID string, seq uint64) []byte {
	return append([]byte(fmt.Sprintf("%s%s:", prefixEquity, runID)), seqKey(seq)...)
}

func equityPrefix(runID string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixEquity, runID))
}

func fillKey(runID string, seq uint64) []byte {
	return append([]byte(fmt.Sprintf("%s%s:", prefixFill, runID)), seqKey(seq)...)
}

func fillPrefix(runID string) []byte {
	return []byte(fmt.Sprintf("%s%s:", prefixFill, runID))
}

func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

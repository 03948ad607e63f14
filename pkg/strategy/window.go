package strategy

import "math"

// Window is a fixed-capacity ring buffer with running first and second
// moments, so the volatility estimate stays O(1) per tick instead of
// rescanning an ever-growing history.
type Window struct {
	buf   []float64
	next  int
	count int
	sum   float64
	sumSq float64
}

func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

// Push appends a sample, evicting the oldest once the window is full.
func (w *Window) Push(v float64) {
	if w.count == len(w.buf) {
		old := w.buf[w.next]
		w.sum -= old
		w.sumSq -= old * old
	} else {
		w.count++
	}
	w.buf[w.next] = v
	w.sum += v
	w.sumSq += v * v
	w.next = (w.next + 1) % len(w.buf)
}

func (w *Window) Len() int { return w.count }

func (w *Window) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	return w.sum / float64(w.count)
}

// StdDev returns the population standard deviation of the window. A window
// of one sample has zero deviation.
func (w *Window) StdDev() float64 {
	if w.count == 0 {
		return 0
	}
	mean := w.Mean()
	variance := w.sumSq/float64(w.count) - mean*mean
	if variance < 0 {
		// Running-sum cancellation can push the variance a hair below zero.
		variance = 0
	}
	return math.Sqrt(variance)
}

package utils

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// LatencyTracker keeps a bounded window of recent durations and computes percentiles over it.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
	total   int
}

// NewLatencyTracker creates a tracker storing up to maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{samples: make([]float64, maxSize)}
}

// Observe records a new duration, overwriting the oldest once the window is full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.samples[l.next] = float64(d)
	l.total++
	l.next++
	if l.next == len(l.samples) {
		l.next = 0
		l.full = true
	}
}

// Percentile returns the p-th percentile (0-100) of the window, or zero without samples.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.Lock()
	window := append([]float64(nil), l.window()...)
	l.mu.Unlock()

	if len(window) == 0 {
		return 0
	}
	switch {
	case p < 0:
		p = 0
	case p > 100:
		p = 100
	}
	sort.Float64s(window)
	return time.Duration(stat.Quantile(p/100, stat.Empirical, window, nil))
}

// Count returns the number of samples in the window.
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.window())
}

// Total returns the number of samples observed since creation, including evicted ones.
func (l *LatencyTracker) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

func (l *LatencyTracker) window() []float64 {
	if l.full {
		return l.samples
	}
	return l.samples[:l.next]
}

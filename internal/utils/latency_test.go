package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	durations := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond}
	for _, d := range durations {
		tracker.Observe(d)
	}

	if tracker.Count() != len(durations) {
		t.Fatalf("expected count %d, got %d", len(durations), tracker.Count())
	}

	if p95 := tracker.Percentile(95); p95 < 40*time.Millisecond {
		t.Fatalf("expected percentile >= 40ms, got %v", p95)
	}
	if p0 := tracker.Percentile(0); p0 != 10*time.Millisecond {
		t.Fatalf("expected minimum 10ms, got %v", p0)
	}
	if p100 := tracker.Percentile(150); p100 != 50*time.Millisecond {
		t.Fatalf("expected maximum 50ms, got %v", p100)
	}
}

func TestLatencyTrackerBoundedSize(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("expected tracker size 3, got %d", tracker.Count())
	}
	if min := tracker.Percentile(0); min != 7*time.Millisecond {
		t.Fatalf("expected oldest samples to be dropped, min=%v", min)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	if got := NewLatencyTracker(0).Percentile(50); got != 0 {
		t.Fatalf("expected zero percentile without samples, got %v", got)
	}
}

func TestLatencyTrackerTotalKeepsCounting(t *testing.T) {
	tracker := NewLatencyTracker(4)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Millisecond)
	}
	if tracker.Count() != 4 {
		t.Fatalf("expected window of 4, got %d", tracker.Count())
	}
	if tracker.Total() != 10 {
		t.Fatalf("expected 10 observed samples, got %d", tracker.Total())
	}
}

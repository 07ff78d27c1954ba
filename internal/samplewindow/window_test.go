// ABOUTME: Tests for the bounded sample window and low-jitter estimator
// ABOUTME: Verifies capacity bound and the weighted-mean selection rule from spec.md §4.3
package samplewindow

import (
	"math"
	"testing"

	"github.com/betterclock/betterclock-go/internal/timestampmath"
)

func TestPushRespectsCapacity(t *testing.T) {
	w := New()
	for i := 0; i < Capacity+10; i++ {
		w.Push(timestampmath.Sample{RTTMS: float64(i), OffsetMS: float64(i)})
	}
	if w.Len() != Capacity {
		t.Fatalf("expected len %d, got %d", Capacity, w.Len())
	}
}

func TestEstimateEmptyWindow(t *testing.T) {
	w := New()
	target := w.Estimate()
	if target != (Target{}) {
		t.Errorf("expected zero target for empty window, got %+v", target)
	}
}

func TestEstimateSelectsLowRTTSamples(t *testing.T) {
	w := New()
	// Minimum rtt is 4; samples within 4+8=12 should be selected, plus the
	// floor of 5 lowest if fewer qualify.
	rtts := []float64{4, 4, 30, 4, 80, 4, 5}
	for _, rtt := range rtts {
		w.Push(timestampmath.Sample{RTTMS: rtt, OffsetMS: 100})
	}
	target := w.Estimate()
	// All offsets are 100, so regardless of weighting the result must be 100.
	if math.Abs(target.OffsetMS-100) > 1e-9 {
		t.Errorf("expected offset 100, got %v", target.OffsetMS)
	}
	// Weighted rtt must not include the 30/80 outliers pulling it far up.
	if target.RTTMS > 10 {
		t.Errorf("expected low-jitter rtt estimate, got %v", target.RTTMS)
	}
}

func TestEstimateFallsBackToFloorWhenFewQualify(t *testing.T) {
	w := New()
	// Only one sample near the minimum; the rest are all far above
	// min+headroom, so fewer than LowRTTSampleFloor qualify and the floor
	// of 5 lowest-rtt samples is used instead.
	rtts := []float64{1, 50, 60, 70, 80, 90}
	for _, rtt := range rtts {
		w.Push(timestampmath.Sample{RTTMS: rtt, OffsetMS: rtt})
	}
	target := w.Estimate()
	if target.RTTMS <= 0 {
		t.Errorf("expected a positive weighted rtt, got %v", target.RTTMS)
	}
	// The floor selection keeps 1, 50, 60, 70, 80 and excludes the highest (90).
	if target.RTTMS > 70 {
		t.Errorf("expected floor selection to exclude the highest outliers, got %v", target.RTTMS)
	}
}

func TestEstimateWeightsSumToOneEquivalently(t *testing.T) {
	w := New()
	rtts := []float64{2, 2, 2, 2, 2}
	for _, rtt := range rtts {
		w.Push(timestampmath.Sample{RTTMS: rtt, OffsetMS: 10})
	}
	target := w.Estimate()
	if math.Abs(target.OffsetMS-10) > 1e-9 {
		t.Errorf("uniform samples should average to the same offset, got %v", target.OffsetMS)
	}
}

func TestMinRTTMS(t *testing.T) {
	w := New()
	w.Push(timestampmath.Sample{RTTMS: 9})
	w.Push(timestampmath.Sample{RTTMS: 3})
	w.Push(timestampmath.Sample{RTTMS: 7})
	if w.MinRTTMS() != 3 {
		t.Errorf("expected min rtt 3, got %v", w.MinRTTMS())
	}
}

func TestClear(t *testing.T) {
	w := New()
	w.Push(timestampmath.Sample{RTTMS: 1})
	w.Clear()
	if w.Len() != 0 {
		t.Errorf("expected empty window after Clear, got len %d", w.Len())
	}
}

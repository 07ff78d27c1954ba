// ABOUTME: Bounded FIFO of (rtt, offset) samples with a low-jitter weighted estimator
// ABOUTME: Adapted from the clock-sync package's sample tracking, generalized to spec's weighted-mean selection
package samplewindow

import "github.com/betterclock/betterclock-go/internal/timestampmath"

// Capacity is the maximum number of samples retained (spec.md: LATENCY_SAMPLE_WINDOW).
const Capacity = 24

// LowRTTHeadroomMS is the RTT headroom above the window minimum used to
// select "low jitter" samples.
const LowRTTHeadroomMS = 8.0

// LowRTTSampleFloor is the minimum number of samples kept even if fewer
// fall within LowRTTHeadroomMS of the minimum.
const LowRTTSampleFloor = 5

// Window is a bounded ring buffer of latency samples. Not safe for
// concurrent use; callers (the offset model) own it outright.
type Window struct {
	samples []timestampmath.Sample
	next    int
	full    bool
}

// New creates an empty Window with capacity Capacity.
func New() *Window {
	return &Window{samples: make([]timestampmath.Sample, 0, Capacity)}
}

// Push appends a sample, evicting the oldest once the window is full.
func (w *Window) Push(s timestampmath.Sample) {
	if len(w.samples) < Capacity {
		w.samples = append(w.samples, s)
		return
	}
	w.samples[w.next] = s
	w.next = (w.next + 1) % Capacity
	w.full = true
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	return len(w.samples)
}

// Clear empties the window, used on Session.Reconnect.
func (w *Window) Clear() {
	w.samples = w.samples[:0]
	w.next = 0
	w.full = false
}

// MinRTTMS returns the minimum RTT currently in the window. Panics if the
// window is empty; callers must check Len() first.
func (w *Window) MinRTTMS() float64 {
	best := w.samples[0].RTTMS
	for _, s := range w.samples[1:] {
		if s.RTTMS < best {
			best = s.RTTMS
		}
	}
	return best
}

// Target is the weighted-mean low-jitter estimate described in spec.md §4.3.
type Target struct {
	RTTMS    float64
	OffsetMS float64
}

// Estimate computes the low-jitter weighted target from the current
// window contents:
//
//  1. best_rtt = min(rtt) in the window.
//  2. select samples with rtt <= best_rtt + LowRTTHeadroomMS; if fewer than
//     LowRTTSampleFloor, fall back to the LowRTTSampleFloor lowest-rtt samples.
//  3. weight each by 1/((1+rtt)^2).
//  4. return the weighted means; if total weight <= 0, return the single
//     lowest-rtt sample.
func (w *Window) Estimate() Target {
	if len(w.samples) == 0 {
		return Target{}
	}

	sorted := append([]timestampmath.Sample(nil), w.samples...)
	sortByRTT(sorted)

	bestRTT := sorted[0].RTTMS
	selected := make([]timestampmath.Sample, 0, len(sorted))
	for _, s := range w.samples {
		if s.RTTMS <= bestRTT+LowRTTHeadroomMS {
			selected = append(selected, s)
		}
	}
	if len(selected) < LowRTTSampleFloor {
		floor := LowRTTSampleFloor
		if floor > len(sorted) {
			floor = len(sorted)
		}
		selected = sorted[:floor]
	}

	var weightSum, weightedRTT, weightedOffset float64
	for _, s := range selected {
		weight := 1.0 / ((1.0 + s.RTTMS) * (1.0 + s.RTTMS))
		weightedRTT += s.RTTMS * weight
		weightedOffset += s.OffsetMS * weight
		weightSum += weight
	}

	if weightSum <= 0 {
		return Target{RTTMS: sorted[0].RTTMS, OffsetMS: sorted[0].OffsetMS}
	}
	return Target{RTTMS: weightedRTT / weightSum, OffsetMS: weightedOffset / weightSum}
}

func sortByRTT(samples []timestampmath.Sample) {
	// Small fixed-size window (<=24): insertion sort is simple and fast enough.
	for i := 1; i < len(samples); i++ {
		for j := i; j > 0 && samples[j].RTTMS < samples[j-1].RTTMS; j-- {
			samples[j], samples[j-1] = samples[j-1], samples[j]
		}
	}
}

// ABOUTME: Tests for the slew-rate-limited offset model
// ABOUTME: Uses a fake clock so slew-over-time invariants are deterministic
package offsetmodel

import (
	"math"
	"testing"
	"time"

	"github.com/betterclock/betterclock-go/internal/timestampmath"
	"github.com/jonboulle/clockwork"
)

func TestFirstSampleInitializesDirectly(t *testing.T) {
	m := New()
	m.Update(timestampmath.Sample{RTTMS: 10, OffsetMS: 150})

	if !m.Initialized() {
		t.Fatal("expected model initialized after first sample")
	}
	if m.OffsetMS() != 150 {
		t.Errorf("expected offset 150 on first sample, got %v", m.OffsetMS())
	}
	if m.DesyncMS() != 0 {
		t.Errorf("expected zero desync on first sample, got %v", m.DesyncMS())
	}
}

func TestSlewRateNeverExceedsBudgetPerStep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewWithClock(clock)

	m.Update(timestampmath.Sample{RTTMS: 5, OffsetMS: 0})
	pollInterval := 100 * time.Millisecond

	for i := 0; i < 50; i++ {
		clock.Advance(pollInterval)
		before := m.OffsetMS()
		m.Update(timestampmath.Sample{RTTMS: 5, OffsetMS: 500})
		after := m.OffsetMS()

		maxStep := SlewRateMSPerSec * pollInterval.Seconds()
		if delta := math.Abs(after - before); delta > maxStep+1e-9 {
			t.Fatalf("step %d: delta %v exceeds max step %v", i, delta, maxStep)
		}
	}
}

func TestOffsetConvergesWithinTenSamples(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewWithClock(clock)

	rtts := []float64{4, 4, 30, 4, 80, 4, 4, 30, 4, 4, 80, 4, 4, 4, 30}
	pollInterval := 200 * time.Millisecond

	for i := 0; i < 30; i++ {
		clock.Advance(pollInterval)
		m.Update(timestampmath.Sample{RTTMS: rtts[i%len(rtts)], OffsetMS: 150})
		if i == 9 {
			if math.Abs(m.OffsetMS()-150) > 5 {
				t.Fatalf("after 10 samples expected offset near 150, got %v", m.OffsetMS())
			}
		}
	}
}

func TestFastGainAppliedWhenNearBestRTT(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewWithClock(clock)

	m.Update(timestampmath.Sample{RTTMS: 5, OffsetMS: 0})
	clock.Advance(time.Second)
	m.Update(timestampmath.Sample{RTTMS: 5, OffsetMS: 100})

	// Both samples share rtt 5, so the window estimate is their mean offset
	// (50) and desync = 50. The sample rtt is within FastGainRTTSlackMS of the
	// window minimum, so fast gain 0.35 applies; max step for 1s = 240ms, so
	// the step is gain-limited, not slew-limited: step = 50*0.35 = 17.5.
	if m.OffsetMS() <= 0 {
		t.Errorf("expected offset to move toward target, got %v", m.OffsetMS())
	}
	if want := 50 * DesyncGainFast; math.Abs(m.OffsetMS()-want) > 1e-9 {
		t.Errorf("expected fast-gain step to %v, got %v", want, m.OffsetMS())
	}
}

func TestResetClearsState(t *testing.T) {
	m := New()
	m.Update(timestampmath.Sample{RTTMS: 5, OffsetMS: 100})
	m.Reset()

	if m.Initialized() {
		t.Error("expected uninitialized after reset")
	}
	if m.OffsetMS() != 0 || m.DesyncMS() != 0 || m.RTTEWMAMS() != 0 {
		t.Error("expected zeroed offset state after reset")
	}
	if m.SampleCount() != 0 {
		t.Error("expected empty window after reset")
	}
}

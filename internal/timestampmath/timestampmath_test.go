// ABOUTME: Tests for four-timestamp offset/RTT computation
// ABOUTME: Mirrors the hand-computed-expectation style used for the teacher's clock sync tests
package timestampmath

import "testing"

func f(v float64) *float64 { return &v }

func TestComputeBothServerTimestamps(t *testing.T) {
	// t1=1000, t2=1002 (server recv, +2ms), t3=1002.5 (server send, +0.5ms proc), t4=1005
	sample := Compute(1000, 1005, f(1002), f(1002.5), 999)

	// rtt = (t4-t1) - (t3-t2) = 5 - 0.5 = 4.5
	if sample.RTTMS != 4.5 {
		t.Errorf("expected rtt 4.5, got %v", sample.RTTMS)
	}
	// offset = ((t2-t1) + (t3-t4)) / 2 = (2 + -2.5) / 2 = -0.25
	if sample.OffsetMS != -0.25 {
		t.Errorf("expected offset -0.25, got %v", sample.OffsetMS)
	}
}

func TestComputeNegativeRTTFallsBackToWallClock(t *testing.T) {
	// Engineer t3-t2 bigger than t4-t1 so the four-timestamp rtt goes negative.
	sample := Compute(1000, 1001, f(1000), f(1010), 42)
	if sample.RTTMS != 42 {
		t.Errorf("expected fallback rtt 42, got %v", sample.RTTMS)
	}
}

func TestComputeOnlyResponseSendPresent(t *testing.T) {
	// offset = t3 - midpoint(t1,t4); rtt = fallback
	sample := Compute(1000, 1010, nil, f(1100), 17)
	if sample.RTTMS != 17 {
		t.Errorf("expected fallback rtt 17, got %v", sample.RTTMS)
	}
	wantOffset := 1100.0 - 1005.0
	if sample.OffsetMS != wantOffset {
		t.Errorf("expected offset %v, got %v", wantOffset, sample.OffsetMS)
	}
}

func TestComputeNoServerTimestamps(t *testing.T) {
	sample := Compute(1000, 1010, nil, nil, 23)
	if sample.RTTMS != 23 {
		t.Errorf("expected fallback rtt 23, got %v", sample.RTTMS)
	}
	if sample.OffsetMS != 0 {
		t.Errorf("expected offset 0 at midpoint, got %v", sample.OffsetMS)
	}
}

func TestComputeClampsExtremeValues(t *testing.T) {
	sample := Compute(0, 1_000_000, f(0), f(1), 999999)
	if sample.RTTMS != MaxReasonableRTTMS {
		t.Errorf("expected rtt clamped to %v, got %v", MaxReasonableRTTMS, sample.RTTMS)
	}

	sample2 := Compute(0, 0, f(1_000_000), f(0), 0)
	if sample2.OffsetMS != -MaxReasonableOffsetMS && sample2.OffsetMS != MaxReasonableOffsetMS {
		t.Errorf("expected offset clamped to a boundary, got %v", sample2.OffsetMS)
	}
}

func TestComputeAtExactRTTBoundaryIsRetained(t *testing.T) {
	// Construct an rtt exactly at MaxReasonableRTTMS via the fallback path.
	sample := Compute(0, 0, nil, nil, MaxReasonableRTTMS)
	if sample.RTTMS != MaxReasonableRTTMS {
		t.Errorf("expected rtt exactly at boundary retained, got %v", sample.RTTMS)
	}

	over := Compute(0, 0, nil, nil, MaxReasonableRTTMS+0.5)
	if over.RTTMS != MaxReasonableRTTMS {
		t.Errorf("expected rtt above boundary clamped down, got %v", over.RTTMS)
	}
}

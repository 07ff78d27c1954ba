// ABOUTME: Slew-rate-limited offset integrator with adaptive desync gain
// ABOUTME: Adapted from the clock-sync package's ClockSync, replacing fixed EWMA with spec's windowed estimator
package offsetmodel

import (
	"sync"
	"time"

	"github.com/betterclock/betterclock-go/internal/samplewindow"
	"github.com/betterclock/betterclock-go/internal/timestampmath"
	"github.com/jonboulle/clockwork"
)

// Tuning constants named per spec.md §9 ("module-level constants must be
// exposed as named constants, not magic numbers").
const (
	SlewRateMSPerSec   = 240.0
	DesyncGainFast     = 0.35
	DesyncGainSlow     = 0.16
	RTTEWMAAlpha       = 0.25
	FastGainRTTSlackMS = 3.0
)

// Model holds the slew-rate-limited display offset plus the RTT EWMA and
// backing sample window. Guarded by a mutex so a Session's single-owner
// contract (spec.md §5) is enforced rather than merely documented.
type Model struct {
	mu sync.Mutex

	clock  clockwork.Clock
	window *samplewindow.Window

	initialized    bool
	offsetDisplay  float64
	offsetDesync   float64
	rttEWMA        float64
	lastUpdateTime time.Time
}

// New creates a Model using the real wall/monotonic clock.
func New() *Model {
	return NewWithClock(clockwork.NewRealClock())
}

// NewWithClock creates a Model driven by the given clock, for deterministic
// slew-rate tests.
func NewWithClock(clock clockwork.Clock) *Model {
	return &Model{
		clock:  clock,
		window: samplewindow.New(),
	}
}

// Update pushes a fresh sample and advances the display offset by at most
// one slew step, per spec.md §4.4.
func (m *Model) Update(sample timestampmath.Sample) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.window.Push(sample)
	target := m.window.Estimate()

	if !m.initialized {
		m.offsetDisplay = target.OffsetMS
		m.rttEWMA = target.RTTMS
		m.offsetDesync = 0
		m.initialized = true
		m.lastUpdateTime = m.clock.Now()
		return
	}

	m.rttEWMA = (1-RTTEWMAAlpha)*m.rttEWMA + RTTEWMAAlpha*target.RTTMS

	now := m.clock.Now()
	deltaSeconds := now.Sub(m.lastUpdateTime).Seconds()
	if deltaSeconds < 0.001 {
		deltaSeconds = 0.001
	}
	m.lastUpdateTime = now

	maxStep := SlewRateMSPerSec * deltaSeconds
	desync := target.OffsetMS - m.offsetDisplay
	m.offsetDesync = desync

	bestRTT := m.window.MinRTTMS()
	gain := DesyncGainSlow
	if sample.RTTMS <= bestRTT+FastGainRTTSlackMS {
		gain = DesyncGainFast
	}

	step := desync * gain
	if step > maxStep {
		step = maxStep
	} else if step < -maxStep {
		step = -maxStep
	}
	m.offsetDisplay += step
}

// Initialized reports whether at least one sample has been processed.
func (m *Model) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// OffsetMS returns the current slewed display offset.
func (m *Model) OffsetMS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offsetDisplay
}

// DesyncMS returns the most recent target-minus-display backlog.
func (m *Model) DesyncMS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offsetDesync
}

// RTTEWMAMS returns the smoothed RTT.
func (m *Model) RTTEWMAMS() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rttEWMA
}

// SampleCount returns the number of samples currently in the backing window.
func (m *Model) SampleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.window.Len()
}

// Reset clears all offset model state, used by Session.Reconnect.
func (m *Model) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
	m.offsetDisplay = 0
	m.offsetDesync = 0
	m.rttEWMA = 0
	m.window.Clear()
	m.lastUpdateTime = m.clock.Now()
}

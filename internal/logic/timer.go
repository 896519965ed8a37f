package logic

import "github.com/sweeney/button-sensor/internal/clock"

// IntervalTimer fires at a fixed cadence against a wrapping millisecond
// clock. An interval of zero means the timer is always due.
//
// Not safe for concurrent use.
type IntervalTimer struct {
	clock     clock.Clock
	reference uint32 // last acknowledged boundary, never ahead of now
	interval  uint32
}

// NewIntervalTimer creates a timer whose first period starts now.
func NewIntervalTimer(clk clock.Clock, intervalMillis uint32) *IntervalTimer {
	t := &IntervalTimer{clock: clk, interval: intervalMillis}
	t.Reset()
	return t
}

// WentOff reports whether a period boundary has been reached since the last
// firing. A poll that is late by several periods fires once and moves the
// reference to the latest boundary at or before now.
func (t *IntervalTimer) WentOff() bool {
	now := t.clock.Millis()

	if t.interval == 0 {
		t.reference = now
		return true
	}

	if clock.Elapsed(now, t.reference) < t.interval {
		return false
	}

	for clock.Elapsed(now, t.reference) >= t.interval {
		t.reference += t.interval
		if t.reference < t.interval {
			// The addition wrapped the counter; finish catching up on the
			// next poll.
			break
		}
	}
	return true
}

// RemainingMillis returns the time until the next boundary, or 0 if it is
// already due.
func (t *IntervalTimer) RemainingMillis() uint32 {
	if t.interval == 0 {
		return 0
	}
	elapsed := clock.Elapsed(t.clock.Millis(), t.reference)
	if elapsed >= t.interval {
		return 0
	}
	return t.interval - elapsed
}

// IntervalMillis returns the configured period.
func (t *IntervalTimer) IntervalMillis() uint32 {
	return t.interval
}

// SetIntervalMillis changes the period. A different value restarts the
// phase; the same value leaves the timer untouched.
func (t *IntervalTimer) SetIntervalMillis(ms uint32) {
	if t.interval == ms {
		return
	}
	t.interval = ms
	t.Reset()
}

// Reset starts a new period at the current time without changing the
// interval.
func (t *IntervalTimer) Reset() {
	t.reference = t.clock.Millis()
}

package logic

import "github.com/sweeney/button-sensor/internal/clock"

// Default button timing in milliseconds.
const (
	DefaultDebounceMillis uint32 = 50
	DefaultHoldMillis     uint32 = 500
)

// Button is a polled, debounced, active-low push button.
//
// Update must be called more often than the debounce timeout. Not safe for
// concurrent use; callers sharing a Button across goroutines must serialize
// access themselves.
type Button struct {
	line  Line
	clock clock.Clock

	state        State
	debouncing   bool
	debounceTime uint32 // start of the debounce window, also the hold reference
	clickPending bool

	debounceMillis uint32
	holdMillis     uint32
}

// NewButton creates a released button reading line, with default timeouts.
func NewButton(line Line, clk clock.Clock) *Button {
	return &Button{
		line:           line,
		clock:          clk,
		debounceMillis: DefaultDebounceMillis,
		holdMillis:     DefaultHoldMillis,
	}
}

// Update samples the line once and advances the state machine.
func (b *Button) Update() {
	now := b.clock.Millis()
	active := !b.line.Level()

	// Re-arming is skipped once the press is committed, so a running press
	// keeps its original reference point.
	if active && b.state != StatePressed && b.state != StateHeld {
		if !b.debouncing {
			b.debouncing = true
			b.debounceTime = now
			b.clickPending = false
		} else if clock.Elapsed(now, b.debounceTime) >= b.debounceMillis {
			b.state = StatePressed
		}
	}

	if !active {
		b.debouncing = false
		if b.state == StatePressed {
			b.clickPending = true
		}
		b.state = StateReleased
	}

	if b.state == StatePressed && clock.Elapsed(now, b.debounceTime) >= b.holdMillis {
		b.state = StateHeld
	}
}

// IsClicked reports whether a click is pending and consumes it.
func (b *Button) IsClicked() bool {
	if b.clickPending {
		b.clickPending = false
		return true
	}
	return false
}

// IsPressed reports whether the button is pressed but not yet held.
func (b *Button) IsPressed() bool {
	return b.state == StatePressed
}

// IsReleased reports whether the button is released.
func (b *Button) IsReleased() bool {
	return b.state == StateReleased
}

// IsHeld reports whether the button has been pressed past the hold timeout.
func (b *Button) IsHeld() bool {
	return b.state == StateHeld
}

// State returns the current level state.
func (b *Button) State() State {
	return b.state
}

// DebounceTimeoutMillis returns the debounce timeout.
func (b *Button) DebounceTimeoutMillis() uint32 {
	return b.debounceMillis
}

// SetDebounceTimeoutMillis changes the debounce timeout. An open window keeps
// its start time and is compared against the new threshold.
func (b *Button) SetDebounceTimeoutMillis(ms uint32) {
	b.debounceMillis = ms
}

// HoldTimeoutMillis returns the hold timeout.
func (b *Button) HoldTimeoutMillis() uint32 {
	return b.holdMillis
}

// SetHoldTimeoutMillis changes the hold timeout, measured from the start of
// the debounce window.
func (b *Button) SetHoldTimeoutMillis(ms uint32) {
	b.holdMillis = ms
}

// Reset returns the button to released and idle. Timeouts are kept.
func (b *Button) Reset() {
	b.state = StateReleased
	b.debouncing = false
	b.debounceTime = 0
	b.clickPending = false
}

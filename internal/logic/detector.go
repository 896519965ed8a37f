package logic

import (
	"time"

	"github.com/sweeney/button-sensor/internal/clock"
)

// Detector drives a Button once per poll and turns its state changes and
// clicks into events. It also owns the heartbeat timer.
type Detector struct {
	button    *Button
	clock     clock.Clock
	heartbeat *IntervalTimer // nil when heartbeats are disabled
	last      State
	startTime time.Time
	counts    EventCounts
}

// NewDetector creates a detector for the button on line.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(line Line, clk clock.Clock, tun Tunables, startTime time.Time) *Detector {
	d := &Detector{
		button:    NewButton(line, clk),
		clock:     clk,
		startTime: startTime,
	}
	d.Configure(tun)
	return d
}

// Configure applies new timeouts and heartbeat interval. A zero debounce or
// hold value falls back to the button default. A zero heartbeat disables
// heartbeats; changing it restarts the heartbeat phase.
func (d *Detector) Configure(tun Tunables) {
	debounce := tun.DebounceMillis
	if debounce == 0 {
		debounce = DefaultDebounceMillis
	}
	hold := tun.HoldMillis
	if hold == 0 {
		hold = DefaultHoldMillis
	}
	d.button.SetDebounceTimeoutMillis(debounce)
	d.button.SetHoldTimeoutMillis(hold)

	switch {
	case tun.HeartbeatMillis == 0:
		d.heartbeat = nil
	case d.heartbeat == nil:
		d.heartbeat = NewIntervalTimer(d.clock, tun.HeartbeatMillis)
	default:
		d.heartbeat.SetIntervalMillis(tun.HeartbeatMillis)
	}
}

// Poll samples the button once and returns any events that should be emitted.
// When a release completes a click, RELEASED precedes CLICK.
func (d *Detector) Poll(at time.Time) []Event {
	d.button.Update()
	state := d.button.State()

	var events []Event

	if state != d.last {
		var typ EventType
		switch state {
		case StatePressed:
			typ = EventPressed
			d.counts.Presses++
		case StateHeld:
			typ = EventHeld
			d.counts.Holds++
		default:
			typ = EventReleased
			d.counts.Releases++
		}
		events = append(events, Event{Timestamp: at, Type: typ, State: state})
		d.last = state
	}

	if d.button.IsClicked() {
		d.counts.Clicks++
		events = append(events, Event{Timestamp: at, Type: EventClick, State: state})
	}

	return events
}

// CurrentState returns the current debounced state.
func (d *Detector) CurrentState() State {
	return d.button.State()
}

// EventCountsSnapshot returns a copy of the event counters.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.counts
}

// Button exposes the underlying button, e.g. for Reset.
func (d *Detector) Button() *Button {
	return d.button
}

// Reset forces the button back to released without emitting events.
func (d *Detector) Reset() {
	d.button.Reset()
	d.last = StateReleased
}

// CheckHeartbeat returns heartbeat data if the heartbeat timer went off.
// Returns nil if heartbeats are disabled or the interval has not elapsed.
func (d *Detector) CheckHeartbeat(at time.Time) *HeartbeatData {
	if d.heartbeat == nil || !d.heartbeat.WentOff() {
		return nil
	}
	return &HeartbeatData{
		Timestamp: at,
		Uptime:    at.Sub(d.startTime),
		State:     d.button.State(),
		Counts:    d.counts,
	}
}

// HeartbeatRemaining returns the time until the next heartbeat, or zero when
// heartbeats are disabled.
func (d *Detector) HeartbeatRemaining() time.Duration {
	if d.heartbeat == nil {
		return 0
	}
	return time.Duration(d.heartbeat.RemainingMillis()) * time.Millisecond
}

// Package logic contains the pure button and timer state machines.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable: millisecond time through clock.Clock, wall time
// through time.Time parameters.
package logic

import "time"

// State is the debounced level state of a button.
type State int

const (
	StateReleased State = iota
	StatePressed
	StateHeld
)

func (s State) String() string {
	switch s {
	case StateReleased:
		return "RELEASED"
	case StatePressed:
		return "PRESSED"
	case StateHeld:
		return "HELD"
	}
	return "UNKNOWN"
}

// EventType represents something the detector reports to the outside.
type EventType string

const (
	EventPressed  EventType = "PRESSED"
	EventHeld     EventType = "HELD"
	EventReleased EventType = "RELEASED"
	EventClick    EventType = "CLICK"
)

// Event represents a button event to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	// State is the button level state after the event.
	State State
}

// Line reads the raw electrical level of an input. true = high.
type Line interface {
	Level() bool
}

// LineFunc adapts an ordinary function to the Line interface.
type LineFunc func() bool

// Level calls f.
func (f LineFunc) Level() bool {
	return f()
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Presses  int
	Holds    int
	Releases int
	Clicks   int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	State     State
	Counts    EventCounts
}

// Tunables are the settings that may change while the daemon runs.
type Tunables struct {
	DebounceMillis  uint32
	HoldMillis      uint32
	HeartbeatMillis uint32
}

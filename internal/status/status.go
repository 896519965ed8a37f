// Package status provides a thread-safe status tracker for the button-sensor daemon.
// It is written by the run loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Name        string
	Pin         int
	PollMs      int64
	DebounceMs  int64
	HoldMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	LogLevel    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State              logic.State
	Counts             logic.EventCounts
	HeartbeatRemaining time.Duration
	StartTime          time.Time
	Now                time.Time
	MQTTConnected      bool
	Network            *NetworkInfo
	Config             Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the button state, event counts and heartbeat countdown.
// Called from runLoop on every tick.
func (t *Tracker) Update(state logic.State, counts logic.EventCounts, heartbeatRemaining time.Duration) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Counts = counts
	t.snap.HeartbeatRemaining = heartbeatRemaining
	t.mu.Unlock()
}

// SetTunables records timeouts applied by a config reload.
func (t *Tracker) SetTunables(tun logic.Tunables) {
	t.mu.Lock()
	t.snap.Config.DebounceMs = int64(tun.DebounceMillis)
	t.snap.Config.HoldMs = int64(tun.HoldMillis)
	t.snap.Config.HeartbeatMs = int64(tun.HeartbeatMillis)
	t.mu.Unlock()
}

// SetLogLevel records the effective log level for display.
func (t *Tracker) SetLogLevel(level string) {
	t.mu.Lock()
	t.snap.Config.LogLevel = level
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

package status

import (
	"time"

	json "github.com/goccy/go-json"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event                string       `json:"event,omitempty"`
	Reason               string       `json:"reason,omitempty"`
	Name                 string       `json:"name,omitempty"`
	State                string       `json:"state"`
	UptimeSeconds        int64        `json:"uptime_seconds"`
	StartTime            string       `json:"start_time"`
	Timestamp            string       `json:"timestamp"`
	NextHeartbeatSeconds int64        `json:"next_heartbeat_seconds"`
	MQTT                 MQTTStatus   `json:"mqtt"`
	Counts               CountsJSON   `json:"event_counts"`
	Network              *NetworkJSON `json:"network,omitempty"`
	Config               ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Presses  int `json:"presses"`
	Holds    int `json:"holds"`
	Releases int `json:"releases"`
	Clicks   int `json:"clicks"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Pin         int    `json:"pin"`
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HoldMs      int64  `json:"hold_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	LogLevel    string `json:"log_level,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Name:                 snap.Config.Name,
		State:                snap.State.String(),
		UptimeSeconds:        int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:            snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:            snap.Now.UTC().Format(time.RFC3339),
		NextHeartbeatSeconds: int64(snap.HeartbeatRemaining.Round(time.Second).Seconds()),
		MQTT:                 MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Presses:  snap.Counts.Presses,
			Holds:    snap.Counts.Holds,
			Releases: snap.Counts.Releases,
			Clicks:   snap.Counts.Clicks,
		},
		Config: ConfigJSON{
			Pin:         snap.Config.Pin,
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HoldMs:      snap.Config.HoldMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			LogLevel:    snap.Config.LogLevel,
		},
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

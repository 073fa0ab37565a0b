package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Tripped       bool         `json:"tripped"`
	Value         int          `json:"value"`
	Present       bool         `json:"present"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"verdict_counts"`
	Live          LiveJSON     `json:"live_config"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of verdict counts.
type CountsJSON struct {
	Pass          int `json:"pass"`
	PassOverride  int `json:"pass_override"`
	EmptyEnvelope int `json:"empty_envelope"`
	DoubleCard    int `json:"double_card"`
	Trips         int `json:"trips"`
}

// LiveJSON is the JSON representation of the runtime-mutable config.
type LiveJSON struct {
	ThresholdLow  int  `json:"threshold_low"`
	ThresholdHigh int  `json:"threshold_high,omitempty"`
	DualThreshold bool `json:"dual_threshold"`
	BaseFloor     int  `json:"base_floor"`
	ReverseSensor bool `json:"reverse_sensor"`
	Override      bool `json:"override"`
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

// ConfigJSON is the JSON representation of the fixed daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	WatchdogMs  int64  `json:"watchdog_ms"`
	TelemetryMs int64  `json:"telemetry_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	SerialPort  string `json:"serial_port"`
	BaudRate    int    `json:"baud_rate"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}

	return StatusInner{
		State:         state,
		Tripped:       snap.Tripped,
		Value:         snap.Value,
		Present:       snap.Present,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Pass:          snap.Counts.Pass,
			PassOverride:  snap.Counts.PassOverride,
			EmptyEnvelope: snap.Counts.EmptyEnvelope,
			DoubleCard:    snap.Counts.DoubleCard,
			Trips:         snap.Counts.Trips,
		},
		Live: LiveJSON{
			ThresholdLow:  snap.Live.CardThresholdLow,
			ThresholdHigh: snap.Live.CardThresholdHigh,
			DualThreshold: snap.Live.DualThreshold,
			BaseFloor:     snap.Live.BaseFloor,
			ReverseSensor: snap.Live.ReverseSensor,
			Override:      snap.Live.SafetyOverride,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			WatchdogMs:  snap.Config.WatchdogMs,
			TelemetryMs: snap.Config.TelemetryMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			SerialPort:  snap.Config.SerialPort,
			BaudRate:    snap.Config.BaudRate,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
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
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON payload for a system MQTT event
// carrying a full status snapshot.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

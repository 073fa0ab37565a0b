// Package status provides a thread-safe status tracker for the
// card-interlock daemon. It is read by the HTTP handlers and by the
// MQTT heartbeat, while the control loop writes it every tick.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/card-interlock/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains the fixed daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	WatchdogMs  int64
	TelemetryMs int64
	HeartbeatMs int64
	SerialPort  string
	BaudRate    int
	Broker      string
	HTTPPort    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	Value         int
	Present       bool
	State         logic.State
	Tripped       bool
	Counts        logic.Counts
	Live          logic.Config // runtime-mutable thresholds and flags
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
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
			State:     logic.StateIdle,
			Config:    cfg,
		},
	}
}

// Update sets the per-tick view of the controller.
// Called from the run loop on every tick.
func (t *Tracker) Update(value int, present bool, state logic.State, tripped bool, counts logic.Counts, live logic.Config) {
	t.mu.Lock()
	t.snap.Value = value
	t.snap.Present = present
	t.snap.State = state
	t.snap.Tripped = tripped
	t.snap.Counts = counts
	t.snap.Live = live
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

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/card-interlock/internal/adc"
	"github.com/sweeney/card-interlock/internal/gpio"
	"github.com/sweeney/card-interlock/internal/link"
	"github.com/sweeney/card-interlock/internal/logic"
	"github.com/sweeney/card-interlock/internal/mqtt"
	"github.com/sweeney/card-interlock/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants — not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	if info.Type != "wifi" {
		t.Errorf("Type: got %q, want %q", info.Type, "wifi")
	}
	if info.IP != "192.168.1.100" {
		t.Errorf("IP: got %q, want %q", info.IP, "192.168.1.100")
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q, want %q", info.Status, "connected")
	}
	if info.Gateway != "192.168.1.1" {
		t.Errorf("Gateway: got %q, want %q", info.Gateway, "192.168.1.1")
	}
	if info.WifiStatus != "connected" {
		t.Errorf("WifiStatus: got %q, want %q", info.WifiStatus, "connected")
	}
	if info.SSID != "MyNetwork" {
		t.Errorf("SSID: got %q, want %q", info.SSID, "MyNetwork")
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	info := readNetworkInfo()
	if info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q, want %q", info.Status, "connected")
	}
	if info.Type != "" {
		t.Errorf("Type: got %q, want empty", info.Type)
	}
	if info.SSID != "" {
		t.Errorf("SSID: got %q, want empty", info.SSID)
	}
}

// --- runLoop tests ---

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// repeatBool returns n copies of sample.
func repeatBool(sample bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = sample
	}
	return out
}

// faultSensor wraps a FakeReader and returns errors for a range of Read() calls.
// No shared mutable state — the fault range is fixed at construction.
type faultSensor struct {
	inner      *adc.FakeReader
	call       int
	faultStart int // first call index that returns error (inclusive)
	faultEnd   int // last call index that returns error (exclusive)
}

func (r *faultSensor) Read() (int, error) {
	i := r.call
	r.call++
	if i >= r.faultStart && i < r.faultEnd {
		return 0, errors.New("adc fault")
	}
	return r.inner.Read()
}

func (r *faultSensor) Close() error { return r.inner.Close() }

// loopRig bundles runLoop's collaborators for a test run.
type loopRig struct {
	sensor    adc.Reader
	pins      *gpio.FakePair
	transport *link.FakeTransport
	pub       *mqtt.FakePublisher
	tracker   *status.Tracker
}

func newLoopRig(rawSamples []int, presenceSamples []bool) *loopRig {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &loopRig{
		sensor:    adc.NewFakeReader(rawSamples),
		pins:      gpio.NewFakePair(presenceSamples),
		transport: link.NewFakeTransport(),
		pub:       mqtt.NewFakePublisher(),
		tracker:   status.NewTracker(start, status.Config{PollMs: 2, Broker: "tcp://test:1883"}),
	}
}

// drive runs runLoop for nTicks ticks and then delivers the signal.
func (r *loopRig) drive(t *testing.T, cfg logic.Config, heartbeat time.Duration, clock func() time.Time, nTicks int, signal os.Signal) error {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(cfg, logic.Options{}, r.sensor, r.pins, r.transport, r.pub, r.pub, r.tracker, heartbeat, clock, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- signal

	return <-errCh
}

func (r *loopRig) hasLine(want string) bool {
	for _, l := range r.transport.WrittenLines() {
		if l == want {
			return true
		}
	}
	return false
}

func TestRunLoopBootAndShutdown(t *testing.T) {
	rig := newLoopRig([]int{500}, []bool{false})
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2*time.Millisecond)

	err := rig.drive(t, logic.DefaultConfig(), 0, clock, 4, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	// Boot releases the actuator, shutdown parks it stopped.
	if len(rig.pins.StopCommands) < 2 {
		t.Fatalf("expected boot and shutdown stop commands, got %v", rig.pins.StopCommands)
	}
	if rig.pins.StopCommands[0] != false {
		t.Error("boot should release the stop output")
	}
	if !rig.pins.Stopped {
		t.Error("shutdown should leave the machine stopped")
	}
	if !rig.hasLine("MSG:System Booted") {
		t.Error("missing boot banner on the host link")
	}

	if len(rig.pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(rig.pub.SystemEvents))
	}
	se := rig.pub.SystemEvents[0]
	if se.Event != "SHUTDOWN" {
		t.Errorf("expected SHUTDOWN event, got %q", se.Event)
	}
	if se.Reason != "SIGTERM" {
		t.Errorf("expected reason SIGTERM, got %q", se.Reason)
	}
	if se.Retained != true {
		t.Error("expected Retained=true for SHUTDOWN")
	}
}

func TestRunLoopShutdownSIGINT(t *testing.T) {
	rig := newLoopRig([]int{500}, []bool{false})
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2*time.Millisecond)

	err := rig.drive(t, logic.DefaultConfig(), 0, clock, 2, syscall.SIGINT)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if len(rig.pub.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(rig.pub.SystemEvents))
	}
	if rig.pub.SystemEvents[0].Reason != "SIGINT" {
		t.Errorf("expected reason SIGINT, got %q", rig.pub.SystemEvents[0].Reason)
	}

	// The shutdown payload is a full status snapshot.
	var parsed status.StatusJSON
	if err := json.Unmarshal(rig.pub.SystemPayloads[0], &parsed); err != nil {
		t.Fatalf("invalid shutdown payload: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("payload event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGINT" {
		t.Errorf("payload reason: got %q, want SIGINT", parsed.Status.Reason)
	}
}

func TestRunLoopCardPass(t *testing.T) {
	presence := append(
		repeatBool(false, 5),
		append(repeatBool(true, 10), false)...,
	)
	rig := newLoopRig([]int{500}, presence)
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2*time.Millisecond)

	err := rig.drive(t, logic.DefaultConfig(), 0, clock, 30, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if !rig.hasLine("EVT:PASS:500") {
		t.Errorf("missing pass event, lines: %v", rig.transport.WrittenLines())
	}
	if len(rig.pub.Events) != 1 {
		t.Fatalf("expected 1 MQTT event, got %d", len(rig.pub.Events))
	}
	if rig.pub.Events[0].Kind != "PASS" {
		t.Errorf("event kind: got %s, want PASS", rig.pub.Events[0].Kind)
	}
	if rig.pub.Events[0].Peak != 500 {
		t.Errorf("event peak: got %d, want 500", rig.pub.Events[0].Peak)
	}
}

func TestRunLoopDoubleCardStopsFeeder(t *testing.T) {
	presence := append(
		repeatBool(false, 5),
		append(repeatBool(true, 10), false)...,
	)
	rig := newLoopRig([]int{900}, presence)
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2*time.Millisecond)

	err := rig.drive(t, logic.DefaultConfig(), 0, clock, 30, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if !rig.hasLine("ERR:DOUBLE_CARD:900") {
		t.Errorf("missing trip error, lines: %v", rig.transport.WrittenLines())
	}
	if len(rig.pub.Events) != 1 {
		t.Fatalf("expected 1 MQTT event, got %d", len(rig.pub.Events))
	}
	if rig.pub.Events[0].Kind != "DOUBLE_CARD" {
		t.Errorf("event kind: got %s, want DOUBLE_CARD", rig.pub.Events[0].Kind)
	}
	if !rig.pins.Stopped {
		t.Error("feeder should be stopped")
	}
}

func TestRunLoopSensorReadErrorContinues(t *testing.T) {
	rig := newLoopRig([]int{500}, []bool{false})
	// Boot read succeeds, ticks 1-2 fail, rest succeed.
	rig.sensor = &faultSensor{
		inner:      adc.NewFakeReader([]int{500}),
		faultStart: 1,
		faultEnd:   3,
	}
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2*time.Millisecond)

	err := rig.drive(t, logic.DefaultConfig(), 0, clock, 6, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	found := false
	for _, se := range rig.pub.SystemEvents {
		if se.Event == "SHUTDOWN" {
			found = true
		}
	}
	if !found {
		t.Error("expected SHUTDOWN system event after sensor errors")
	}
}

func TestRunLoopBootSensorErrorFails(t *testing.T) {
	rig := newLoopRig([]int{500}, []bool{false})
	rig.sensor = &faultSensor{
		inner:      adc.NewFakeReader([]int{500}),
		faultStart: 0,
		faultEnd:   1,
	}
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2*time.Millisecond)

	err := rig.drive(t, logic.DefaultConfig(), 0, clock, 0, syscall.SIGTERM)
	if err == nil {
		t.Fatal("expected error when the seed read fails")
	}
}

func TestRunLoopPublishErrorDoesNotStopLoop(t *testing.T) {
	presence := append(
		repeatBool(false, 5),
		append(repeatBool(true, 10), false)...,
	)
	rig := newLoopRig([]int{900}, presence)
	rig.pub.PublishError = fmt.Errorf("broker unavailable")
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2*time.Millisecond)

	err := rig.drive(t, logic.DefaultConfig(), 0, clock, 30, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	// The trip still reaches the wire and the actuator even though the
	// MQTT mirror is down.
	if !rig.hasLine("ERR:DOUBLE_CARD:900") {
		t.Errorf("missing trip error, lines: %v", rig.transport.WrittenLines())
	}
	if !rig.pins.Stopped {
		t.Error("feeder should be stopped despite publish errors")
	}
	if len(rig.pub.Events) != 0 {
		t.Errorf("expected 0 recorded events (publish failed), got %d", len(rig.pub.Events))
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	rig := newLoopRig([]int{500}, []bool{false})
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2*time.Millisecond)

	// 20 ticks at 2ms spans at least three 10ms heartbeat intervals.
	err := rig.drive(t, logic.DefaultConfig(), 10*time.Millisecond, clock, 20, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	var heartbeats, shutdowns int
	for i, se := range rig.pub.SystemEvents {
		switch se.Event {
		case "HEARTBEAT":
			heartbeats++
			var parsed status.StatusJSON
			if err := json.Unmarshal(rig.pub.SystemPayloads[i], &parsed); err != nil {
				t.Fatalf("invalid heartbeat payload: %v", err)
			}
			if parsed.Status.Event != "HEARTBEAT" {
				t.Errorf("payload event: got %q, want HEARTBEAT", parsed.Status.Event)
			}
			if parsed.Status.Value != 500 {
				t.Errorf("payload value: got %d, want 500", parsed.Status.Value)
			}
		case "SHUTDOWN":
			shutdowns++
		}
	}
	if heartbeats < 2 {
		t.Errorf("expected at least 2 HEARTBEAT events, got %d", heartbeats)
	}
	if shutdowns != 1 {
		t.Errorf("expected 1 SHUTDOWN event, got %d", shutdowns)
	}
}

func TestRunLoopUpdatesTracker(t *testing.T) {
	rig := newLoopRig([]int{500}, []bool{false})
	rig.pub.Connected = true
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2*time.Millisecond)

	err := rig.drive(t, logic.DefaultConfig(), 0, clock, 5, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	snap := rig.tracker.Snapshot()
	if snap.Value != 500 {
		t.Errorf("tracker value: got %d, want 500", snap.Value)
	}
	if snap.State != logic.StateIdle {
		t.Errorf("tracker state: got %s, want IDLE", snap.State)
	}
	if snap.Tripped {
		t.Error("tracker should not be tripped")
	}
	if !snap.MQTTConnected {
		t.Error("tracker should report MQTT connected")
	}
	if snap.Live.CardThresholdLow != 150 {
		t.Errorf("tracker live threshold: got %d, want 150", snap.Live.CardThresholdLow)
	}
}

func TestRunLoopHostCommandOverLink(t *testing.T) {
	rig := newLoopRig([]int{500}, []bool{false})
	clock := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 2*time.Millisecond)

	rig.transport.Push("SET_THR:200")
	err := rig.drive(t, logic.DefaultConfig(), 0, clock, 5, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	if !rig.hasLine("MSG:Card Threshold Set to 200") {
		t.Errorf("missing confirmation, lines: %v", rig.transport.WrittenLines())
	}
	if rig.tracker.Snapshot().Live.CardThresholdLow != 200 {
		t.Errorf("tracker should show the new threshold")
	}
}

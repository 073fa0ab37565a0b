package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/card-interlock/internal/logic"
	"github.com/sweeney/card-interlock/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:      2,
		DebounceMs:  10,
		WatchdogMs:  2000,
		TelemetryMs: 100,
		SerialPort:  "/dev/serial0",
		BaudRate:    115200,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPPort:    ":8080",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(512, true, logic.StateMeasuring, false, logic.Counts{Pass: 5}, logic.DefaultConfig())
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.State != "MEASURING" {
		t.Errorf("state: got %q, want MEASURING", sj.Status.State)
	}
	if sj.Status.Value != 512 {
		t.Errorf("value: got %d, want 512", sj.Status.Value)
	}
	if sj.Status.Counts.Pass != 5 {
		t.Errorf("pass count: got %d, want 5", sj.Status.Counts.Pass)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Config.SerialPort != "/dev/serial0" {
		t.Errorf("serial port: got %q", sj.Status.Config.SerialPort)
	}
}

func TestIndexPage(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(480, false, logic.StateFault, true, logic.Counts{DoubleCard: 1, Trips: 1}, logic.DefaultConfig())

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	html := string(body)

	if !strings.Contains(html, "FAULT") {
		t.Error("page missing detection state")
	}
	if !strings.Contains(html, "480") {
		t.Error("page missing sensor value")
	}
	if !strings.Contains(html, "Card Interlock") {
		t.Error("page missing title")
	}
}

func TestUnknownPathIs404(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

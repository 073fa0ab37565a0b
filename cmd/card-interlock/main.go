// Command card-interlock is the safety interlock for a card-feeding
// machine: it samples the gate height sensor, classifies each envelope
// pass, and drives the stop output when a pass is unsafe or the
// supervising host goes silent. The host talks to it over a serial
// line; verdicts are mirrored to MQTT and a status page.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/card-interlock/internal/adc"
	"github.com/sweeney/card-interlock/internal/gpio"
	"github.com/sweeney/card-interlock/internal/link"
	"github.com/sweeney/card-interlock/internal/logic"
	"github.com/sweeney/card-interlock/internal/mqtt"
	"github.com/sweeney/card-interlock/internal/status"
	"github.com/sweeney/card-interlock/internal/web"
)

func main() {
	serialPort := flag.String("port", "/dev/serial0", "Serial port for the host link")
	baud := flag.Int("baud", link.DefaultBaudRate, "Serial baud rate")
	poll := flag.Duration("poll", 2*time.Millisecond, "Sensor polling interval")
	debounce := flag.Duration("debounce", logic.DefaultDebounceWindow, "Presence debounce window")
	watchdog := flag.Duration("watchdog", logic.DefaultWatchdogTimeout, "Host watchdog timeout")
	telemetry := flag.Duration("telemetry", logic.DefaultTelemetryInterval, "Telemetry interval")
	alpha := flag.Float64("alpha", logic.DefaultAlpha, "Sensor smoothing factor (0-1]")
	thr := flag.Int("thr", 150, "Lower card threshold (boot default)")
	thrUpper := flag.Int("thr-upper", 800, "Upper card threshold; 0 selects single-threshold mode")
	floor := flag.Int("floor", 100, "Sensor health floor (boot default)")
	reverse := flag.Bool("reverse", false, "Reverse the sensor scale")
	override := flag.Bool("override", false, "Boot with safety override enabled")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "MQTT heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	adcBus := flag.String("adc-bus", adc.DefaultBus, "I2C bus for the ADS1115 (empty = first available)")
	adcAddr := flag.Uint("adc-addr", adc.DefaultAddr, "I2C address of the ADS1115")
	adcChannel := flag.Int("adc-channel", adc.DefaultChannel, "ADS1115 input channel for the height sensor")
	pinPresence := flag.Int("pin-presence", gpio.DefaultPinPresence, "BCM pin number for the presence switch")
	pinStop := flag.Int("pin-stop", gpio.DefaultPinStop, "BCM pin number for the machine enable output")
	printState := flag.Bool("print-state", false, "Print current sensor and presence readings and exit")

	flag.Parse()

	cfg := logic.Config{
		CardThresholdLow:  *thr,
		CardThresholdHigh: *thrUpper,
		DualThreshold:     *thrUpper > 0,
		BaseFloor:         *floor,
		ReverseSensor:     *reverse,
		SafetyOverride:    *override,
	}

	opts := logic.Options{
		Alpha:             *alpha,
		DebounceWindow:    *debounce,
		WatchdogTimeout:   *watchdog,
		TelemetryInterval: *telemetry,
	}

	daemonCfg := status.Config{
		PollMs:      poll.Milliseconds(),
		DebounceMs:  debounce.Milliseconds(),
		WatchdogMs:  watchdog.Milliseconds(),
		TelemetryMs: telemetry.Milliseconds(),
		HeartbeatMs: heartbeat.Milliseconds(),
		SerialPort:  *serialPort,
		BaudRate:    *baud,
		Broker:      *broker,
		HTTPPort:    *httpAddr,
	}

	if err := run(cfg, opts, daemonCfg, *poll, *heartbeat, *adcBus, uint16(*adcAddr), *adcChannel, *pinPresence, *pinStop, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg logic.Config, opts logic.Options, daemonCfg status.Config, poll, heartbeat time.Duration, adcBus string, adcAddr uint16, adcChannel, pinPresence, pinStop int, printState bool) error {
	// Initialize the height sensor ADC
	sensor, err := adc.NewRealReader(adcBus, adcAddr, adcChannel)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer sensor.Close()

	// Initialize presence input and stop output
	pins, err := gpio.NewRealPair(pinPresence, pinStop)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pins.Close()

	// Print state mode
	if printState {
		raw, err := sensor.Read()
		if err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}
		present, err := pins.ReadPresence()
		if err != nil {
			return fmt.Errorf("read presence: %w", err)
		}
		fmt.Printf("sensor: %d, present: %v\n", raw, present)
		return nil
	}

	// Open the host serial link
	transport, err := link.OpenSerial(daemonCfg.SerialPort, daemonCfg.BaudRate)
	if err != nil {
		return fmt.Errorf("open host link: %w", err)
	}
	defer transport.Close()

	// Initialize MQTT mirroring
	var publisher mqtt.Publisher = nopPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if daemonCfg.Broker != "" {
		real := mqtt.NewRealPublisher(daemonCfg.Broker)
		publisher = real
		mqttStatus = real
		defer real.Close()
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), daemonCfg)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	// Start HTTP status server
	if daemonCfg.HTTPPort != "" {
		srv := web.New(daemonCfg.HTTPPort, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", daemonCfg.HTTPPort)
	}

	log.Printf("started: poll=%v debounce=%v watchdog=%v port=%s broker=%s",
		poll, opts.DebounceWindow, opts.WatchdogTimeout, daemonCfg.SerialPort, daemonCfg.Broker)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(cfg, opts, sensor, pins, transport, publisher, mqttStatus, tracker, heartbeat, time.Now, ticker.C, sigCh)
}

// runLoop drives the controller at the polling rate until a shutdown
// signal arrives. Everything it touches is an interface or channel so
// tests can run it against fakes with synthetic time.
func runLoop(cfg logic.Config, opts logic.Options, sensor adc.Reader, pins gpio.Pair, transport link.Transport, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	ctrl := logic.NewController(cfg, opts)

	// Seed from the first hardware samples and release the actuator.
	raw, err := sensor.Read()
	if err != nil {
		return fmt.Errorf("seed sensor read: %w", err)
	}
	present, err := pins.ReadPresence()
	if err != nil {
		return fmt.Errorf("seed presence read: %w", err)
	}
	applyOutput(ctrl.Boot(raw, present, now()), pins, transport, publisher)

	lastHeartbeat := now()

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			snap := tracker.Snapshot()
			event := mqtt.SystemEvent{
				Timestamp:  snap.Now,
				Event:      "SHUTDOWN",
				Reason:     signalName,
				Retained:   true,
				RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", signalName),
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			}
			// Leave the machine stopped: nothing is watching the gate
			// once this process exits.
			if err := pins.SetStop(true); err != nil {
				log.Printf("failed to park stop output: %v", err)
			}
			return nil

		case <-tick:
			t := now()

			raw, err := sensor.Read()
			if err != nil {
				log.Printf("sensor read error: %v", err)
				continue
			}
			rawPresent, err := pins.ReadPresence()
			if err != nil {
				log.Printf("presence read error: %v", err)
				continue
			}

			// At most one inbound command per tick.
			var line string
			select {
			case l, ok := <-transport.Lines():
				if ok {
					line = l
				}
			default:
			}

			out := ctrl.Tick(logic.Input{Raw: raw, Present: rawPresent, Line: line, Now: t})
			applyOutput(out, pins, transport, publisher)

			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			tracker.Update(ctrl.Value(), ctrl.Present(), ctrl.State(), ctrl.Tripped(), ctrl.Counts(), ctrl.Config())

			if heartbeat > 0 && t.Sub(lastHeartbeat) >= heartbeat {
				lastHeartbeat = t
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				hbEvent := mqtt.SystemEvent{
					Timestamp:  t,
					Event:      "HEARTBEAT",
					RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// applyOutput executes one tick's effects: actuator first, then the
// wire, then the MQTT mirror. Publish failures never stop the loop.
func applyOutput(out logic.Output, pins gpio.Pair, transport link.Transport, publisher mqtt.Publisher) {
	switch out.Actuator {
	case logic.ActuatorStop:
		if err := pins.SetStop(true); err != nil {
			log.Printf("stop actuator error: %v", err)
		}
	case logic.ActuatorRun:
		if err := pins.SetStop(false); err != nil {
			log.Printf("stop actuator error: %v", err)
		}
	}

	for _, l := range out.Lines {
		if err := transport.WriteLine(l); err != nil {
			log.Printf("host link write error: %v", err)
		}
	}

	if out.Trip != nil {
		log.Printf("interlock trip: %s (value=%d)", out.Trip.Reason, out.Trip.Value)
		event := mqtt.Event{
			Timestamp: out.Trip.Time,
			Kind:      string(out.Trip.Reason),
			Peak:      out.Trip.Value,
			Tripped:   true,
			State:     logic.StateFault,
		}
		if err := publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
		}
	} else if out.Verdict != nil {
		log.Printf("verdict: %s (peak=%d)", out.Verdict.Verdict, out.Verdict.Peak)
		event := mqtt.Event{
			Timestamp: out.Verdict.Time,
			Kind:      string(out.Verdict.Verdict),
			Peak:      out.Verdict.Peak,
			Tripped:   false,
			State:     logic.StateIdle,
		}
		if err := publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
		}
	}
}

// nopPublisher is used when MQTT mirroring is disabled.
type nopPublisher struct{}

func (nopPublisher) Publish(mqtt.Event) error             { return nil }
func (nopPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (nopPublisher) Close() error                         { return nil }

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

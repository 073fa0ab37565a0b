// Package logic contains the pure detection and interlock core for the
// card-feed gate: signal conditioning, presence debouncing, the
// envelope state machine, peak validation and the watchdog-backed
// interlock. This package has NO hardware dependencies (no GPIO, ADC,
// serial or time.Sleep). Time is always injectable via time.Time
// parameters, and all outside effects are returned as data.
package logic

import "time"

// SensorMax is the highest representable sensor reading (10-bit scale).
const SensorMax = 1023

// Absolute healthy band for the conditioned reading. Outside it the
// sensor wiring is assumed broken (disconnected or shorted).
const (
	SensorAbsMin = 50
	SensorAbsMax = 1000
)

// State is a detection state machine state.
type State string

const (
	StateIdle      State = "IDLE"
	StateMeasuring State = "MEASURING"
	StateFault     State = "FAULT"
)

// Verdict classifies a completed envelope pass.
type Verdict string

const (
	VerdictPass         Verdict = "PASS"
	VerdictPassOverride Verdict = "PASS_OVERRIDE"
	VerdictFailEmpty    Verdict = "EMPTY_ENVELOPE"
	VerdictFailDouble   Verdict = "DOUBLE_CARD"
)

// TripReason identifies why the interlock tripped.
type TripReason string

const (
	TripWatchdog    TripReason = "WATCHDOG_TIMEOUT"
	TripOutOfRange  TripReason = "SENSOR_OUT_OF_RANGE"
	TripSensorLow   TripReason = "SENSOR_FAULT_LOW"
	TripEmptyWindow TripReason = "EMPTY_ENVELOPE"
	TripDoubleCard  TripReason = "DOUBLE_CARD"
)

// Config is the runtime-mutable configuration. All of it is volatile:
// defaults are fixed at boot and every field can be rewritten over the
// command channel while the loop runs. Nothing is persisted.
type Config struct {
	// CardThresholdLow is the minimum accepted peak for a valid card.
	// Peaks below it mean the envelope passed empty.
	CardThresholdLow int

	// CardThresholdHigh is the maximum accepted peak, consulted only
	// when DualThreshold is set. Peaks above it mean two cards stuck
	// together.
	CardThresholdHigh int

	// DualThreshold selects dual-threshold validation. Cleared, the
	// upper threshold is ignored and SET_THR_UPPER commands are
	// rejected.
	DualThreshold bool

	// BaseFloor is the minimum healthy conditioned value. Readings
	// below it indicate a broken sensor wire.
	BaseFloor int

	// ReverseSensor inverts the raw scale (SensorMax - raw) before
	// filtering, for upside-down sensor installations.
	ReverseSensor bool

	// SafetyOverride downgrades validation failures to PASS_OVERRIDE
	// and bypasses the watchdog and sensor health checks. Maintenance
	// use only; every bypass is still reported on the wire.
	SafetyOverride bool
}

// DefaultConfig returns the boot-time defaults.
func DefaultConfig() Config {
	return Config{
		CardThresholdLow:  150,
		CardThresholdHigh: 800,
		DualThreshold:     true,
		BaseFloor:         100,
	}
}

// Input is one tick's worth of samples.
type Input struct {
	// Raw is the unconditioned sensor sample, 0..SensorMax.
	Raw int

	// Present is the raw presence level, already converted to logical
	// "item at the gate" polarity by the hardware layer.
	Present bool

	// Line is an inbound command line for this tick, empty if none.
	Line string

	// Now is the clock for this tick. Must be monotonic.
	Now time.Time
}

// Actuator is a stop-actuator command.
type Actuator int

const (
	// ActuatorHold leaves the stop output as it is.
	ActuatorHold Actuator = iota
	// ActuatorRun releases the stop output (machine may run).
	ActuatorRun
	// ActuatorStop drives the stop output (machine halted).
	ActuatorStop
)

// Output is everything a tick wants done to the outside world. The
// caller executes it against the actuator and transports; the
// controller itself never touches hardware.
type Output struct {
	// Lines are outbound protocol lines, in emit order.
	Lines []string

	// Actuator is the stop output command for this tick.
	Actuator Actuator

	// Verdict is the envelope verdict decided this tick, if any.
	Verdict *VerdictEvent

	// Trip is set when the interlock tripped this tick.
	Trip *TripEvent
}

// VerdictEvent pairs a verdict with the peak that produced it.
type VerdictEvent struct {
	Verdict Verdict
	Peak    int
	Time    time.Time
}

// TripEvent records an interlock trip.
type TripEvent struct {
	Reason TripReason
	// Value is the offending reading or peak, -1 when the reason
	// carries none (watchdog).
	Value int
	Time  time.Time
}

// Counts tracks verdicts and trips since boot.
type Counts struct {
	Pass          int
	PassOverride  int
	EmptyEnvelope int
	DoubleCard    int
	Trips         int
}

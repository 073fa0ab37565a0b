package logic

import (
	"fmt"
	"time"

	"github.com/sweeney/card-interlock/internal/proto"
)

// Default timing for the watchdog and telemetry emitter.
const (
	DefaultWatchdogTimeout   = 2000 * time.Millisecond
	DefaultTelemetryInterval = 100 * time.Millisecond
)

// Options sets the fixed (non-runtime-mutable) tuning of a Controller.
// Zero values select the design defaults.
type Options struct {
	Alpha             float64
	DebounceWindow    time.Duration
	WatchdogTimeout   time.Duration
	TelemetryInterval time.Duration
}

// Controller owns all detection and interlock state and advances it
// one tick at a time. Per-tick ordering is load-bearing: condition the
// sample, run watchdog/health checks, debounce presence, advance the
// state machine, apply at most one inbound command, then emit
// telemetry if due. A trip early in the tick forces FAULT before the
// state machine runs, so no presence-driven transition can race it.
type Controller struct {
	cfg  Config
	cond *Conditioner
	deb  *Debouncer

	state State
	peak  int

	tripped         bool
	lastHostContact time.Time
	watchdogTimeout time.Duration

	lastTelemetry     time.Time
	telemetryInterval time.Duration

	counts Counts
}

// NewController creates a controller with the given boot configuration.
// Call Boot with the first samples before ticking.
func NewController(cfg Config, opts Options) *Controller {
	if opts.WatchdogTimeout <= 0 {
		opts.WatchdogTimeout = DefaultWatchdogTimeout
	}
	if opts.TelemetryInterval <= 0 {
		opts.TelemetryInterval = DefaultTelemetryInterval
	}
	return &Controller{
		cfg:               cfg,
		cond:              NewConditioner(opts.Alpha),
		deb:               NewDebouncer(opts.DebounceWindow),
		state:             StateIdle,
		watchdogTimeout:   opts.WatchdogTimeout,
		telemetryInterval: opts.TelemetryInterval,
	}
}

// Boot seeds the filter and debouncer from the first hardware samples,
// starts the watchdog clock and releases the stop actuator.
func (c *Controller) Boot(raw int, present bool, now time.Time) Output {
	c.cond.Seed(raw, c.cfg.ReverseSensor)
	c.deb.Seed(present, now)
	c.lastHostContact = now
	c.lastTelemetry = now
	c.state = StateIdle

	return Output{
		Actuator: ActuatorRun,
		Lines:    []string{proto.Message("System Booted")},
	}
}

// Tick advances the controller by one sample. It never blocks and
// performs no IO; all effects come back in the Output.
func (c *Controller) Tick(in Input) Output {
	out := Output{Actuator: ActuatorHold}

	value := c.cond.Condition(in.Raw, c.cfg.ReverseSensor)

	// Watchdog and sensor health run ahead of detection so a trip this
	// tick suppresses any competing presence-driven transition.
	if !c.cfg.SafetyOverride {
		switch {
		case in.Now.Sub(c.lastHostContact) > c.watchdogTimeout:
			c.trip(&out, TripWatchdog, -1, in.Now)
		case value < SensorAbsMin || value > SensorAbsMax:
			c.trip(&out, TripOutOfRange, value, in.Now)
		case value < c.cfg.BaseFloor:
			c.trip(&out, TripSensorLow, value, in.Now)
		}
	}

	present := c.deb.Update(in.Present, in.Now)

	switch c.state {
	case StateIdle:
		if present {
			c.state = StateMeasuring
			c.peak = 0
		}
	case StateMeasuring:
		if value > c.peak {
			c.peak = value
		}
		if !present {
			c.closeWindow(&out, in.Now)
		}
	case StateFault:
		// Absorbing until RESUME.
	}

	if in.Line != "" {
		c.applyLine(&out, in.Line, in.Raw, in.Now)
	}

	if in.Now.Sub(c.lastTelemetry) >= c.telemetryInterval {
		c.lastTelemetry = in.Now
		out.Lines = append(out.Lines, proto.Telemetry(c.cond.Value(), present, c.tripped))
	}

	return out
}

// closeWindow validates the captured peak when the item leaves the
// gate. Pass verdicts return the machine to IDLE; failed verdicts trip
// the interlock and land in FAULT instead.
func (c *Controller) closeWindow(out *Output, now time.Time) {
	verdict := Validate(c.peak, c.cfg)
	out.Verdict = &VerdictEvent{Verdict: verdict, Peak: c.peak, Time: now}

	switch verdict {
	case VerdictPass:
		c.counts.Pass++
		out.Lines = append(out.Lines, proto.Event(string(VerdictPass), c.peak))
		c.state = StateIdle
	case VerdictPassOverride:
		c.counts.PassOverride++
		out.Lines = append(out.Lines, proto.Event(string(VerdictPassOverride), c.peak))
		c.state = StateIdle
	case VerdictFailEmpty:
		c.counts.EmptyEnvelope++
		c.trip(out, TripEmptyWindow, c.peak, now)
	case VerdictFailDouble:
		c.counts.DoubleCard++
		c.trip(out, TripDoubleCard, c.peak, now)
	}
}

// trip is idempotent and single-directional: it can only set the
// interlock. Clearing happens exclusively in resume.
func (c *Controller) trip(out *Output, reason TripReason, value int, now time.Time) {
	c.state = StateFault
	if c.tripped {
		return
	}
	c.tripped = true
	c.counts.Trips++
	out.Actuator = ActuatorStop
	out.Lines = append(out.Lines, proto.Error(string(reason), value))
	out.Trip = &TripEvent{Reason: reason, Value: value, Time: now}
}

// resume atomically clears the interlock: trip flag off, back to IDLE,
// actuator released, filter reseeded from this tick's raw sample so a
// stale filtered value cannot re-trip immediately.
func (c *Controller) resume(out *Output, raw int) {
	c.tripped = false
	c.state = StateIdle
	c.peak = 0
	c.cond.Seed(raw, c.cfg.ReverseSensor)
	out.Actuator = ActuatorRun
	out.Lines = append(out.Lines, proto.Message("System Resumed"))
}

// applyLine handles one inbound command line. Out-of-range or
// malformed values are dropped without any reply; accepted mutations
// emit a MSG confirmation.
func (c *Controller) applyLine(out *Output, line string, raw int, now time.Time) {
	cmd, ok := proto.ParseCommand(line)
	if !ok {
		return
	}

	switch cmd.Kind {
	case proto.CmdPing:
		c.lastHostContact = now

	case proto.CmdResume:
		c.resume(out, raw)

	case proto.CmdSetThreshold:
		if cmd.Value > 0 && cmd.Value <= SensorMax {
			c.cfg.CardThresholdLow = cmd.Value
			out.Lines = append(out.Lines, proto.Message(fmt.Sprintf("Card Threshold Set to %d", cmd.Value)))
		}

	case proto.CmdSetUpperThreshold:
		if c.cfg.DualThreshold && cmd.Value > 0 && cmd.Value <= SensorMax {
			c.cfg.CardThresholdHigh = cmd.Value
			out.Lines = append(out.Lines, proto.Message(fmt.Sprintf("Card Upper Threshold Set to %d", cmd.Value)))
		}

	case proto.CmdSetFloor:
		if cmd.Value >= 0 && cmd.Value <= SensorMax {
			c.cfg.BaseFloor = cmd.Value
			out.Lines = append(out.Lines, proto.Message(fmt.Sprintf("Floor Value Set to %d", cmd.Value)))
		}

	case proto.CmdSetReverse:
		c.cfg.ReverseSensor = cmd.Value == 1
		if c.cfg.ReverseSensor {
			out.Lines = append(out.Lines, proto.Message("Reverse Sensor Enabled"))
		} else {
			out.Lines = append(out.Lines, proto.Message("Reverse Sensor Disabled"))
		}

	case proto.CmdSetOverride:
		c.cfg.SafetyOverride = cmd.Value == 1
		if c.cfg.SafetyOverride {
			out.Lines = append(out.Lines, proto.Message("System Override ENABLED - Safety bypassed!"))
		} else {
			out.Lines = append(out.Lines, proto.Message("System Override Disabled"))
		}
	}
}

// State returns the current detection state.
func (c *Controller) State() State {
	return c.state
}

// Tripped reports whether the interlock is set.
func (c *Controller) Tripped() bool {
	return c.tripped
}

// Value returns the current conditioned sensor reading.
func (c *Controller) Value() int {
	return c.cond.Value()
}

// Present returns the current debounced presence state.
func (c *Controller) Present() bool {
	return c.deb.Stable()
}

// Config returns a copy of the live configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// Counts returns the verdict and trip counters since boot.
func (c *Controller) Counts() Counts {
	return c.counts
}

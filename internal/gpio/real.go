//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealPair drives actual hardware using the Linux GPIO character device.
type RealPair struct {
	chip     *gpiocdev.Chip
	presence *gpiocdev.Line
	stop     *gpiocdev.Line
}

// NewRealPair requests the presence input (pull-up, the switch pulls it
// to ground when an envelope is at the gate) and the enable output.
// The enable output starts high: machine allowed to run.
func NewRealPair(pinPresence, pinStop int) (*RealPair, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	presence, err := chip.RequestLine(pinPresence, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request presence pin %d: %w", pinPresence, err)
	}

	stop, err := chip.RequestLine(pinStop, gpiocdev.AsOutput(1))
	if err != nil {
		presence.Close()
		chip.Close()
		return nil, fmt.Errorf("request stop pin %d: %w", pinStop, err)
	}

	return &RealPair{
		chip:     chip,
		presence: presence,
		stop:     stop,
	}, nil
}

// ReadPresence returns the logical presence state.
// The switch is active-low: raw 0 = envelope present.
func (r *RealPair) ReadPresence() (bool, error) {
	raw, err := r.presence.Value()
	if err != nil {
		return false, fmt.Errorf("read presence pin: %w", err)
	}
	return raw == 0, nil
}

// SetStop drives the enable output. The machine runs while the line is
// high, so stop=true writes 0.
func (r *RealPair) SetStop(stop bool) error {
	v := 1
	if stop {
		v = 0
	}
	if err := r.stop.SetValue(v); err != nil {
		return fmt.Errorf("set stop pin: %w", err)
	}
	return nil
}

// Close releases GPIO resources. The enable output is driven low first
// so the machine never keeps running with nothing watching the gate.
func (r *RealPair) Close() error {
	var errs []error

	if r.stop != nil {
		if err := r.stop.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("park stop pin: %w", err))
		}
		if err := r.stop.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close stop pin: %w", err))
		}
	}
	if r.presence != nil {
		if err := r.presence.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure presence pin: %w", err))
		}
		if err := r.presence.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close presence pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

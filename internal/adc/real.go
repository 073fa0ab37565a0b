package adc

import (
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// RealReader reads the height sensor through an ADS1115 ADC.
type RealReader struct {
	bus i2c.BusCloser
	pin analog.PinADC
}

// NewRealReader opens the I2C bus and configures one single-ended
// ADS1115 channel for the height sensor. busName may be empty to use
// the first available bus.
func NewRealReader(busName string, addr uint16, channel int) (*RealReader, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}

	opts := ads1x15.DefaultOpts
	opts.I2cAddress = addr
	dev, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("init ads1115 at 0x%02x: %w", addr, err)
	}

	ch, err := channelByIndex(channel)
	if err != nil {
		bus.Close()
		return nil, err
	}

	// The sensor output swings 0-3.3V; request continuous conversions
	// fast enough for a 2ms control tick.
	pin, err := dev.PinForChannel(ch, 3300*physic.MilliVolt, 860*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("configure ads1115 channel %d: %w", channel, err)
	}

	return &RealReader{bus: bus, pin: pin}, nil
}

// Read samples the channel and scales the 16-bit conversion down to
// the 10-bit range used by the detection logic.
func (r *RealReader) Read() (int, error) {
	sample, err := r.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("read ads1115: %w", err)
	}

	// Full-scale single-ended conversion is 32767 counts; shifting by
	// 5 maps it onto 0..1023. Negative readings (noise below ground)
	// clamp to zero.
	v := int(sample.Raw >> 5)
	if v < 0 {
		v = 0
	}
	if v > 1023 {
		v = 1023
	}
	return v, nil
}

// Close halts conversions and releases the bus.
func (r *RealReader) Close() error {
	var errs []error
	if r.pin != nil {
		if err := r.pin.Halt(); err != nil {
			errs = append(errs, fmt.Errorf("halt adc pin: %w", err))
		}
	}
	if r.bus != nil {
		if err := r.bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close i2c bus: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func channelByIndex(channel int) (ads1x15.Channel, error) {
	switch channel {
	case 0:
		return ads1x15.Channel0, nil
	case 1:
		return ads1x15.Channel1, nil
	case 2:
		return ads1x15.Channel2, nil
	case 3:
		return ads1x15.Channel3, nil
	}
	return 0, fmt.Errorf("ads1115 channel %d out of range 0-3", channel)
}

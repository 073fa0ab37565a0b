// Package adc reads the analog height sensor.
// The real implementation drives an ADS1115 over I2C via periph.io.
// The fake implementation allows testing without hardware.
package adc

// Reader samples the height sensor.
type Reader interface {
	// Read returns the current sample scaled to the 10-bit range
	// (0..1023) the detection thresholds are calibrated against.
	Read() (int, error)

	// Close releases the bus and device resources.
	Close() error
}

// Default I2C addressing for the ADS1115 breakout.
const (
	DefaultBus     = ""   // first available I2C bus
	DefaultAddr    = 0x48 // ADDR pin grounded
	DefaultChannel = 0
)

// Package gpio provides the presence input and stop actuator output
// with hardware abstraction. The real implementation uses the Linux
// GPIO character device. The fake implementation allows testing
// without hardware.
package gpio

// Pair reads the presence switch and drives the stop actuator.
type Pair interface {
	// ReadPresence returns the logical "item at the gate" level.
	// The raw line is active-low (switch to ground = present); the
	// inversion happens here so callers never see wiring polarity.
	ReadPresence() (bool, error)

	// SetStop commands the stop actuator: true halts the machine,
	// false lets it run. The output is stateless and idempotent.
	SetStop(stop bool) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinPresence = 17 // envelope-present switch
	DefaultPinStop     = 27 // machine enable output (high = run)
)

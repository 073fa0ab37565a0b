//go:build !linux

package gpio

import "errors"

// RealPair is not available on non-Linux platforms.
type RealPair struct{}

// NewRealPair returns an error on non-Linux platforms.
func NewRealPair(pinPresence, pinStop int) (*RealPair, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ReadPresence is not implemented on non-Linux platforms.
func (r *RealPair) ReadPresence() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// SetStop is not implemented on non-Linux platforms.
func (r *RealPair) SetStop(stop bool) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealPair) Close() error {
	return nil
}

package gpio

import "errors"

// FakePair is a test double with scripted presence samples and a
// record of every stop command issued.
type FakePair struct {
	// Samples contains scripted logical presence values. Each call to
	// ReadPresence() consumes the next one; the last repeats once
	// exhausted.
	Samples []bool

	// index tracks current position in Samples
	index int

	// StopCommands records every SetStop call in order.
	StopCommands []bool

	// Stopped is the current actuator state (true = machine halted).
	Stopped bool

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by ReadPresence()
	ReadError error

	// StopError, if set, will be returned by SetStop()
	StopError error
}

// NewFakePair creates a FakePair with the given presence samples.
func NewFakePair(samples []bool) *FakePair {
	return &FakePair{Samples: samples}
}

// ReadPresence returns the next scripted presence value.
func (f *FakePair) ReadPresence() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// SetStop records the actuator command.
func (f *FakePair) SetStop(stop bool) error {
	if f.StopError != nil {
		return f.StopError
	}
	f.StopCommands = append(f.StopCommands, stop)
	f.Stopped = stop
	return nil
}

// Close marks the pair as closed.
func (f *FakePair) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the samples and clears recorded commands.
func (f *FakePair) Reset() {
	f.index = 0
	f.StopCommands = nil
	f.Stopped = false
	f.Closed = false
}

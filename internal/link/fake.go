package link

import "sync"

// FakeTransport is a test double: inbound lines are pushed by the
// test, outbound lines are recorded for assertions.
type FakeTransport struct {
	mu sync.Mutex

	// Written contains every line passed to WriteLine, in order.
	Written []string

	// WriteError, if set, will be returned by WriteLine.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool

	lines chan string
}

// NewFakeTransport creates a FakeTransport with room for a few
// buffered inbound lines.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{lines: make(chan string, 16)}
}

// Push queues an inbound line as if the host had sent it.
func (f *FakeTransport) Push(line string) {
	f.lines <- line
}

// Lines returns the inbound line channel.
func (f *FakeTransport) Lines() <-chan string {
	return f.lines
}

// WriteLine records the outbound line.
func (f *FakeTransport) WriteLine(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Written = append(f.Written, line)
	return nil
}

// WrittenLines returns a copy of the recorded outbound lines.
func (f *FakeTransport) WrittenLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Written))
	copy(out, f.Written)
	return out
}

// Close marks the transport as closed and closes the inbound channel.
func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.Closed {
		f.Closed = true
		close(f.lines)
	}
	return nil
}

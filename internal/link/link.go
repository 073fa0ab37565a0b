// Package link provides the newline-delimited ASCII link to the
// supervising host. The real implementation is a serial port; the fake
// implementation allows testing without hardware.
package link

// Transport carries protocol lines to and from the host.
type Transport interface {
	// Lines returns the channel of inbound lines, stripped of
	// terminators. The channel is closed when the transport ends.
	Lines() <-chan string

	// WriteLine sends one outbound line, appending the terminator.
	WriteLine(line string) error

	// Close shuts the transport down.
	Close() error
}

// DefaultBaudRate matches the firmware link this daemon replaces.
const DefaultBaudRate = 115200

package link

import (
	"bufio"
	"fmt"
	"log"
	"sync"

	"go.bug.st/serial"
)

// SerialPort is a Transport over a real serial port.
type SerialPort struct {
	port  serial.Port
	lines chan string

	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// OpenSerial opens the named port at the given baud rate (8N1) and
// starts the reader goroutine. Reading stops when the port is closed.
func OpenSerial(name string, baud int) (*SerialPort, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}

	p := &SerialPort{
		port:  port,
		lines: make(chan string, 16),
	}
	go p.readLoop()
	return p, nil
}

// readLoop scans the port for complete lines and feeds them to the
// lines channel. It owns the channel and closes it on exit.
func (p *SerialPort) readLoop() {
	defer close(p.lines)

	scan := bufio.NewScanner(p.port)
	for scan.Scan() {
		p.lines <- scan.Text()
	}
	if err := scan.Err(); err != nil {
		log.Printf("serial read ended: %v", err)
	}
}

// Lines returns the inbound line channel.
func (p *SerialPort) Lines() <-chan string {
	return p.lines
}

// WriteLine sends one line followed by a newline.
func (p *SerialPort) WriteLine(line string) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	if _, err := p.port.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

// Close closes the port, which also terminates the reader goroutine.
func (p *SerialPort) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.port.Close()
	})
	return p.closeErr
}

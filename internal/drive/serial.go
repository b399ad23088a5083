package drive

import (
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"

	"github.com/banshee-data/racecar-sim/internal/monitoring"
)

// SerialPorter is the minimal interface needed for a serial port.
type SerialPorter interface {
	io.Writer
	io.Closer
}

// DefaultBaudRate matches the motor controller firmware.
const DefaultBaudRate = 115200

// SerialForwarder writes each command as a "speed=<f> angle=<f>\n" line.
type SerialForwarder struct {
	mu   sync.Mutex
	port SerialPorter
	name string
}

// NewSerialForwarder wraps an already opened port.
func NewSerialForwarder(name string, port SerialPorter) *SerialForwarder {
	return &SerialForwarder{port: port, name: name}
}

// OpenSerialForwarder opens path at baud (8N1).
func OpenSerialForwarder(path string, baud int) (*SerialForwarder, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", path, err)
	}
	monitoring.Logf("[drive] forwarding commands to %s at %d baud", path, baud)
	return NewSerialForwarder(path, port), nil
}

// Apply implements Actuator.
func (f *SerialForwarder) Apply(c Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := io.WriteString(f.port, c.String()+"\n"); err != nil {
		return fmt.Errorf("write %s: %w", f.name, err)
	}
	return nil
}

// Close closes the port.
func (f *SerialForwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.port.Close()
}

// Package transport provides the byte links the hat sends and receives
// messages over.
package transport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Serial defaults: 115200 8N1
const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = 500 * time.Millisecond
)

var (
	// ErrNotConnected indicates a write while the link is down
	ErrNotConnected = errors.New("link not connected")
	// ErrDisconnected indicates the link dropped during a read or write
	ErrDisconnected = errors.New("link disconnected")
)

// port is the subset of serial.Port used here
type port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Serial is a link over a serial port
type Serial struct {
	name string
	port port

	wmu sync.Mutex
}

// OpenSerial opens name at baud, 8 data bits, no parity, one stop bit.
// Reads return after readTimeout with no data so callers can observe cancellation.
func OpenSerial(name string, baud int, readTimeout time.Duration) (*Serial, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return newSerial(name, p, readTimeout)
}

func newSerial(name string, p port, readTimeout time.Duration) (*Serial, error) {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	return &Serial{name: name, port: p}, nil
}

// Name returns the device path
func (s *Serial) Name() string { return s.name }

// Read returns (0, nil) when the read timeout passes with no data
func (s *Serial) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	return n, s.mapErr(err)
}

func (s *Serial) Write(p []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	n, err := s.port.Write(p)
	return n, s.mapErr(err)
}

func (s *Serial) Close() error {
	return s.port.Close()
}

func (s *Serial) mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pe *serial.PortError
	if errors.As(err, &pe) && pe.Code() == serial.PortClosed {
		return fmt.Errorf("%s: %w", s.name, os.ErrClosed)
	}
	return fmt.Errorf("%s: %w: %w", s.name, ErrDisconnected, err)
}

// ListPorts returns the serial ports present on the system
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

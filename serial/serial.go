// Package serial adapts a physical serial port into the protocol
// package's Writer interface and a readable byte stream for a Parser to
// consume.
package serial

import (
	"fmt"
	"io"
	"time"

	tarmserial "github.com/tarm/serial"
)

// Port is a serial device, read and written by the engine's reader
// goroutine and Transmitter respectively.
type Port interface {
	io.ReadWriteCloser
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g. "/dev/ttyUSB0", "COM3").
	Device string

	// Baud rate.
	Baud int

	// ReadTimeout bounds a single blocking Read call; zero blocks
	// indefinitely.
	ReadTimeout time.Duration
}

// DefaultConfig returns a conservative configuration for the given
// device: 9600 baud, a 100ms read timeout.
func DefaultConfig(device string) Config {
	return Config{
		Device:      device,
		Baud:        9600,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// Open opens a native serial port.
func Open(cfg Config) (Port, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("serial: device path cannot be empty")
	}

	port, err := tarmserial.OpenPort(&tarmserial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}

	return port, nil
}

// Writer wraps a Port to implement protocol.Writer: a synchronous,
// boolean-returning write primitive instead of Go's (n int, err error)
// convention, matching the rest of the wire layer's style.
type Writer struct {
	port Port
}

// NewWriter wraps an open Port.
func NewWriter(port Port) *Writer {
	return &Writer{port: port}
}

// WriteOut writes buf in full, returning false on any short write or
// error.
func (w *Writer) WriteOut(buf []byte) bool {
	n, err := w.port.Write(buf)
	return err == nil && n == len(buf)
}

// Package transport provides report-oriented byte channels to physical
// controllers: HID, Linux hidraw, serial bridges and websocket bridges.
package transport

import (
	"errors"
	"io"
)

var (
	// ErrClosed is returned by operations on a closed transport.
	ErrClosed = errors.New("transport closed")
	// ErrInterrupted is returned by a Read that was woken by Interrupt.
	ErrInterrupted = errors.New("read interrupted")
)

// Transport reads and writes whole reports. Read blocks until one report is
// available and returns its length.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// Interrupter is implemented by transports whose blocking Read can be woken
// without closing the device.
type Interrupter interface {
	Interrupt() error
}

// Kind names a transport implementation.
type Kind string

const (
	KindHID       Kind = "hid"
	KindHidraw    Kind = "hidraw"
	KindSerial    Kind = "serial"
	KindWebSocket Kind = "websocket"
)

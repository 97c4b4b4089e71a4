package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// DefaultSerialReadTimeout bounds each blocking port read so Interrupt is
// observed.
const DefaultSerialReadTimeout = 100 * time.Millisecond

// Framing describes how fixed-size reports are delimited in a byte stream.
type Framing struct {
	Size int
	// Sync is the byte sequence every report starts with.
	Sync []byte
}

// Framer splits a byte stream into reports, dropping bytes until Sync is
// found again after corruption.
type Framer struct {
	r *bufio.Reader
	f Framing
}

// NewFramer wraps r.
func NewFramer(r io.Reader, f Framing) *Framer {
	return &Framer{r: bufio.NewReaderSize(r, max(4*f.Size, 64)), f: f}
}

// Next reads one full report into p, which must hold at least Size bytes.
func (fr *Framer) Next(p []byte) (int, error) {
	if len(p) < fr.f.Size {
		return 0, io.ErrShortBuffer
	}
	for {
		head, err := fr.r.Peek(len(fr.f.Sync))
		if err != nil {
			return 0, err
		}
		if !bytes.Equal(head, fr.f.Sync) {
			if _, err := fr.r.Discard(1); err != nil {
				return 0, err
			}
			continue
		}
		n, err := io.ReadFull(fr.r, p[:fr.f.Size])
		return n, err
	}
}

// Serial reads reports from a microcontroller bridge on a serial port.
type Serial struct {
	port        serial.Port
	name        string
	framer      *Framer
	interrupted atomic.Bool
	closed      atomic.Bool
}

// OpenSerial opens portName at baudRate, 8N1.
func OpenSerial(portName string, baudRate int, f Framing) (*Serial, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(DefaultSerialReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	s := &Serial{port: port, name: portName}
	s.framer = NewFramer(portReader{s}, f)
	return s, nil
}

// SerialPorts lists the serial ports present on the system.
func SerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

func (s *Serial) Read(p []byte) (int, error) {
	return s.framer.Next(p)
}

func (s *Serial) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	return s.port.Write(p)
}

func (s *Serial) Interrupt() error {
	s.interrupted.Store(true)
	return nil
}

func (s *Serial) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.port.Close()
}

// portReader turns read timeouts into retries and surfaces Interrupt/Close.
type portReader struct{ s *Serial }

func (r portReader) Read(p []byte) (int, error) {
	for {
		if r.s.closed.Load() {
			return 0, ErrClosed
		}
		if r.s.interrupted.Swap(false) {
			return 0, ErrInterrupted
		}
		n, err := r.s.port.Read(p)
		if err != nil {
			return n, fmt.Errorf("serial read %s: %w", r.s.name, err)
		}
		if n > 0 {
			return n, nil
		}
	}
}
